package visibility

import "sync"

// ReturnSignal delivers a single "operator is back" event to subscribers.
// Callbacks run on the notifying goroutine and may call unsubscribe.
type ReturnSignal interface {
	Subscribe(callback func()) (unsubscribe func())
}

// ManualOnly never fires. Flows without a foreground signal rely on manual
// confirmation alone.
type ManualOnly struct{}

func (ManualOnly) Subscribe(func()) func() { return func() {} }

// Broadcaster is a ReturnSignal driven by the presentation layer reporting
// that it became visible again. Subscriptions are single-shot: Notify drains
// them.
type Broadcaster struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers map[uint64]func()
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[uint64]func())}
}

func (b *Broadcaster) Subscribe(callback func()) func() {
	if callback == nil {
		return func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subscribers[id] = callback

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// Notify fires every current subscriber once and reports how many ran.
func (b *Broadcaster) Notify() int {
	b.mu.Lock()
	callbacks := make([]func(), 0, len(b.subscribers))
	for id, callback := range b.subscribers {
		callbacks = append(callbacks, callback)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	for _, callback := range callbacks {
		callback()
	}
	return len(callbacks)
}
