package service

import (
	"context"
	"sync"
	"time"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
)

type fakeTimer struct {
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasArmed := !t.stopped
	t.stopped = true
	return wasArmed
}

// fakeClock hands out timers that only fire when the test calls fire.
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
	delays  []time.Duration
	pending []func()
	timers  []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{current: now}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) afterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{}
	c.delays = append(c.delays, d)
	c.pending = append(c.pending, f)
	c.timers = append(c.timers, timer)
	return timer
}

// fire runs the i-th armed callback the way the runtime would, unless the
// timer was stopped.
func (c *fakeClock) fire(i int) bool {
	c.mu.Lock()
	f := c.pending[i]
	timer := c.timers[i]
	c.mu.Unlock()

	if timer.stopped {
		return false
	}
	f()
	return true
}

// fireUnconditionally models a timer that elapsed while Stop was racing it.
func (c *fakeClock) fireUnconditionally(i int) {
	c.mu.Lock()
	f := c.pending[i]
	c.mu.Unlock()
	f()
}

// capturingSignal keeps every callback it was given. Unsubscribe is a no-op,
// the way a callback already drained by Notify can no longer be stopped.
type capturingSignal struct {
	mu        sync.Mutex
	callbacks []func()
}

func (s *capturingSignal) Subscribe(callback func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
	return func() {}
}

func (s *capturingSignal) callback(i int) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbacks[i]
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	loadFn  func(ctx context.Context) ([]domain.SentRecord, error)
	saveFn  func(ctx context.Context, records []domain.SentRecord) error
	clearFn func(ctx context.Context) error
	saved   []domain.SentRecord
	saves   int
}

func (f *fakeHistoryRepo) Load(ctx context.Context) ([]domain.SentRecord, error) {
	if f.loadFn != nil {
		return f.loadFn(ctx)
	}
	return []domain.SentRecord{}, nil
}

func (f *fakeHistoryRepo) Save(ctx context.Context, records []domain.SentRecord) error {
	f.mu.Lock()
	f.saves++
	f.saved = append([]domain.SentRecord(nil), records...)
	f.mu.Unlock()

	if f.saveFn != nil {
		return f.saveFn(ctx, records)
	}
	return nil
}

func (f *fakeHistoryRepo) Clear(ctx context.Context) error {
	if f.clearFn != nil {
		return f.clearFn(ctx)
	}
	return nil
}

type fakeTemplateRepo struct {
	getDraftFn  func(ctx context.Context) (string, error)
	saveDraftFn func(ctx context.Context, template string) error
	getSavedFn  func(ctx context.Context) (map[string]string, error)
	saveAllFn   func(ctx context.Context, templates map[string]string) error
}

func (f *fakeTemplateRepo) GetDraft(ctx context.Context) (string, error) {
	if f.getDraftFn != nil {
		return f.getDraftFn(ctx)
	}
	return "", domain.ErrNotFound
}

func (f *fakeTemplateRepo) SaveDraft(ctx context.Context, template string) error {
	if f.saveDraftFn != nil {
		return f.saveDraftFn(ctx, template)
	}
	return nil
}

func (f *fakeTemplateRepo) GetSaved(ctx context.Context) (map[string]string, error) {
	if f.getSavedFn != nil {
		return f.getSavedFn(ctx)
	}
	return map[string]string{}, nil
}

func (f *fakeTemplateRepo) SaveAll(ctx context.Context, templates map[string]string) error {
	if f.saveAllFn != nil {
		return f.saveAllFn(ctx, templates)
	}
	return nil
}

type fakeGroupRepo struct {
	getSavedFn func(ctx context.Context) (map[string][]domain.Recipient, error)
	saveAllFn  func(ctx context.Context, groups map[string][]domain.Recipient) error
}

func (f *fakeGroupRepo) GetSaved(ctx context.Context) (map[string][]domain.Recipient, error) {
	if f.getSavedFn != nil {
		return f.getSavedFn(ctx)
	}
	return map[string][]domain.Recipient{}, nil
}

func (f *fakeGroupRepo) SaveAll(ctx context.Context, groups map[string][]domain.Recipient) error {
	if f.saveAllFn != nil {
		return f.saveAllFn(ctx, groups)
	}
	return nil
}
