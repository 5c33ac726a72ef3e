package domain

import (
	"strings"
	"time"
)

// QueueItem is one recipient's personalized, not yet confirmed message.
type QueueItem struct {
	Number              string `json:"number"`
	Name                string `json:"name"`
	PersonalizedMessage string `json:"personalizedMessage"`
}

// SentRecord is a QueueItem the operator confirmed, stamped with the time of
// confirmation.
type SentRecord struct {
	QueueItem
	SentAt time.Time `json:"sentAt"`
}

// Queue is an immutable item sequence with a cursor. The cursor only moves
// forward; Index() == Len() means the queue is exhausted.
//
// Queue is not safe for concurrent use. The Sequencer that owns it
// serializes access.
type Queue struct {
	items  []QueueItem
	cursor int
}

// BuildQueue renders template once per recipient, in list order.
func BuildQueue(template string, recipients []Recipient) (*Queue, error) {
	if strings.TrimSpace(template) == "" {
		return nil, ErrEmptyTemplate
	}
	if len(recipients) == 0 {
		return nil, ErrEmptyRecipients
	}

	items := make([]QueueItem, 0, len(recipients))
	for _, r := range recipients {
		items = append(items, QueueItem{
			Number:              r.Number,
			Name:                r.Name,
			PersonalizedMessage: Render(template, r),
		})
	}

	return &Queue{items: items}, nil
}

func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

func (q *Queue) Index() int {
	if q == nil {
		return 0
	}
	return q.cursor
}

func (q *Queue) Done() bool {
	return q == nil || q.cursor >= len(q.items)
}

// Current returns the item under the cursor.
func (q *Queue) Current() (QueueItem, bool) {
	if q.Done() {
		return QueueItem{}, false
	}
	return q.items[q.cursor], true
}

// Items returns a copy of every item, regardless of the cursor.
func (q *Queue) Items() []QueueItem {
	if q == nil {
		return nil
	}
	out := make([]QueueItem, len(q.items))
	copy(out, q.items)
	return out
}

// Step returns the current item and moves the cursor past it.
func (q *Queue) Step() (QueueItem, error) {
	item, ok := q.Current()
	if !ok {
		return QueueItem{}, ErrQueueExhausted
	}
	q.cursor++
	return item, nil
}
