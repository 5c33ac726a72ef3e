package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/observability"
	"github.com/kursadbilgin/message-scheduler/internal/visibility"
	"go.uber.org/zap"
)

// Recorder receives every item the operator confirmed.
type Recorder interface {
	Record(ctx context.Context, item domain.QueueItem) domain.SentRecord
}

// Snapshot is a consistent read of the sequencer for the presentation layer.
type Snapshot struct {
	State          domain.State      `json:"state"`
	QueueID        string            `json:"queueId,omitempty"`
	Index          int               `json:"index"`
	Total          int               `json:"total"`
	Current        *domain.QueueItem `json:"current,omitempty"`
	AwaitingReturn bool              `json:"awaitingReturn"`
	ScheduledFor   *time.Time        `json:"scheduledFor,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// Sequencer is the process-wide sending state machine. It steps the operator
// through one queue at a time and never advances without a confirmation.
//
// Timer fires and return signals arrive on other goroutines; every event is
// serialized behind mu.
type Sequencer struct {
	mu          sync.Mutex
	state       domain.State
	queue       *domain.Queue
	queueID     string
	activation  *Activation
	awaiting    bool
	awaitIndex  int
	awaitGen    uint64
	unsubscribe func()
	lastErr     string

	scheduler *Scheduler
	history   Recorder
	signal    visibility.ReturnSignal
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewSequencer(
	scheduler *Scheduler,
	history Recorder,
	signal visibility.ReturnSignal,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*Sequencer, error) {
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history recorder is required")
	}
	if signal == nil {
		signal = visibility.ManualOnly{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics.SetState(domain.StateIdle.String())

	return &Sequencer{
		state:     domain.StateIdle,
		scheduler: scheduler,
		history:   history,
		signal:    signal,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

func (s *Sequencer) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sequencer) Current() (domain.QueueItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateSending {
		return domain.QueueItem{}, false
	}
	return s.queue.Current()
}

func (s *Sequencer) Items() []domain.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Items()
}

func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:          s.state,
		QueueID:        s.queueID,
		Index:          s.queue.Index(),
		Total:          s.queue.Len(),
		AwaitingReturn: s.awaiting,
		Error:          s.lastErr,
	}
	if s.state == domain.StateSending {
		if item, ok := s.queue.Current(); ok {
			snap.Current = &item
		}
	}
	if s.activation != nil {
		target := s.activation.TargetTime
		snap.ScheduledFor = &target
	}
	return snap
}

func (s *Sequencer) Start(ctx context.Context, queue *domain.Queue) error {
	if queue.Len() == 0 {
		return domain.ErrEmptyRecipients
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateIdle {
		return fmt.Errorf("%w: cannot start a queue in state %s", domain.ErrInvalidTransition, s.state)
	}

	s.queue = queue
	s.queueID = uuid.NewString()
	s.lastErr = ""
	s.setStateLocked(domain.StateSending)
	s.metrics.IncQueueStarted("now")

	s.loggerFor(ctx).Info("queue started", zap.Int("items", queue.Len()))
	return nil
}

// Schedule defers queue until target. The sequencer stays SCHEDULED until the
// timer fires or the schedule is cancelled.
func (s *Sequencer) Schedule(ctx context.Context, queue *domain.Queue, target time.Time) (*Activation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTransitionLocked(domain.StateScheduled); err != nil {
		return nil, err
	}

	activation, err := s.scheduler.Schedule(queue, target, s.activate)
	if err != nil {
		return nil, err
	}

	s.queue = queue
	s.queueID = activation.ID
	s.activation = activation
	s.lastErr = ""
	s.setStateLocked(domain.StateScheduled)

	s.loggerFor(ctx).Info("queue scheduled",
		zap.Time("targetTime", activation.TargetTime),
		zap.Int("items", queue.Len()),
	)
	return activation, nil
}

func (s *Sequencer) activate(activation *Activation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activation != activation || s.state != domain.StateScheduled {
		s.logger.Info("stale activation ignored", zap.String("activationId", activation.ID))
		return
	}

	s.activation = nil
	s.setStateLocked(domain.StateSending)
	s.metrics.IncQueueStarted("scheduled")

	s.loggerFor(context.Background()).Info("scheduled queue activated",
		zap.Int("items", s.queue.Len()),
	)
}

// AwaitReturn marks the current item as handed off to the chat app and
// subscribes to the return signal for it. Calling it again for the same item
// is a no-op.
func (s *Sequencer) AwaitReturn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateSending || s.queue.Done() {
		return fmt.Errorf("%w: nothing to hand off in state %s", domain.ErrInvalidTransition, s.state)
	}
	if s.awaiting && s.awaitIndex == s.queue.Index() {
		return nil
	}
	s.endAwaitLocked()

	s.awaitGen++
	gen := s.awaitGen
	s.awaiting = true
	s.awaitIndex = s.queue.Index()
	s.unsubscribe = s.signal.Subscribe(func() {
		s.onReturn(gen)
	})
	return nil
}

// onReturn only confirms the await it was subscribed for. A callback drained
// before a cancel or a newer await must not touch the current queue.
func (s *Sequencer) onReturn(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.awaiting || s.awaitGen != gen || s.state != domain.StateSending {
		return
	}
	if _, _, err := s.advanceLocked(context.Background(), domain.ConfirmReturnSignal); err != nil {
		s.logger.Warn("return signal could not advance queue", zap.Error(err))
	}
}

// Advance records the current item as sent and moves the cursor. Only call it
// once the operator confirmed the item.
func (s *Sequencer) Advance(ctx context.Context, via domain.ConfirmVia) (domain.SentRecord, domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateSending {
		return domain.SentRecord{}, s.state, fmt.Errorf("%w: cannot advance in state %s", domain.ErrInvalidTransition, s.state)
	}
	return s.advanceLocked(ctx, via)
}

func (s *Sequencer) advanceLocked(ctx context.Context, via domain.ConfirmVia) (domain.SentRecord, domain.State, error) {
	s.endAwaitLocked()

	item, err := s.queue.Step()
	if err != nil {
		return domain.SentRecord{}, s.state, err
	}

	record := s.history.Record(ctx, item)
	s.metrics.IncItemConfirmed(via.String())

	next := domain.StateSending
	if s.queue.Done() {
		next = domain.StateDone
	}
	s.setStateLocked(next)

	s.loggerFor(ctx).Info("queue item confirmed",
		zap.String("number", item.Number),
		zap.String("via", via.String()),
		zap.Int("index", s.queue.Index()),
		zap.Int("total", s.queue.Len()),
	)
	return record, next, nil
}

func (s *Sequencer) endAwaitLocked() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.awaiting = false
}

// Cancel drops the scheduled or active queue. The unconfirmed current item is
// not recorded.
func (s *Sequencer) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateScheduled && s.state != domain.StateSending {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, s.state, domain.StateIdle)
	}

	if s.activation != nil {
		s.scheduler.Cancel(s.activation)
	}
	s.loggerFor(ctx).Info("queue cancelled",
		zap.String("from", s.state.String()),
		zap.Int("index", s.queue.Index()),
	)
	s.clearLocked()
	return nil
}

func (s *Sequencer) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTransitionLocked(domain.StateIdle); err != nil {
		return err
	}
	if s.state != domain.StateDone {
		return fmt.Errorf("%w: reset is only valid from %s", domain.ErrInvalidTransition, domain.StateDone)
	}

	s.loggerFor(ctx).Info("sequencer reset")
	s.clearLocked()
	return nil
}

func (s *Sequencer) ReportError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.lastErr = ""
		return
	}
	s.lastErr = err.Error()
}

func (s *Sequencer) clearLocked() {
	s.endAwaitLocked()
	s.activation = nil
	s.queue = nil
	s.queueID = ""
	s.lastErr = ""
	s.setStateLocked(domain.StateIdle)
}

func (s *Sequencer) checkTransitionLocked(next domain.State) error {
	if !s.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, s.state, next)
	}
	return nil
}

func (s *Sequencer) setStateLocked(next domain.State) {
	s.state = next
	s.metrics.SetState(next.String())
}

func (s *Sequencer) loggerFor(ctx context.Context) *zap.Logger {
	return observability.WithContextLogger(s.logger, observability.WithQueueID(ctx, s.queueID))
}
