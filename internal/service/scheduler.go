package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/observability"
	"go.uber.org/zap"
)

type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d. It must not run f synchronously.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Activation is a queue waiting for its target time. It lives in memory only
// and is gone after a restart.
type Activation struct {
	ID         string
	TargetTime time.Time

	queue *domain.Queue
	timer Timer
}

// Scheduler defers the hand-off of a queue to a future wall-clock time. At
// most one activation is armed at a time.
type Scheduler struct {
	mu        sync.Mutex
	active    *Activation
	now       func() time.Time
	afterFunc AfterFunc
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewScheduler(logger *zap.Logger, metrics *observability.Metrics) *Scheduler {
	return newScheduler(time.Now, stdAfterFunc, logger, metrics)
}

func newScheduler(now func() time.Time, afterFunc AfterFunc, logger *zap.Logger, metrics *observability.Metrics) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if afterFunc == nil {
		afterFunc = stdAfterFunc
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		now:       now,
		afterFunc: afterFunc,
		logger:    logger,
		metrics:   metrics,
	}
}

// Schedule arms a single-shot timer that calls onFire with the activation once
// target is reached. The activation is consumed before onFire runs.
func (s *Scheduler) Schedule(queue *domain.Queue, target time.Time, onFire func(*Activation)) (*Activation, error) {
	if queue.Len() == 0 {
		return nil, domain.ErrEmptyRecipients
	}
	if target.IsZero() {
		return nil, domain.ErrInvalidScheduledAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return nil, domain.ErrActivationPending
	}

	now := s.now()
	if !target.After(now) {
		return nil, domain.ErrTimeInPast
	}

	activation := &Activation{
		ID:         uuid.NewString(),
		TargetTime: target,
		queue:      queue,
	}
	s.active = activation
	activation.timer = s.afterFunc(target.Sub(now), func() {
		s.fire(activation, onFire)
	})

	s.metrics.IncSchedule("armed")
	s.logger.Info("activation armed",
		zap.String("activationId", activation.ID),
		zap.Time("targetTime", target),
		zap.Duration("delay", target.Sub(now)),
		zap.Int("items", queue.Len()),
	)

	return activation, nil
}

func (s *Scheduler) fire(activation *Activation, onFire func(*Activation)) {
	s.mu.Lock()
	if s.active != activation {
		s.mu.Unlock()
		return
	}
	s.active = nil
	s.mu.Unlock()

	s.metrics.IncSchedule("fired")
	s.logger.Info("activation fired", zap.String("activationId", activation.ID))

	if onFire != nil {
		onFire(activation)
	}
}

// Cancel disarms activation. It reports false when the activation already
// fired or was cancelled before.
func (s *Scheduler) Cancel(activation *Activation) bool {
	if activation == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != activation {
		return false
	}
	s.active = nil
	if activation.timer != nil {
		activation.timer.Stop()
	}

	s.metrics.IncSchedule("cancelled")
	s.logger.Info("activation cancelled", zap.String("activationId", activation.ID))
	return true
}

func (s *Scheduler) Pending() *Activation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
