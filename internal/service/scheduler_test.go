package service

import (
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func testQueue(t *testing.T) *domain.Queue {
	t.Helper()

	queue, err := domain.BuildQueue("Hi {name}!", []domain.Recipient{
		{Name: "Alice", Number: "1234567890"},
		{Name: "Bob", Number: "0987654321"},
	})
	if err != nil {
		t.Fatalf("BuildQueue() error = %v", err)
	}
	return queue
}

func TestSchedulerRejectsPastAndPresentTimes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		target time.Time
		want   error
	}{
		{name: "past", target: testNow.Add(-time.Minute), want: domain.ErrTimeInPast},
		{name: "now", target: testNow, want: domain.ErrTimeInPast},
		{name: "zero", target: time.Time{}, want: domain.ErrInvalidScheduledAt},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			clock := newFakeClock(testNow)
			scheduler := newScheduler(clock.now, clock.afterFunc, nil, nil)

			_, err := scheduler.Schedule(testQueue(t), tc.target, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Schedule() error = %v, want %v", err, tc.want)
			}
			if len(clock.pending) != 0 {
				t.Fatal("no timer should be armed")
			}
			if scheduler.Pending() != nil {
				t.Fatal("no activation should be pending")
			}
		})
	}
}

func TestSchedulerRejectsEmptyQueue(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(testNow)
	scheduler := newScheduler(clock.now, clock.afterFunc, nil, nil)

	if _, err := scheduler.Schedule(nil, testNow.Add(time.Hour), nil); !errors.Is(err, domain.ErrEmptyRecipients) {
		t.Fatalf("Schedule(nil) error = %v, want ErrEmptyRecipients", err)
	}
}

func TestSchedulerFiresOnce(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(testNow)
	scheduler := newScheduler(clock.now, clock.afterFunc, nil, nil)
	queue := testQueue(t)

	fired := 0
	var got *Activation
	activation, err := scheduler.Schedule(queue, testNow.Add(90*time.Second), func(a *Activation) {
		fired++
		got = a
	})
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if activation.ID == "" {
		t.Fatal("activation id should be set")
	}
	if clock.delays[0] != 90*time.Second {
		t.Fatalf("delay = %s, want 90s", clock.delays[0])
	}

	clock.fire(0)
	clock.fireUnconditionally(0)

	if fired != 1 {
		t.Fatalf("onFire calls = %d, want 1", fired)
	}
	if got != activation || got.queue != queue {
		t.Fatal("onFire should receive the armed activation and its queue")
	}
	if scheduler.Pending() != nil {
		t.Fatal("activation should be consumed after firing")
	}
	if scheduler.Cancel(activation) {
		t.Fatal("Cancel() after fire should report false")
	}
}

func TestSchedulerSingleActivation(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(testNow)
	scheduler := newScheduler(clock.now, clock.afterFunc, nil, nil)

	if _, err := scheduler.Schedule(testQueue(t), testNow.Add(time.Hour), nil); err != nil {
		t.Fatalf("first Schedule() error = %v", err)
	}
	_, err := scheduler.Schedule(testQueue(t), testNow.Add(2*time.Hour), nil)
	if !errors.Is(err, domain.ErrActivationPending) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second Schedule() error = %v, want ErrActivationPending", err)
	}
}

func TestSchedulerCancel(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(testNow)
	scheduler := newScheduler(clock.now, clock.afterFunc, nil, nil)

	fired := false
	activation, err := scheduler.Schedule(testQueue(t), testNow.Add(time.Hour), func(*Activation) { fired = true })
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	if !scheduler.Cancel(activation) {
		t.Fatal("Cancel() should report true for an armed activation")
	}
	if scheduler.Cancel(activation) {
		t.Fatal("second Cancel() should be a no-op")
	}
	if !clock.timers[0].stopped {
		t.Fatal("timer should be stopped")
	}

	// A timer that elapsed while Stop raced it must not hand the queue over.
	clock.fireUnconditionally(0)
	if fired {
		t.Fatal("cancelled activation must not fire")
	}

	if _, err := scheduler.Schedule(testQueue(t), testNow.Add(time.Hour), nil); err != nil {
		t.Fatalf("Schedule() after cancel error = %v", err)
	}
}

func TestSchedulerCancelNil(t *testing.T) {
	t.Parallel()

	scheduler := NewScheduler(nil, nil)
	if scheduler.Cancel(nil) {
		t.Fatal("Cancel(nil) should report false")
	}
}

func TestSchedulerRealTimer(t *testing.T) {
	t.Parallel()

	scheduler := NewScheduler(nil, nil)
	done := make(chan *Activation, 1)

	activation, err := scheduler.Schedule(testQueue(t), time.Now().Add(20*time.Millisecond), func(a *Activation) {
		done <- a
	})
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	select {
	case got := <-done:
		if got != activation {
			t.Fatal("fired activation mismatch")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("activation did not fire")
	}
}
