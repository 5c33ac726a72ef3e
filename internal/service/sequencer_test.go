package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/message-scheduler/internal/domain"
	"github.com/kursadbilgin/message-scheduler/internal/observability"
	"github.com/kursadbilgin/message-scheduler/internal/visibility"
)

type sequencerFixture struct {
	clock     *fakeClock
	repo      *fakeHistoryRepo
	history   *HistoryRecorder
	signal    *visibility.Broadcaster
	sequencer *Sequencer
}

func newSequencerFixture(t *testing.T) *sequencerFixture {
	t.Helper()

	clock := newFakeClock(testNow)
	repo := &fakeHistoryRepo{}
	history := NewHistoryRecorder(context.Background(), repo, nil, nil)
	signal := visibility.NewBroadcaster()
	scheduler := newScheduler(clock.now, clock.afterFunc, nil, nil)

	sequencer, err := NewSequencer(scheduler, history, signal, nil, observability.NewMetrics())
	if err != nil {
		t.Fatalf("NewSequencer() error = %v", err)
	}

	return &sequencerFixture{
		clock:     clock,
		repo:      repo,
		history:   history,
		signal:    signal,
		sequencer: sequencer,
	}
}

func TestNewSequencerRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewSequencer(nil, &HistoryRecorder{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing scheduler")
	}
	if _, err := NewSequencer(NewScheduler(nil, nil), nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing history")
	}
}

func TestSequencerSendNowRoundTrip(t *testing.T) {
	t.Parallel()

	f := newSequencerFixture(t)
	ctx := context.Background()

	if err := f.sequencer.Start(ctx, testQueue(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	item, ok := f.sequencer.Current()
	if !ok || item.PersonalizedMessage != "Hi Alice!" {
		t.Fatalf("Current() = %+v, %v, want Hi Alice!", item, ok)
	}

	record, state, err := f.sequencer.Advance(ctx, domain.ConfirmManual)
	if err != nil {
		t.Fatalf("first Advance() error = %v", err)
	}
	if record.PersonalizedMessage != "Hi Alice!" || state != domain.StateSending {
		t.Fatalf("first Advance() = %q, %s", record.PersonalizedMessage, state)
	}

	_, state, err = f.sequencer.Advance(ctx, domain.ConfirmManual)
	if err != nil {
		t.Fatalf("second Advance() error = %v", err)
	}
	if state != domain.StateDone {
		t.Fatalf("state = %s, want DONE", state)
	}
	if _, ok := f.sequencer.Current(); ok {
		t.Fatal("Current() should be empty after the queue is done")
	}

	entries := f.history.Entries()
	if len(entries) != 2 || entries[0].PersonalizedMessage != "Hi Bob!" || entries[1].PersonalizedMessage != "Hi Alice!" {
		t.Fatalf("history = %+v, want [Hi Bob! Hi Alice!]", entries)
	}

	if _, _, err := f.sequencer.Advance(ctx, domain.ConfirmManual); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Advance() in DONE error = %v, want ErrInvalidTransition", err)
	}

	if err := f.sequencer.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	snap := f.sequencer.Snapshot()
	if snap.State != domain.StateIdle || snap.Total != 0 || snap.QueueID != "" {
		t.Fatalf("snapshot after reset = %+v", snap)
	}
	if f.history.Len() != 2 {
		t.Fatal("reset must not touch history")
	}
}

func TestSequencerInvalidTransitions(t *testing.T) {
	t.Parallel()

	f := newSequencerFixture(t)
	ctx := context.Background()

	if _, _, err := f.sequencer.Advance(ctx, domain.ConfirmManual); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Advance() in IDLE error = %v", err)
	}
	if err := f.sequencer.Cancel(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Cancel() in IDLE error = %v", err)
	}
	if err := f.sequencer.Reset(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Reset() in IDLE error = %v", err)
	}
	if err := f.sequencer.AwaitReturn(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("AwaitReturn() in IDLE error = %v", err)
	}

	if err := f.sequencer.Start(ctx, testQueue(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.sequencer.Start(ctx, testQueue(t)); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Start() while sending error = %v, want conflict", err)
	}
	if _, err := f.sequencer.Schedule(ctx, testQueue(t), testNow.Add(time.Hour)); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Schedule() while sending error = %v", err)
	}
	if err := f.sequencer.Reset(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Reset() while sending error = %v", err)
	}
}

func TestSequencerStartRejectsEmptyQueue(t *testing.T) {
	t.Parallel()

	f := newSequencerFixture(t)
	if err := f.sequencer.Start(context.Background(), nil); !errors.Is(err, domain.ErrEmptyRecipients) {
		t.Fatalf("Start(nil) error = %v", err)
	}
}

func TestSequencerScheduledFireActivatesAtFirstItem(t *testing.T) {
	t.Parallel()

	f := newSequencerFixture(t)
	ctx := context.Background()
	target := testNow.Add(10 * time.Minute)

	activation, err := f.sequencer.Schedule(ctx, testQueue(t), target)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	snap := f.sequencer.Snapshot()
	if snap.State != domain.StateScheduled || snap.ScheduledFor == nil || !snap.ScheduledFor.Equal(target) {
		t.Fatalf("snapshot = %+v, want SCHEDULED for %s", snap, target)
	}
	if snap.QueueID != activation.ID {
		t.Fatalf("queue id = %q, want activation id %q", snap.QueueID, activation.ID)
	}
	if _, ok := f.sequencer.Current(); ok {
		t.Fatal("Current() should be empty while scheduled")
	}

	f.clock.fire(0)
	f.clock.fireUnconditionally(0)

	snap = f.sequencer.Snapshot()
	if snap.State != domain.StateSending || snap.Index != 0 || snap.ScheduledFor != nil {
		t.Fatalf("snapshot after fire = %+v, want SENDING at 0", snap)
	}
	if f.history.Len() != 0 {
		t.Fatal("firing must not write history")
	}
}

func TestSequencerScheduleInPast(t *testing.T) {
	t.Parallel()

	f := newSequencerFixture(t)
	_, err := f.sequencer.Schedule(context.Background(), testQueue(t), testNow.Add(-time.Second))
	if !errors.Is(err, domain.ErrTimeInPast) || !errors.Is(err, domain.ErrScheduling) {
		t.Fatalf("Schedule() error = %v, want ErrTimeInPast", err)
	}
	if got := f.sequencer.State(); got != domain.StateIdle {
		t.Fatalf("state = %s, want IDLE", got)
	}
}

func TestSequencerCancel(t *testing.T) {
	t.Parallel()

	t.Run("from scheduled", func(t *testing.T) {
		t.Parallel()

		f := newSequencerFixture(t)
		ctx := context.Background()
		if _, err := f.sequencer.Schedule(ctx, testQueue(t), testNow.Add(time.Hour)); err != nil {
			t.Fatalf("Schedule() error = %v", err)
		}
		if err := f.sequencer.Cancel(ctx); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if !f.clock.timers[0].stopped {
			t.Fatal("timer should be disarmed")
		}

		f.clock.fireUnconditionally(0)
		if got := f.sequencer.State(); got != domain.StateIdle {
			t.Fatalf("state = %s, want IDLE", got)
		}
	})

	t.Run("from sending", func(t *testing.T) {
		t.Parallel()

		f := newSequencerFixture(t)
		ctx := context.Background()
		if err := f.sequencer.Start(ctx, testQueue(t)); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if _, _, err := f.sequencer.Advance(ctx, domain.ConfirmManual); err != nil {
			t.Fatalf("Advance() error = %v", err)
		}
		if err := f.sequencer.AwaitReturn(); err != nil {
			t.Fatalf("AwaitReturn() error = %v", err)
		}
		if err := f.sequencer.Cancel(ctx); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}

		if got := f.sequencer.State(); got != domain.StateIdle {
			t.Fatalf("state = %s, want IDLE", got)
		}
		if f.history.Len() != 1 {
			t.Fatalf("history = %d, want only the confirmed item", f.history.Len())
		}
		if got := f.signal.Notify(); got != 0 {
			t.Fatalf("Notify() fired %d callbacks, cancel should drop the subscription", got)
		}
		if f.history.Len() != 1 {
			t.Fatal("a late return signal must not record anything")
		}
	})
}

func TestSequencerCancelWinsOverLateFire(t *testing.T) {
	t.Parallel()

	f := newSequencerFixture(t)
	ctx := context.Background()
	if _, err := f.sequencer.Schedule(ctx, testQueue(t), testNow.Add(time.Hour)); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if err := f.sequencer.Cancel(ctx); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := f.sequencer.Start(ctx, testQueue(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, _, err := f.sequencer.Advance(ctx, domain.ConfirmManual); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	f.clock.fireUnconditionally(0)

	snap := f.sequencer.Snapshot()
	if snap.State != domain.StateSending || snap.Index != 1 {
		t.Fatalf("snapshot = %+v, a stale fire must not restart the queue", snap)
	}
}

func TestSequencerReturnSignalAdvancesOnce(t *testing.T) {
	t.Parallel()

	f := newSequencerFixture(t)
	ctx := context.Background()
	if err := f.sequencer.Start(ctx, testQueue(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := f.sequencer.AwaitReturn(); err != nil {
		t.Fatalf("AwaitReturn() error = %v", err)
	}
	if err := f.sequencer.AwaitReturn(); err != nil {
		t.Fatalf("repeated AwaitReturn() error = %v", err)
	}
	if !f.sequencer.Snapshot().AwaitingReturn {
		t.Fatal("snapshot should report awaiting return")
	}

	if got := f.signal.Notify(); got != 1 {
		t.Fatalf("Notify() fired %d callbacks, want 1", got)
	}
	f.signal.Notify()

	snap := f.sequencer.Snapshot()
	if snap.Index != 1 || snap.AwaitingReturn {
		t.Fatalf("snapshot = %+v, want index 1 and not awaiting", snap)
	}
	if f.history.Len() != 1 {
		t.Fatalf("history = %d, want 1", f.history.Len())
	}
}

func TestSequencerManualConfirmDisarmsReturnSignal(t *testing.T) {
	t.Parallel()

	f := newSequencerFixture(t)
	ctx := context.Background()
	if err := f.sequencer.Start(ctx, testQueue(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.sequencer.AwaitReturn(); err != nil {
		t.Fatalf("AwaitReturn() error = %v", err)
	}

	if _, _, err := f.sequencer.Advance(ctx, domain.ConfirmManual); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if got := f.signal.Notify(); got != 0 {
		t.Fatalf("Notify() fired %d callbacks, want 0 after manual confirm", got)
	}
	if f.history.Len() != 1 {
		t.Fatalf("history = %d, the item must be counted once", f.history.Len())
	}
}

func TestSequencerConcurrentReturnsCountOnce(t *testing.T) {
	t.Parallel()

	signal := &capturingSignal{}
	history := NewHistoryRecorder(context.Background(), &fakeHistoryRepo{}, nil, nil)
	sequencer, err := NewSequencer(NewScheduler(nil, nil), history, signal, nil, nil)
	if err != nil {
		t.Fatalf("NewSequencer() error = %v", err)
	}

	ctx := context.Background()
	if err := sequencer.Start(ctx, testQueue(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := sequencer.AwaitReturn(); err != nil {
		t.Fatalf("AwaitReturn() error = %v", err)
	}

	callback := signal.callback(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callback()
		}()
	}
	wg.Wait()

	snap := sequencer.Snapshot()
	if snap.Index != 1 || history.Len() != 1 {
		t.Fatalf("index = %d, history = %d, want one confirmed item", snap.Index, history.Len())
	}
}

func TestSequencerStaleReturnIgnoredAfterRestart(t *testing.T) {
	t.Parallel()

	signal := &capturingSignal{}
	history := NewHistoryRecorder(context.Background(), &fakeHistoryRepo{}, nil, nil)
	sequencer, err := NewSequencer(NewScheduler(nil, nil), history, signal, nil, nil)
	if err != nil {
		t.Fatalf("NewSequencer() error = %v", err)
	}

	ctx := context.Background()
	if err := sequencer.Start(ctx, testQueue(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := sequencer.AwaitReturn(); err != nil {
		t.Fatalf("AwaitReturn() error = %v", err)
	}
	if err := sequencer.Cancel(ctx); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := sequencer.Start(ctx, testQueue(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := sequencer.AwaitReturn(); err != nil {
		t.Fatalf("AwaitReturn() error = %v", err)
	}

	signal.callback(0)()
	if snap := sequencer.Snapshot(); snap.Index != 0 || !snap.AwaitingReturn || history.Len() != 0 {
		t.Fatalf("snapshot = %+v, history = %d, a return armed for the cancelled queue must be ignored", snap, history.Len())
	}

	signal.callback(1)()
	if snap := sequencer.Snapshot(); snap.Index != 1 || history.Len() != 1 {
		t.Fatalf("snapshot = %+v, history = %d, want the current await to confirm", snap, history.Len())
	}
}

func TestSequencerStaleReturnIgnoredForNextItem(t *testing.T) {
	t.Parallel()

	signal := &capturingSignal{}
	history := NewHistoryRecorder(context.Background(), &fakeHistoryRepo{}, nil, nil)
	sequencer, err := NewSequencer(NewScheduler(nil, nil), history, signal, nil, nil)
	if err != nil {
		t.Fatalf("NewSequencer() error = %v", err)
	}

	ctx := context.Background()
	if err := sequencer.Start(ctx, testQueue(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := sequencer.AwaitReturn(); err != nil {
		t.Fatalf("AwaitReturn() error = %v", err)
	}
	if _, _, err := sequencer.Advance(ctx, domain.ConfirmManual); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if err := sequencer.AwaitReturn(); err != nil {
		t.Fatalf("AwaitReturn() error = %v", err)
	}

	signal.callback(0)()
	if snap := sequencer.Snapshot(); snap.Index != 1 || history.Len() != 1 {
		t.Fatalf("snapshot = %+v, history = %d, the first item's return must not confirm the second", snap, history.Len())
	}
}

func TestSequencerReportError(t *testing.T) {
	t.Parallel()

	f := newSequencerFixture(t)
	f.sequencer.ReportError(domain.ErrEmptyTemplate)
	if got := f.sequencer.Snapshot().Error; got != domain.ErrEmptyTemplate.Error() {
		t.Fatalf("error = %q", got)
	}

	if err := f.sequencer.Start(context.Background(), testQueue(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := f.sequencer.Snapshot().Error; got != "" {
		t.Fatalf("error after start = %q, want cleared", got)
	}
}
