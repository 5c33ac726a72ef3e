package domain

// State is the process-wide sending state.
type State string

const (
	StateIdle      State = "IDLE"
	StateScheduled State = "SCHEDULED"
	StateSending   State = "SENDING"
	StateDone      State = "DONE"
)

func (s State) String() string { return string(s) }

var transitions = map[State][]State{
	StateIdle:      {StateScheduled, StateSending},
	StateScheduled: {StateSending, StateIdle},
	StateSending:   {StateSending, StateDone, StateIdle},
	StateDone:      {StateIdle},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ConfirmVia tells how the operator confirmed a queue item.
type ConfirmVia string

const (
	ConfirmManual       ConfirmVia = "manual"
	ConfirmReturnSignal ConfirmVia = "return_signal"
)

func (c ConfirmVia) String() string { return string(c) }
