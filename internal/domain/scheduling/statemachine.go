package scheduling

import "fmt"

// legalTransitions is the appointment lifecycle. An appointment always
// starts in scheduled; completed, cancelled and no_show are terminal.
// Reschedules are not transitions: they keep the current state.
var legalTransitions = map[State][]State{
	StateScheduled:  {StateConfirmed, StateInProgress, StateCancelled, StateNoShow},
	StateConfirmed:  {StateInProgress, StateCancelled, StateNoShow},
	StateInProgress: {StateCompleted, StateCancelled},
	StateCompleted:  {},
	StateCancelled:  {},
	StateNoShow:     {},
}

// CanTransition reports whether the lifecycle permits from → to.
func CanTransition(from, to State) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s State) Terminal() bool {
	return len(legalTransitions[s]) == 0
}

// Reschedulable reports whether an appointment in s may be moved to a
// new date/time. Once a visit has started it can no longer move.
func (s State) Reschedulable() bool {
	return s == StateScheduled || s == StateConfirmed
}

// checkTransition validates from → to, returning an error that names
// both states so the caller knows exactly what was refused.
func checkTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: appointment is %s, cannot move to %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// Occupying reports whether an appointment in s blocks its slot.
// Cancelled and no-show appointments free their slot for rebooking.
func (s State) Occupying() bool {
	return s != StateCancelled && s != StateNoShow
}
