package scheduling

import "errors"

// Sentinel errors for the scheduling engine. Handlers map them to HTTP
// statuses with errors.Is; services wrap them with context via fmt.Errorf
// and %w.
var (
	// ErrBadConfig means the business-hours configuration cannot produce
	// slots (opens >= closes, or a non-positive granularity).
	ErrBadConfig = errors.New("invalid business hours configuration")

	// ErrPastDate rejects availability or booking requests for dates
	// before today.
	ErrPastDate = errors.New("date is in the past")

	// ErrInvalidSlot means the requested time is not one of the slots
	// generated from the effective business hours.
	ErrInvalidSlot = errors.New("time is not a bookable slot")

	// ErrSlotTaken means another appointment already occupies the
	// requested doctor/date/time. Expected under concurrency; the caller
	// should refresh availability and pick another slot.
	ErrSlotTaken = errors.New("slot no longer available")

	// ErrNotFound means no appointment with the given id exists.
	ErrNotFound = errors.New("appointment not found")

	// ErrInvalidState rejects operations on appointments in a state that
	// does not permit them (rescheduling a completed appointment).
	ErrInvalidState = errors.New("appointment state does not permit this operation")

	// ErrIllegalTransition rejects a state change the lifecycle table
	// does not allow.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrDoctorUnknown means the doctor directory has no active record
	// for the requested doctor.
	ErrDoctorUnknown = errors.New("unknown doctor")
)
