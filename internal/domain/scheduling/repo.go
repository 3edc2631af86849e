package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/timeofday"
)

// ListFilter narrows appointment listings.
type ListFilter struct {
	Date     *Date
	DoctorID *uuid.UUID
	State    *State
}

// Ledger is the authoritative store of appointment occupancy. All
// mutation goes through it; conflicting writes on the same
// (doctor, date, time) are serialized by a uniqueness constraint over
// slot-occupying states, and state changes use a compare-and-set guard
// so concurrent transitions cannot both apply.
type Ledger interface {
	// Create inserts a new appointment. Returns ErrSlotTaken when
	// another occupying appointment already holds the tuple.
	Create(ctx context.Context, a *Appointment) error

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// GetByRequestToken returns the appointment created by an earlier
	// request with the same client token, or ErrNotFound.
	GetByRequestToken(ctx context.Context, token string) (*Appointment, error)

	// OccupiedTimes returns the start times of slot-occupying
	// appointments on date, optionally limited to one doctor.
	OccupiedTimes(ctx context.Context, date Date, doctorID *uuid.UUID) ([]timeofday.TimeOfDay, error)

	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error)

	// Reschedule moves the appointment to a new date/time and appends
	// the observation in one transaction. Only scheduled/confirmed rows
	// match; zero rows updated is reported as moved=false so the caller
	// can distinguish a lost state race from a missing row. A collision
	// with another occupying appointment returns ErrSlotTaken.
	Reschedule(ctx context.Context, id uuid.UUID, newDate Date, newTime timeofday.TimeOfDay, at time.Time, obs Observation) (moved bool, err error)

	// Transition applies from → to with a compare-and-set on the current
	// state, appending the observation in the same transaction. Returns
	// applied=false when the row was no longer in from (concurrent
	// transition won); the appointment itself is untouched in that case.
	Transition(ctx context.Context, id uuid.UUID, from, to State, at time.Time, obs Observation) (applied bool, err error)

	// ListOverdue returns scheduled/confirmed appointments whose start
	// instant is before cutoff, for the sweeper.
	ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]*Appointment, error)

	Observations(ctx context.Context, appointmentID uuid.UUID) ([]*Observation, error)
}

// HoursStore holds the clinic's business-hours configuration: one
// default row plus optional per-date overrides.
type HoursStore interface {
	Get(ctx context.Context) (*BusinessHours, error)
	Set(ctx context.Context, h *BusinessHours) error

	// GetOverride returns the override for date, or (nil, nil) when the
	// default applies.
	GetOverride(ctx context.Context, date Date) (*BusinessHours, error)
	SetOverride(ctx context.Context, date Date, h *BusinessHours) error
	DeleteOverride(ctx context.Context, date Date) error
}
