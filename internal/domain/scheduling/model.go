package scheduling

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/timeofday"
)

// Date is a calendar date without a time component, serialized as
// "2006-01-02". The clinic runs in a single location, so dates are
// interpreted in the server's local zone.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string     { return d.t.Format(dateLayout) }
func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

// At combines the date with a time of day in loc.
func (d Date) At(tod timeofday.TimeOfDay, loc *time.Location) time.Time {
	y, m, day := d.t.Date()
	return time.Date(y, m, day, tod.Hour(), tod.Minute(), 0, 0, loc)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner so pgx can read DATE columns.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.t, nil
}

// State is the lifecycle state of an appointment.
type State string

const (
	StateScheduled  State = "scheduled"
	StateConfirmed  State = "confirmed"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateNoShow     State = "no_show"
)

// ParseState validates a caller-supplied state string.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateScheduled, StateConfirmed, StateInProgress, StateCompleted, StateCancelled, StateNoShow:
		return State(s), nil
	}
	return "", fmt.Errorf("unknown appointment state %q", s)
}

// Appointment maps to the appointment table. Cancellation is a terminal
// state, never a row deletion, so the booking history stays intact.
type Appointment struct {
	ID               uuid.UUID           `db:"id" json:"id"`
	DoctorID         uuid.UUID           `db:"doctor_id" json:"doctor_id"`
	PatientRef       string              `db:"patient_ref" json:"patient_ref"`
	Date             Date                `db:"date" json:"date"`
	Time             timeofday.TimeOfDay `db:"start_minutes" json:"time"`
	State            State               `db:"state" json:"state"`
	RequestToken     *string             `db:"request_token" json:"request_token,omitempty"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
	LastTransitionAt time.Time           `db:"last_transition_at" json:"last_transition_at"`
}

// StartsAt returns the appointment's scheduled start instant in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	return a.Date.At(a.Time, loc)
}

// Observation is a system-authored note appended to an appointment's
// audit log on reschedules and state transitions.
type Observation struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Note          string    `db:"note" json:"note"`
	Actor         string    `db:"actor" json:"actor"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// BusinessHours configures the bookable day. A row with a date is a
// per-day override; the row without one is the clinic default.
type BusinessHours struct {
	Opens           timeofday.TimeOfDay `db:"opens_minutes" json:"opens"`
	Closes          timeofday.TimeOfDay `db:"closes_minutes" json:"closes"`
	SlotMinutes     int                 `db:"slot_minutes" json:"slot_minutes"`
	LeadTimeMinutes int                 `db:"lead_time_minutes" json:"lead_time_minutes"`
}
