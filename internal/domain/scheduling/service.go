package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/clock"
	"github.com/clinic/clinic/internal/platform/notify"
	"github.com/clinic/clinic/pkg/timeofday"
)

// DoctorDirectory is the slice of the doctor domain the booking
// coordinator needs.
type DoctorDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	ledger   Ledger
	hours    HoursStore
	doctors  DoctorDirectory
	clock    clock.Clock
	notifier notify.Notifier
	logger   zerolog.Logger
}

func NewService(ledger Ledger, hours HoursStore, doctors DoctorDirectory, clk clock.Clock, notifier notify.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		ledger:   ledger,
		hours:    hours,
		doctors:  doctors,
		clock:    clk,
		notifier: notifier,
		logger:   logger,
	}
}

// ReasonPastDate marks an empty availability result caused by the
// requested date lying before today.
const ReasonPastDate = "past_date"

// Availability is a point-in-time snapshot of bookable slots. It can go
// stale immediately; Book re-validates and the ledger's uniqueness
// constraint settles any race.
type Availability struct {
	Date     Date                  `json:"date"`
	DoctorID *uuid.UUID            `json:"doctor_id,omitempty"`
	Slots    []timeofday.TimeOfDay `json:"slots"`
	Reason   string                `json:"reason,omitempty"`
}

// effectiveHours returns the per-date override when one exists, the
// clinic default otherwise.
func (s *Service) effectiveHours(ctx context.Context, date Date) (*BusinessHours, error) {
	if h, err := s.hours.GetOverride(ctx, date); err != nil {
		return nil, err
	} else if h != nil {
		return h, nil
	}
	return s.hours.Get(ctx)
}

// AvailableSlots computes the bookable subset for a date: generated
// slots minus occupied ones, minus same-day slots inside the booking
// lead time. Dates before today return an empty set with a reason
// instead of an error.
func (s *Service) AvailableSlots(ctx context.Context, date Date, doctorID *uuid.UUID) (*Availability, error) {
	now := s.clock.Now()
	avail := &Availability{Date: date, DoctorID: doctorID, Slots: []timeofday.TimeOfDay{}}

	if date.Before(DateOf(now)) {
		avail.Reason = ReasonPastDate
		return avail, nil
	}

	h, err := s.effectiveHours(ctx, date)
	if err != nil {
		return nil, err
	}
	candidates, err := GenerateSlots(*h)
	if err != nil {
		return nil, err
	}

	occupied, err := s.ledger.OccupiedTimes(ctx, date, doctorID)
	if err != nil {
		return nil, err
	}
	taken := make(map[timeofday.TimeOfDay]bool, len(occupied))
	for _, t := range occupied {
		taken[t] = true
	}

	var cutoff timeofday.TimeOfDay = -1
	if date.Equal(DateOf(now)) {
		cutoff = timeofday.FromTime(now).Add(h.LeadTimeMinutes)
	}

	for _, slot := range candidates {
		if taken[slot] || slot < cutoff {
			continue
		}
		avail.Slots = append(avail.Slots, slot)
	}
	return avail, nil
}

// BookRequest is a validated booking command. RequestToken, when set,
// makes the call safe to retry: a second request with the same token
// returns the appointment the first one created.
type BookRequest struct {
	DoctorID     uuid.UUID
	Date         Date
	Time         timeofday.TimeOfDay
	PatientRef   string
	RequestToken *string
	Actor        string
}

// Book validates the request against a freshly computed availability
// snapshot and commits the appointment. Two concurrent calls for the
// same doctor/date/time cannot both succeed: the loser gets
// ErrSlotTaken from the ledger's uniqueness constraint.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if req.RequestToken != nil && *req.RequestToken != "" {
		existing, err := s.ledger.GetByRequestToken(ctx, *req.RequestToken)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	exists, err := s.doctors.Exists(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDoctorUnknown, req.DoctorID)
	}

	if err := s.validateSlot(ctx, req.Date, req.Time, req.DoctorID, nil); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	a := &Appointment{
		DoctorID:         req.DoctorID,
		PatientRef:       req.PatientRef,
		Date:             req.Date,
		Time:             req.Time,
		State:            StateScheduled,
		RequestToken:     req.RequestToken,
		CreatedAt:        now,
		LastTransitionAt: now,
	}
	if err := s.ledger.Create(ctx, a); err != nil {
		// Lost the race after the availability check passed. Expected
		// under concurrency, not an operational failure.
		return nil, err
	}
	return a, nil
}

// Reschedule moves an appointment to a new date/time, keeping its
// identity and state. The appointment's own current slot is excluded
// from the occupancy check so moving to the same slot is a no-op, not a
// self-collision.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate Date, newTime timeofday.TimeOfDay, actor string) (*Appointment, error) {
	a, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.State.Reschedulable() {
		return nil, fmt.Errorf("%w: appointment is %s", ErrInvalidState, a.State)
	}

	exclude := &slotKey{date: a.Date, time: a.Time}
	if err := s.validateSlot(ctx, newDate, newTime, a.DoctorID, exclude); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	obs := Observation{
		AppointmentID: a.ID,
		Note:          fmt.Sprintf("rescheduled from %s %s to %s %s", a.Date, a.Time, newDate, newTime),
		Actor:         actor,
		CreatedAt:     now,
	}
	moved, err := s.ledger.Reschedule(ctx, a.ID, newDate, newTime, now, obs)
	if err != nil {
		return nil, err
	}
	if !moved {
		// The row changed state between our read and the update.
		fresh, err := s.ledger.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: appointment is %s", ErrInvalidState, fresh.State)
	}

	a.Date = newDate
	a.Time = newTime
	a.LastTransitionAt = now
	return a, nil
}

// Transition applies a lifecycle state change. Entering in_progress or
// completed hands off to the clinical records system; delivery is one
// way and never blocks or fails the transition.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target State, actor string) (*Appointment, error) {
	a, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(a.State, target); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	obs := Observation{
		AppointmentID: a.ID,
		Note:          transitionNote(target, now),
		Actor:         actor,
		CreatedAt:     now,
	}
	applied, err := s.ledger.Transition(ctx, a.ID, a.State, target, now, obs)
	if err != nil {
		return nil, err
	}
	if !applied {
		fresh, err := s.ledger.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, checkTransition(fresh.State, target)
	}

	a.State = target
	a.LastTransitionAt = now

	if target == StateInProgress || target == StateCompleted {
		s.notifier.AppointmentEvent(ctx, notify.Event{
			AppointmentID: a.ID,
			DoctorID:      a.DoctorID,
			PatientRef:    a.PatientRef,
			Event:         string(target),
			At:            now,
		})
	}
	return a, nil
}

func transitionNote(target State, at time.Time) string {
	switch target {
	case StateInProgress:
		return fmt.Sprintf("consultation started at %s", at.Format(time.RFC3339))
	case StateCompleted:
		return fmt.Sprintf("consultation completed at %s", at.Format(time.RFC3339))
	case StateNoShow:
		return "patient did not arrive"
	case StateCancelled:
		return "appointment cancelled"
	default:
		return fmt.Sprintf("state changed to %s", target)
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.ledger.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	return s.ledger.List(ctx, f, limit, offset)
}

func (s *Service) Observations(ctx context.Context, id uuid.UUID) ([]*Observation, error) {
	if _, err := s.ledger.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.ledger.Observations(ctx, id)
}

// -- Business hours configuration --

func (s *Service) GetHours(ctx context.Context) (*BusinessHours, error) {
	return s.hours.Get(ctx)
}

func (s *Service) SetHours(ctx context.Context, h *BusinessHours) error {
	if err := validateHours(h); err != nil {
		return err
	}
	return s.hours.Set(ctx, h)
}

func (s *Service) SetHoursOverride(ctx context.Context, date Date, h *BusinessHours) error {
	if err := validateHours(h); err != nil {
		return err
	}
	return s.hours.SetOverride(ctx, date, h)
}

func (s *Service) DeleteHoursOverride(ctx context.Context, date Date) error {
	return s.hours.DeleteOverride(ctx, date)
}

func validateHours(h *BusinessHours) error {
	if _, err := GenerateSlots(*h); err != nil {
		return err
	}
	if h.LeadTimeMinutes < 0 {
		return fmt.Errorf("%w: lead time must not be negative", ErrBadConfig)
	}
	return nil
}

// -- slot validation --

type slotKey struct {
	date Date
	time timeofday.TimeOfDay
}

// validateSlot re-checks a requested slot at commit time: the date must
// not be past, the time must be one of the generated slots, outside the
// same-day lead-time cutoff, and unoccupied. exclude removes the
// caller's own current slot from the occupancy check (reschedule).
func (s *Service) validateSlot(ctx context.Context, date Date, t timeofday.TimeOfDay, doctorID uuid.UUID, exclude *slotKey) error {
	now := s.clock.Now()
	if date.Before(DateOf(now)) {
		return fmt.Errorf("%w: %s", ErrPastDate, date)
	}

	h, err := s.effectiveHours(ctx, date)
	if err != nil {
		return err
	}
	candidates, err := GenerateSlots(*h)
	if err != nil {
		return err
	}

	member := false
	for _, slot := range candidates {
		if slot == t {
			member = true
			break
		}
	}
	if !member {
		return fmt.Errorf("%w: %s is not within business hours %s-%s at %d-minute intervals",
			ErrInvalidSlot, t, h.Opens, h.Closes, h.SlotMinutes)
	}

	if date.Equal(DateOf(now)) {
		cutoff := timeofday.FromTime(now).Add(h.LeadTimeMinutes)
		if t < cutoff {
			return fmt.Errorf("%w: %s is less than %d minutes from now", ErrInvalidSlot, t, h.LeadTimeMinutes)
		}
	}

	occupied, err := s.ledger.OccupiedTimes(ctx, date, &doctorID)
	if err != nil {
		return err
	}
	for _, ot := range occupied {
		if exclude != nil && exclude.date.Equal(date) && exclude.time == ot {
			exclude = nil // own slot matches at most once
			continue
		}
		if ot == t {
			return fmt.Errorf("%w: please refresh availability and pick another slot", ErrSlotTaken)
		}
	}
	return nil
}
