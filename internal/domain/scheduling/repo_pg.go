package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/pkg/timeofday"
)

// uniqueViolation is the PostgreSQL error code raised by the partial
// unique index over slot-occupying appointments.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// =========== Ledger ===========

type ledgerPG struct{ pool *pgxpool.Pool }

func NewLedgerPG(pool *pgxpool.Pool) Ledger { return &ledgerPG{pool: pool} }

const apptCols = `id, doctor_id, patient_ref, date, start_minutes, state, request_token, created_at, last_transition_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientRef, &a.Date, &a.Time, &a.State,
		&a.RequestToken, &a.CreatedAt, &a.LastTransitionAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *ledgerPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment (id, doctor_id, patient_ref, date, start_minutes, state, request_token, created_at, last_transition_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)`,
		a.ID, a.DoctorID, a.PatientRef, a.Date, int(a.Time), a.State, a.RequestToken, a.CreatedAt)
	if isUniqueViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func (r *ledgerPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *ledgerPG) GetByRequestToken(ctx context.Context, token string) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE request_token = $1`, token))
}

func (r *ledgerPG) OccupiedTimes(ctx context.Context, date Date, doctorID *uuid.UUID) ([]timeofday.TimeOfDay, error) {
	query := `SELECT start_minutes FROM appointment
		WHERE date = $1 AND state NOT IN ('cancelled','no_show')`
	args := []interface{}{date}
	if doctorID != nil {
		query += ` AND doctor_id = $2`
		args = append(args, *doctorID)
	}
	query += ` ORDER BY start_minutes`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []timeofday.TimeOfDay
	for rows.Next() {
		var mins int
		if err := rows.Scan(&mins); err != nil {
			return nil, err
		}
		times = append(times, timeofday.TimeOfDay(mins))
	}
	return times, rows.Err()
}

func (r *ledgerPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointment WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Date != nil {
		query += fmt.Sprintf(` AND date = $%d`, idx)
		countQuery += fmt.Sprintf(` AND date = $%d`, idx)
		args = append(args, *f.Date)
		idx++
	}
	if f.DoctorID != nil {
		query += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.State != nil {
		query += fmt.Sprintf(` AND state = $%d`, idx)
		countQuery += fmt.Sprintf(` AND state = $%d`, idx)
		args = append(args, *f.State)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY date, start_minutes LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *ledgerPG) Reschedule(ctx context.Context, id uuid.UUID, newDate Date, newTime timeofday.TimeOfDay, at time.Time, obs Observation) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE appointment SET date = $2, start_minutes = $3, last_transition_at = $4
		WHERE id = $1 AND state IN ('scheduled','confirmed')`,
		id, newDate, int(newTime), at)
	if isUniqueViolation(err) {
		return false, ErrSlotTaken
	}
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := insertObservation(ctx, tx, obs); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *ledgerPG) Transition(ctx context.Context, id uuid.UUID, from, to State, at time.Time, obs Observation) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	// Compare-and-set: only applies when the row is still in the state
	// the caller saw. Zero rows means a concurrent transition won.
	tag, err := tx.Exec(ctx, `
		UPDATE appointment SET state = $3, last_transition_at = $4
		WHERE id = $1 AND state = $2`,
		id, from, to, at)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := insertObservation(ctx, tx, obs); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *ledgerPG) ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+` FROM appointment
		WHERE state IN ('scheduled','confirmed')
		  AND date + make_interval(mins => start_minutes) < $1
		ORDER BY date, start_minutes
		LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *ledgerPG) Observations(ctx context.Context, appointmentID uuid.UUID) ([]*Observation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, note, actor, created_at
		FROM appointment_observation
		WHERE appointment_id = $1
		ORDER BY created_at`,
		appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.AppointmentID, &o.Note, &o.Actor, &o.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &o)
	}
	return items, rows.Err()
}

func insertObservation(ctx context.Context, tx pgx.Tx, obs Observation) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO appointment_observation (id, appointment_id, note, actor, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.New(), obs.AppointmentID, obs.Note, obs.Actor, obs.CreatedAt)
	return err
}

// =========== Hours store ===========

type hoursPG struct{ pool *pgxpool.Pool }

func NewHoursPG(pool *pgxpool.Pool) HoursStore { return &hoursPG{pool: pool} }

const hoursCols = `opens_minutes, closes_minutes, slot_minutes, lead_time_minutes`

func scanHours(row pgx.Row) (*BusinessHours, error) {
	var h BusinessHours
	var opens, closes int
	err := row.Scan(&opens, &closes, &h.SlotMinutes, &h.LeadTimeMinutes)
	if err != nil {
		return nil, err
	}
	h.Opens = timeofday.TimeOfDay(opens)
	h.Closes = timeofday.TimeOfDay(closes)
	return &h, nil
}

func (r *hoursPG) Get(ctx context.Context) (*BusinessHours, error) {
	h, err := scanHours(r.pool.QueryRow(ctx, `SELECT `+hoursCols+` FROM business_hours WHERE singleton`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no business hours configured", ErrBadConfig)
	}
	return h, err
}

func (r *hoursPG) Set(ctx context.Context, h *BusinessHours) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_hours (singleton, opens_minutes, closes_minutes, slot_minutes, lead_time_minutes)
		VALUES (TRUE, $1, $2, $3, $4)
		ON CONFLICT (singleton) DO UPDATE SET
			opens_minutes = EXCLUDED.opens_minutes,
			closes_minutes = EXCLUDED.closes_minutes,
			slot_minutes = EXCLUDED.slot_minutes,
			lead_time_minutes = EXCLUDED.lead_time_minutes,
			updated_at = NOW()`,
		int(h.Opens), int(h.Closes), h.SlotMinutes, h.LeadTimeMinutes)
	return err
}

func (r *hoursPG) GetOverride(ctx context.Context, date Date) (*BusinessHours, error) {
	h, err := scanHours(r.pool.QueryRow(ctx,
		`SELECT `+hoursCols+` FROM business_hours_override WHERE date = $1`, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return h, err
}

func (r *hoursPG) SetOverride(ctx context.Context, date Date, h *BusinessHours) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_hours_override (date, opens_minutes, closes_minutes, slot_minutes, lead_time_minutes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE SET
			opens_minutes = EXCLUDED.opens_minutes,
			closes_minutes = EXCLUDED.closes_minutes,
			slot_minutes = EXCLUDED.slot_minutes,
			lead_time_minutes = EXCLUDED.lead_time_minutes`,
		date, int(h.Opens), int(h.Closes), h.SlotMinutes, h.LeadTimeMinutes)
	return err
}

func (r *hoursPG) DeleteOverride(ctx context.Context, date Date) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM business_hours_override WHERE date = $1`, date)
	return err
}
