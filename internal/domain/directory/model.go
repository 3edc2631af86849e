// Package directory maintains the clinic's doctor roster. The booking
// coordinator consults it before committing an appointment.
package directory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound means no doctor with the given id exists.
var ErrNotFound = errors.New("doctor not found")

// Doctor maps to the doctor table. Doctors are deactivated, never
// deleted, so past appointments keep a valid reference.
type Doctor struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Specialty string    `db:"specialty" json:"specialty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
