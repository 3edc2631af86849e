package directory

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the doctor roster store.
type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Doctor, int, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
