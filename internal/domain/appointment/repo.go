package appointment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// List returns the earliest scheduled first.
	List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
	// Delete wraps apperr.ErrNotFound when no row matched id.
	Delete(ctx context.Context, id uuid.UUID) error
}
