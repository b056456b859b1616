package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for accounts. Lookups return
// an error wrapping apperr.ErrNotFound when no row matches.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByPhone(ctx context.Context, phone string) (*Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, isFirstLogin bool) error
	// List filters by status when status is non-empty.
	List(ctx context.Context, status Status, limit, offset int) ([]*Account, int, error)
}
