package onboarding

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/domain/account"
	"github.com/medvault/medvault/internal/domain/profile"
)

// RequestRepository defines the persistence interface for registration
// requests. Lookups wrap apperr.ErrNotFound when nothing matches.
type RequestRepository interface {
	Create(ctx context.Context, r *RegistrationRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*RegistrationRequest, error)
	GetByEmail(ctx context.Context, email string) (*RegistrationRequest, error)
	GetByPhone(ctx context.Context, phone string) (*RegistrationRequest, error)
	// List returns newest first, filtered by status when non-empty.
	List(ctx context.Context, status Status, limit, offset int) ([]*RegistrationRequest, int, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	// MarkProcessed moves a PENDING request to status. A request that is no
	// longer PENDING yields apperr.ErrInvalidState and no write.
	MarkProcessed(ctx context.Context, id uuid.UUID, status Status, d Decision, at time.Time) error
}

// AccountStore is the part of the account repository onboarding writes to.
type AccountStore interface {
	Create(ctx context.Context, a *account.Account) error
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	GetByPhone(ctx context.Context, phone string) (*account.Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type DoctorStore interface {
	Create(ctx context.Context, d *profile.Doctor) error
}

type PatientStore interface {
	Create(ctx context.Context, p *profile.Patient) error
}

// UnitOfWork runs fn in one transaction; stores called with the ctx passed
// to fn take part in it.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier delivers decision emails.
type Notifier interface {
	NotifyApproval(ctx context.Context, to, firstName, username, password string) error
	NotifyRejection(ctx context.Context, to, firstName string) error
}
