package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/apperr"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/tokenstore"
)

// PlaceholderToken is handed out on a regular login until a real session
// protocol exists.
const PlaceholderToken = "mock-token"

// ResetTokenStore keeps password-reset tokens mapped to account emails.
type ResetTokenStore interface {
	Save(ctx context.Context, token, email string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

// Notifier delivers password-reset emails.
type Notifier interface {
	NotifyPasswordReset(ctx context.Context, to, firstName, token string) error
	NotifyPasswordResetConfirmation(ctx context.Context, to, firstName string) error
}

type Options struct {
	ResetTokenTTL time.Duration
	// DisableResetEmails suppresses both the token and the confirmation email.
	DisableResetEmails bool
}

type Service struct {
	accounts Repository
	hasher   auth.PasswordHasher
	tokens   ResetTokenStore
	notifier Notifier
	opts     Options
	logger   zerolog.Logger
	newToken func() string
}

func NewService(accounts Repository, hasher auth.PasswordHasher, tokens ResetTokenStore, notifier Notifier, opts Options, logger zerolog.Logger) *Service {
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = 30 * time.Minute
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		newToken: func() string { return uuid.New().String() },
	}
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Message                string    `json:"message"`
	Token                  string    `json:"token"`
	RequiresPasswordChange bool      `json:"requires_password_change"`
	UserID                 uuid.UUID `json:"user_id"`
	Username               string    `json:"username"`
	Role                   Role      `json:"role"`
}

var errBadLogin = fmt.Errorf("%w: invalid username or password", apperr.ErrInvalidCredential)

// Login verifies credentials. Accounts still on their first login get an
// empty token and must change their password first.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	a, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errBadLogin
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return nil, errBadLogin
	}
	if a.Status != StatusApproved {
		return nil, fmt.Errorf("%w: account not approved", apperr.ErrInvalidState)
	}

	res := &LoginResult{
		Message:  "Login successful",
		Token:    PlaceholderToken,
		UserID:   a.ID,
		Username: a.Username,
		Role:     a.Role,
	}
	if a.IsFirstLogin {
		res.Message = "First login detected"
		res.Token = ""
		res.RequiresPasswordChange = true
	}
	return res, nil
}

// PasswordChange carries a user-chosen replacement password. Confirm is
// checked only when set.
type PasswordChange struct {
	Current string
	New     string
	Confirm string
}

func validateNewPassword(newPassword, confirm string) error {
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", apperr.ErrValidation, MinPasswordLength)
	}
	if confirm != "" && confirm != newPassword {
		return fmt.Errorf("%w: passwords do not match", apperr.ErrValidation)
	}
	return nil
}

func (s *Service) ChangeFirstLoginPasswordByUsername(ctx context.Context, username string, pc PasswordChange) error {
	a, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	return s.changeFirstLoginPassword(ctx, a, pc)
}

func (s *Service) ChangeFirstLoginPasswordByID(ctx context.Context, id uuid.UUID, pc PasswordChange) error {
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.changeFirstLoginPassword(ctx, a, pc)
}

func (s *Service) changeFirstLoginPassword(ctx context.Context, a *Account, pc PasswordChange) error {
	if !a.IsFirstLogin {
		return fmt.Errorf("%w: password has already been changed", apperr.ErrInvalidState)
	}
	if !s.hasher.Verify(a.PasswordHash, pc.Current) {
		return fmt.Errorf("%w: invalid current password", apperr.ErrInvalidCredential)
	}
	if err := validateNewPassword(pc.New, pc.Confirm); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(pc.New)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, a.ID, hash, false); err != nil {
		return err
	}
	s.logger.Info().Str("account_id", a.ID.String()).Msg("first login password changed")
	return nil
}

// RequestPasswordReset issues a reset token for the account owning email and
// returns it. The token reaches the user only by email, so a delivery
// failure discards it.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	a, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", err
	}

	token := s.newToken()
	if err := s.tokens.Save(ctx, token, a.Email, s.opts.ResetTokenTTL); err != nil {
		return "", err
	}

	if !s.opts.DisableResetEmails {
		if err := s.notifier.NotifyPasswordReset(ctx, a.Email, a.FirstName, token); err != nil {
			_ = s.tokens.Delete(ctx, token)
			return "", fmt.Errorf("send reset email: %w", err)
		}
	}
	s.logger.Info().Str("account_id", a.ID.String()).Bool("email_sent", !s.opts.DisableResetEmails).Msg("password reset requested")
	return token, nil
}

// ResetPassword consumes a reset token. The token is single use.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword, confirm string) error {
	if newPassword != confirm {
		return fmt.Errorf("%w: passwords do not match", apperr.ErrValidation)
	}
	if err := validateNewPassword(newPassword, confirm); err != nil {
		return err
	}

	email, err := s.tokens.Consume(ctx, token)
	if errors.Is(err, tokenstore.ErrTokenNotFound) {
		return fmt.Errorf("%w: invalid or expired reset token", apperr.ErrInvalidCredential)
	}
	if err != nil {
		return err
	}

	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, a.ID, hash, false); err != nil {
		return err
	}

	if !s.opts.DisableResetEmails {
		if err := s.notifier.NotifyPasswordResetConfirmation(ctx, a.Email, a.FirstName); err != nil {
			s.logger.Warn().Err(err).Str("account_id", a.ID.String()).Msg("reset confirmation email not sent")
		}
	}
	s.logger.Info().Str("account_id", a.ID.String()).Msg("password reset")
	return nil
}

// AdminRegistration describes a bootstrap administrator.
type AdminRegistration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

// RegisterAdmin creates an approved ADMIN whose username is the email.
func (s *Service) RegisterAdmin(ctx context.Context, in AdminRegistration) (*Account, error) {
	in.Email = NormalizeEmail(in.Email)
	if in.Email == "" || strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, fmt.Errorf("%w: email, first_name and last_name are required", apperr.ErrValidation)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", apperr.ErrValidation)
	}

	_, err := s.accounts.GetByEmail(ctx, in.Email)
	if err == nil {
		return nil, fmt.Errorf("%w: email already exists", apperr.ErrConflict)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	a := &Account{
		Username:     in.Email,
		PasswordHash: hash,
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Role:         RoleAdmin,
		Status:       StatusApproved,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info().Str("account_id", a.ID.String()).Msg("admin registered")
	return a, nil
}

// ResetAdminPassword sets a new password on an ADMIN account.
func (s *Service) ResetAdminPassword(ctx context.Context, email, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", apperr.ErrValidation)
	}
	a, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if a.Role != RoleAdmin {
		return fmt.Errorf("%w: account is not an admin", apperr.ErrInvalidState)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, a.ID, hash, false); err != nil {
		return err
	}
	s.logger.Info().Str("account_id", a.ID.String()).Msg("admin password reset")
	return nil
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *Service) ListAccounts(ctx context.Context, status Status, limit, offset int) ([]*Account, int, error) {
	if status != "" && status != StatusPending && status != StatusApproved {
		return nil, 0, fmt.Errorf("%w: unknown account status %q", apperr.ErrValidation, status)
	}
	return s.accounts.List(ctx, status, limit, offset)
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
