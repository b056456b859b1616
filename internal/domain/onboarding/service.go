package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/account"
	"github.com/medvault/medvault/internal/domain/profile"
	"github.com/medvault/medvault/internal/platform/apperr"
	"github.com/medvault/medvault/internal/platform/auth"
)

// Service runs the registration request lifecycle. Decisions commit first
// and notify afterwards: a failed email never undoes an approval, it is
// logged and reported through NotificationSent.
type Service struct {
	uow      UnitOfWork
	requests RequestRepository
	accounts AccountStore
	doctors  DoctorStore
	patients PatientStore
	creds    *account.CredentialGenerator
	hasher   auth.PasswordHasher
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(
	uow UnitOfWork,
	requests RequestRepository,
	accounts AccountStore,
	doctors DoctorStore,
	patients PatientStore,
	creds *account.CredentialGenerator,
	hasher auth.PasswordHasher,
	notifier Notifier,
	logger zerolog.Logger,
) *Service {
	return &Service{
		uow:      uow,
		requests: requests,
		accounts: accounts,
		doctors:  doctors,
		patients: patients,
		creds:    creds,
		hasher:   hasher,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// found converts a lookup result into (exists, err) so NotFound is not an
// error for uniqueness checks.
func found(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Submit validates a public registration form and stores it as PENDING.
func (s *Service) Submit(ctx context.Context, in Submission) (*RegistrationRequest, error) {
	req := &RegistrationRequest{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       account.NormalizeEmail(in.Email),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Role:        account.Role(strings.ToUpper(strings.TrimSpace(in.Role))),
		Status:      StatusPending,
	}

	var missing []string
	for _, f := range [...]struct{ name, value string }{
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
		{"email", req.Email},
		{"phone_number", req.PhoneNumber},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: required fields missing: %s", apperr.ErrValidation, strings.Join(missing, ", "))
	}
	if !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("%w: invalid email %q", apperr.ErrValidation, req.Email)
	}

	switch req.Role {
	case account.RoleDoctor:
		req.Specialization = trimmed(in.Specialization)
		req.LicenseNumber = trimmed(in.LicenseNumber)
		req.Department = trimmed(in.Department)
	case account.RolePatient:
		req.DateOfBirth = trimmed(in.DateOfBirth)
		req.Gender = trimmed(in.Gender)
		req.Address = trimmed(in.Address)
		req.EmergencyContact = trimmed(in.EmergencyContact)
	default:
		return nil, fmt.Errorf("%w: role must be DOCTOR or PATIENT", apperr.ErrValidation)
	}

	if err := s.checkUnique(ctx, req.Email, req.PhoneNumber); err != nil {
		return nil, err
	}

	// The unique constraints still catch a concurrent duplicate submission.
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("request_id", req.ID.String()).
		Str("role", string(req.Role)).
		Msg("registration request submitted")
	return req, nil
}

func (s *Service) checkUnique(ctx context.Context, email, phone string) error {
	checks := []struct {
		lookup func() error
		msg    string
	}{
		{func() error { _, err := s.requests.GetByEmail(ctx, email); return err }, "email already exists"},
		{func() error { _, err := s.accounts.GetByEmail(ctx, email); return err }, "email already exists"},
		{func() error { _, err := s.requests.GetByPhone(ctx, phone); return err }, "phone number already exists"},
		{func() error { _, err := s.accounts.GetByPhone(ctx, phone); return err }, "phone number already exists"},
	}
	for _, c := range checks {
		exists, err := found(c.lookup())
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", apperr.ErrConflict, c.msg)
		}
	}
	return nil
}

// Approve provisions the account and role profile for a PENDING request and
// marks it APPROVED, all in one transaction. The approval email is sent only
// after commit.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, d Decision) (*ApprovalResult, error) {
	var res *ApprovalResult
	err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return fmt.Errorf("%w: request is not pending", apperr.ErrInvalidState)
		}

		username, err := s.creds.GenerateUsername(ctx, req.FirstName, req.LastName)
		if err != nil {
			return err
		}
		password := strings.TrimSpace(d.AdminPassword)
		if password == "" {
			if password, err = s.creds.GeneratePassword(account.GeneratedPasswordLength); err != nil {
				return err
			}
		}
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return err
		}

		acct := &account.Account{
			Username:     username,
			PasswordHash: hash,
			Email:        req.Email,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			PhoneNumber:  req.PhoneNumber,
			Role:         req.Role,
			Status:       account.StatusApproved,
			IsFirstLogin: true,
		}
		if err := s.accounts.Create(ctx, acct); err != nil {
			return err
		}

		res = &ApprovalResult{Account: acct, Username: username, Password: password}
		now := s.now()
		switch req.Role {
		case account.RoleDoctor:
			doc := &profile.Doctor{
				AccountID:      acct.ID,
				Name:           acct.FullName(),
				Specialization: req.Specialization,
				LicenseNumber:  req.LicenseNumber,
				Department:     req.Department,
			}
			if err := s.doctors.Create(ctx, doc); err != nil {
				return err
			}
			res.Doctor = doc
		case account.RolePatient:
			var dob *time.Time
			if req.DateOfBirth != nil {
				dob = profile.ParseDateOfBirth(*req.DateOfBirth)
			}
			pat := &profile.Patient{
				AccountID:        acct.ID,
				Name:             acct.FullName(),
				Age:              profile.AgeAt(dob, now),
				DateOfBirth:      dob,
				Gender:           req.Gender,
				Address:          req.Address,
				EmergencyContact: req.EmergencyContact,
			}
			if err := s.patients.Create(ctx, pat); err != nil {
				return err
			}
			res.Patient = pat
		default:
			return fmt.Errorf("%w: request has unsupported role %q", apperr.ErrInvalidState, req.Role)
		}

		if err := s.requests.MarkProcessed(ctx, req.ID, StatusApproved, d, now); err != nil {
			return err
		}
		req.Status = StatusApproved
		req.AdminNotes = d.AdminNotes
		req.ProcessedBy = d.AdminID
		req.ProcessedAt = &now
		req.UpdatedAt = now
		res.Request = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyApproval(ctx, res.Account.Email, res.Account.FirstName, res.Username, res.Password); err != nil {
		s.logger.Warn().Err(err).Str("request_id", id.String()).Msg("approval committed but notification failed")
	} else {
		res.NotificationSent = true
	}

	s.logger.Info().
		Str("request_id", id.String()).
		Str("account_id", res.Account.ID.String()).
		Str("username", res.Username).
		Bool("notification_sent", res.NotificationSent).
		Msg("registration request approved")
	return res, nil
}

// Reject marks a PENDING request REJECTED and then sends the rejection email.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, d Decision) (*RejectionResult, error) {
	var req *RegistrationRequest
	err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return fmt.Errorf("%w: request is not pending", apperr.ErrInvalidState)
		}
		now := s.now()
		if err := s.requests.MarkProcessed(ctx, req.ID, StatusRejected, d, now); err != nil {
			return err
		}
		req.Status = StatusRejected
		req.AdminNotes = d.AdminNotes
		req.ProcessedBy = d.AdminID
		req.ProcessedAt = &now
		req.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &RejectionResult{Request: req}
	if err := s.notifier.NotifyRejection(ctx, req.Email, req.FirstName); err != nil {
		s.logger.Warn().Err(err).Str("request_id", id.String()).Msg("rejection committed but notification failed")
	} else {
		res.NotificationSent = true
	}
	s.logger.Info().Str("request_id", id.String()).Bool("notification_sent", res.NotificationSent).Msg("registration request rejected")
	return res, nil
}

// CreateDirect creates an approved account without a registration request.
// No Doctor or Patient profile is provisioned on this path.
func (s *Service) CreateDirect(ctx context.Context, in DirectAccount) (*DirectAccountResult, error) {
	role := account.Role(strings.ToUpper(strings.TrimSpace(in.Role)))
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be ADMIN, DOCTOR or PATIENT", apperr.ErrValidation)
	}
	email := account.NormalizeEmail(in.Email)
	firstName, lastName := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if email == "" || firstName == "" || lastName == "" {
		return nil, fmt.Errorf("%w: email, first_name and last_name are required", apperr.ErrValidation)
	}

	_, err := s.accounts.GetByEmail(ctx, email)
	exists, err := found(err)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: email already exists", apperr.ErrConflict)
	}

	username := strings.TrimSpace(in.CustomUsername)
	if username != "" {
		taken, err := s.accounts.UsernameExists(ctx, username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: username %q already exists", apperr.ErrConflict, username)
		}
	} else if username, err = s.creds.GenerateUsername(ctx, firstName, lastName); err != nil {
		return nil, err
	}

	password := strings.TrimSpace(in.CustomPassword)
	if password == "" {
		if password, err = s.creds.GeneratePassword(account.GeneratedPasswordLength); err != nil {
			return nil, err
		}
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	acct := &account.Account{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Role:         role,
		Status:       account.StatusApproved,
		IsFirstLogin: true,
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, err
	}

	evt := s.logger.Info().Str("account_id", acct.ID.String()).Str("role", string(role))
	if in.AdminID != nil {
		evt = evt.Str("admin_id", in.AdminID.String())
	}
	evt.Msg("account created directly")
	return &DirectAccountResult{Account: acct, Username: username, Password: password}, nil
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*RegistrationRequest, error) {
	return s.requests.GetByID(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, status Status, limit, offset int) ([]*RegistrationRequest, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown request status %q", apperr.ErrValidation, status)
	}
	return s.requests.List(ctx, status, limit, offset)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		Pending:  counts[StatusPending],
		Approved: counts[StatusApproved],
		Rejected: counts[StatusRejected],
	}
	st.Total = st.Pending + st.Approved + st.Rejected
	return st, nil
}
