package appointment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/domain/profile"
	"github.com/medvault/medvault/internal/platform/apperr"
)

type PatientLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*profile.Patient, error)
}

type DoctorLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*profile.Doctor, error)
}

type Service struct {
	appointments Repository
	patients     PatientLookup
	doctors      DoctorLookup
}

func NewService(appointments Repository, patients PatientLookup, doctors DoctorLookup) *Service {
	return &Service{appointments: appointments, patients: patients, doctors: doctors}
}

// Create books an appointment between an existing patient and doctor.
// Status defaults to SCHEDULED.
func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil || a.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: patient_id and doctor_id are required", apperr.ErrValidation)
	}
	if a.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled_at is required", apperr.ErrValidation)
	}
	a.Status = Status(strings.ToUpper(strings.TrimSpace(string(a.Status))))
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: unknown appointment status %q", apperr.ErrValidation, a.Status)
	}
	if a.Reason != nil {
		if r := strings.TrimSpace(*a.Reason); r == "" {
			a.Reason = nil
		} else {
			a.Reason = &r
		}
	}

	if _, err := s.patients.GetByID(ctx, a.PatientID); err != nil {
		return err
	}
	if _, err := s.doctors.GetByID(ctx, a.DoctorID); err != nil {
		return err
	}
	return s.appointments.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown appointment status %q", apperr.ErrValidation, f.Status)
	}
	return s.appointments.List(ctx, f, limit, offset)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.appointments.Delete(ctx, id)
}
