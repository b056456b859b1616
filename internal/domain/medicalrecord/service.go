package medicalrecord

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/domain/profile"
	"github.com/medvault/medvault/internal/platform/apperr"
)

// PatientLookup resolves the patient a record is filed under.
type PatientLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*profile.Patient, error)
}

type Service struct {
	records  Repository
	patients PatientLookup
}

func NewService(records Repository, patients PatientLookup) *Service {
	return &Service{records: records, patients: patients}
}

func (s *Service) Create(ctx context.Context, rec *Record) error {
	rec.Diagnosis = strings.TrimSpace(rec.Diagnosis)
	if rec.Diagnosis == "" {
		return fmt.Errorf("%w: diagnosis is required", apperr.ErrValidation)
	}
	if _, err := s.patients.GetByID(ctx, rec.PatientID); err != nil {
		return err
	}
	return s.records.Create(ctx, rec)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

// ListByPatient returns NotFound for an unknown patient rather than an
// empty page.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.records.ListByPatient(ctx, patientID, limit, offset)
}
