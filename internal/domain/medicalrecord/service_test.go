package medicalrecord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/domain/profile"
	"github.com/medvault/medvault/internal/platform/apperr"
)

type mockRecordRepo struct {
	records map[uuid.UUID]*Record
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[uuid.UUID]*Record)}
}

func (m *mockRecordRepo) Create(_ context.Context, r *Record) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.records[r.ID] = r
	return nil
}

func (m *mockRecordRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: medical record", apperr.ErrNotFound)
	}
	return r, nil
}

func (m *mockRecordRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var out []*Record
	for _, r := range m.records {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

type mockPatients map[uuid.UUID]*profile.Patient

func (m mockPatients) GetByID(_ context.Context, id uuid.UUID) (*profile.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("%w: patient", apperr.ErrNotFound)
	}
	return p, nil
}

func newTestService() (*Service, uuid.UUID) {
	patientID := uuid.New()
	patients := mockPatients{patientID: {ID: patientID, Name: "Jane Doe"}}
	return NewService(newMockRecordRepo(), patients), patientID
}

func TestCreate(t *testing.T) {
	svc, patientID := newTestService()
	treatment := "rest"
	rec := &Record{PatientID: patientID, Diagnosis: "  influenza ", Treatment: &treatment}

	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if rec.Diagnosis != "influenza" {
		t.Errorf("expected trimmed diagnosis, got %q", rec.Diagnosis)
	}
}

func TestCreate_DiagnosisRequired(t *testing.T) {
	svc, patientID := newTestService()
	err := svc.Create(context.Background(), &Record{PatientID: patientID, Diagnosis: " "})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestCreate_UnknownPatient(t *testing.T) {
	svc, _ := newTestService()
	err := svc.Create(context.Background(), &Record{PatientID: uuid.New(), Diagnosis: "flu"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListByPatient(t *testing.T) {
	svc, patientID := newTestService()
	svc.Create(context.Background(), &Record{PatientID: patientID, Diagnosis: "flu"})
	svc.Create(context.Background(), &Record{PatientID: patientID, Diagnosis: "cold"})

	items, total, err := svc.ListByPatient(context.Background(), patientID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 records, got %d", total)
	}

	if _, _, err := svc.ListByPatient(context.Background(), uuid.New(), 20, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown patient, got %v", err)
	}
}

func TestHandler_CreateAndGet(t *testing.T) {
	svc, patientID := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"diagnosis":"asthma","treatment":"inhaler"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(patientID.String())

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created Record
	json.Unmarshal(rec.Body.Bytes(), &created)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(created.ID.String())
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Record
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Diagnosis != "asthma" || got.Treatment == nil || *got.Treatment != "inhaler" {
		t.Errorf("unexpected record %+v", got)
	}
}

func TestHandler_Create_UnknownPatient(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"diagnosis":"asthma"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Create(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
