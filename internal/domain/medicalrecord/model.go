package medicalrecord

import (
	"time"

	"github.com/google/uuid"
)

// Record maps to the medical_record table.
type Record struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Diagnosis string    `db:"diagnosis" json:"diagnosis"`
	Treatment *string   `db:"treatment" json:"treatment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
