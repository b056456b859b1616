package profile

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctor table. One per DOCTOR account.
type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	AccountID      uuid.UUID `db:"account_id" json:"account_id"`
	Name           string    `db:"name" json:"name"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	LicenseNumber  *string   `db:"license_number" json:"license_number,omitempty"`
	Department     *string   `db:"department" json:"department,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Patient maps to the patient table. One per PATIENT account.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	AccountID        uuid.UUID  `db:"account_id" json:"account_id"`
	Name             string     `db:"name" json:"name"`
	Age              int        `db:"age" json:"age"`
	Gender           *string    `db:"gender" json:"gender,omitempty"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address          *string    `db:"address" json:"address,omitempty"`
	EmergencyContact *string    `db:"emergency_contact" json:"emergency_contact,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

const dateLayout = "2006-01-02"

// ParseDateOfBirth parses an ISO calendar date. It returns nil for empty or
// malformed input instead of an error.
func ParseDateOfBirth(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// AgeAt returns the number of whole years between dob and now, or 0 when dob
// is nil or in the future.
func AgeAt(dob *time.Time, now time.Time) int {
	if dob == nil {
		return 0
	}
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
