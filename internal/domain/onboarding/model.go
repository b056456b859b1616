package onboarding

import (
	"time"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/domain/account"
	"github.com/medvault/medvault/internal/domain/profile"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// RegistrationRequest maps to the registration_request table. Status moves
// from PENDING to APPROVED or REJECTED exactly once.
type RegistrationRequest struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	FirstName   string       `db:"first_name" json:"first_name"`
	LastName    string       `db:"last_name" json:"last_name"`
	Email       string       `db:"email" json:"email"`
	PhoneNumber string       `db:"phone_number" json:"phone_number"`
	Role        account.Role `db:"role" json:"role"`
	Status      Status       `db:"status" json:"status"`

	// DOCTOR only
	Specialization *string `db:"specialization" json:"specialization,omitempty"`
	LicenseNumber  *string `db:"license_number" json:"license_number,omitempty"`
	Department     *string `db:"department" json:"department,omitempty"`

	// PATIENT only. DateOfBirth is kept as submitted.
	DateOfBirth      *string `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender           *string `db:"gender" json:"gender,omitempty"`
	Address          *string `db:"address" json:"address,omitempty"`
	EmergencyContact *string `db:"emergency_contact" json:"emergency_contact,omitempty"`

	AdminNotes  *string    `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	ProcessedBy *uuid.UUID `db:"processed_by" json:"processed_by,omitempty"`
}

// Submission is the public registration form.
type Submission struct {
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Email            string  `json:"email"`
	PhoneNumber      string  `json:"phone_number"`
	Role             string  `json:"role"`
	Specialization   *string `json:"specialization"`
	LicenseNumber    *string `json:"license_number"`
	Department       *string `json:"department"`
	DateOfBirth      *string `json:"date_of_birth"`
	Gender           *string `json:"gender"`
	Address          *string `json:"address"`
	EmergencyContact *string `json:"emergency_contact"`
}

// Decision carries the admin side of an approval or rejection.
type Decision struct {
	AdminID    *uuid.UUID `json:"admin_id"`
	AdminNotes *string    `json:"admin_notes"`
	// AdminPassword replaces the generated password when non-blank. Ignored
	// on rejection.
	AdminPassword string `json:"admin_password"`
}

// ApprovalResult holds the only plaintext copy of the generated password.
type ApprovalResult struct {
	Request          *RegistrationRequest `json:"request"`
	Account          *account.Account     `json:"account"`
	Doctor           *profile.Doctor      `json:"doctor,omitempty"`
	Patient          *profile.Patient     `json:"patient,omitempty"`
	Username         string               `json:"generated_username"`
	Password         string               `json:"generated_password"`
	NotificationSent bool                 `json:"notification_sent"`
}

type RejectionResult struct {
	Request          *RegistrationRequest `json:"request"`
	NotificationSent bool                 `json:"notification_sent"`
}

// DirectAccount is an admin-created account that skips the request queue.
type DirectAccount struct {
	Role           string     `json:"role"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	PhoneNumber    string     `json:"phone_number"`
	CustomUsername string     `json:"custom_username"`
	CustomPassword string     `json:"custom_password"`
	AdminID        *uuid.UUID `json:"admin_id"`
}

type DirectAccountResult struct {
	Account  *account.Account `json:"account"`
	Username string           `json:"username"`
	Password string           `json:"password"`
}

type Stats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}
