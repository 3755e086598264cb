package dto

import "github.com/xhdskyprime/rekruitment/internal/models"

// RegisterApplicantRequest is the public registration payload. Uploaded files
// are referenced by path; the upload itself happens elsewhere.
type RegisterApplicantRequest struct {
	NationalID string  `json:"national_id" validate:"required,numeric,len=16"`
	FullName   string  `json:"full_name" validate:"required,max=150"`
	BirthPlace string  `json:"birth_place" validate:"required,max=100"`
	BirthDate  string  `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Gender     string  `json:"gender" validate:"required,oneof=L P"`
	Address    string  `json:"address" validate:"required,max=500"`
	Phone      string  `json:"phone" validate:"required,max=20"`
	Email      string  `json:"email" validate:"required,email"`
	Education  string  `json:"education" validate:"required,max=100"`
	Position   string  `json:"position" validate:"required,max=100"`
	PhotoPath  *string `json:"photo_path" validate:"omitempty,max=255"`

	Documents map[models.DocumentKind]string `json:"documents" validate:"omitempty,dive,keys,document_kind,endkeys,max=255"`
}

// UpdateApplicantRequest changes identity fields. The participant number is not editable.
type UpdateApplicantRequest struct {
	NationalID string  `json:"national_id" validate:"required,numeric,len=16"`
	FullName   string  `json:"full_name" validate:"required,max=150"`
	BirthPlace string  `json:"birth_place" validate:"required,max=100"`
	BirthDate  string  `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Gender     string  `json:"gender" validate:"required,oneof=L P"`
	Address    string  `json:"address" validate:"required,max=500"`
	Phone      string  `json:"phone" validate:"required,max=20"`
	Email      string  `json:"email" validate:"required,email"`
	Education  string  `json:"education" validate:"required,max=100"`
	Position   string  `json:"position" validate:"required,max=100"`
	PhotoPath  *string `json:"photo_path" validate:"omitempty,max=255"`
}

// SetDocumentStatusRequest records a verifier's verdict on one document.
type SetDocumentStatusRequest struct {
	Status string `json:"status" validate:"required,document_status"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// VerificationResult reports the verdict and the global status change it caused.
type VerificationResult struct {
	Applicant models.ApplicantView `json:"applicant"`
	Previous  models.GlobalStatus  `json:"previous_status"`
	Current   models.GlobalStatus  `json:"current_status"`
}

// AssignSessionRequest assigns (or with a null session_id, unassigns) an applicant.
type AssignSessionRequest struct {
	SessionID *string `json:"session_id" validate:"omitempty,uuid"`
	Override  bool    `json:"override"`
}

// SessionAssignment is the outcome of an assignment attempt. Warning is set
// when the session was full and the assignment was not applied.
type SessionAssignment struct {
	Applicant *models.ApplicantView   `json:"applicant,omitempty"`
	Warning   *models.CapacityWarning `json:"warning,omitempty"`
	Applied   bool                    `json:"applied"`
}
