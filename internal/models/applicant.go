package models

import "time"

// GlobalStatus is the applicant-level verdict derived from the six document slots.
type GlobalStatus string

const (
	StatusPending  GlobalStatus = "pending"
	StatusVerified GlobalStatus = "verified"
	StatusRejected GlobalStatus = "rejected"
)

// Valid returns true when the status is a supported value.
func (s GlobalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	default:
		return false
	}
}

// AggregateStatus derives the global status from the slot statuses.
// Any invalid slot rejects; all six valid verifies; anything else is pending.
func AggregateStatus(statuses [DocumentCount]DocumentStatus) GlobalStatus {
	valid := 0
	for _, s := range statuses {
		switch s {
		case DocumentInvalid:
			return StatusRejected
		case DocumentValid:
			valid++
		}
	}
	if valid == DocumentCount {
		return StatusVerified
	}
	return StatusPending
}

// AttendanceStatus records whether the applicant showed up for the exam.
type AttendanceStatus string

const (
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendancePresent AttendanceStatus = "present"
)

// Applicant is a candidate's full record.
type Applicant struct {
	ID                string           `db:"id" json:"id"`
	Sequence          int64            `db:"seq" json:"-"`
	ParticipantNumber *string          `db:"participant_number" json:"participant_number,omitempty"`
	NationalID        string           `db:"national_id" json:"national_id"`
	FullName          string           `db:"full_name" json:"full_name"`
	BirthPlace        string           `db:"birth_place" json:"birth_place"`
	BirthDate         time.Time        `db:"birth_date" json:"birth_date"`
	Gender            string           `db:"gender" json:"gender"`
	Address           string           `db:"address" json:"address"`
	Phone             string           `db:"phone" json:"phone"`
	Email             string           `db:"email" json:"email"`
	Education         string           `db:"education" json:"education"`
	Position          string           `db:"position" json:"position"`
	PhotoPath         *string          `db:"photo_path" json:"photo_path,omitempty"`
	SessionID         *string          `db:"session_id" json:"session_id,omitempty"`
	AttendanceStatus  AttendanceStatus `db:"attendance_status" json:"attendance_status"`
	AttendedAt        *time.Time       `db:"attended_at" json:"attended_at,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`

	Documents []DocumentSlot `db:"-" json:"documents"`
}

// Slot returns the slot for kind, or nil when the applicant has none loaded.
func (a *Applicant) Slot(kind DocumentKind) *DocumentSlot {
	for i := range a.Documents {
		if a.Documents[i].Kind == kind {
			return &a.Documents[i]
		}
	}
	return nil
}

// DocumentStatuses returns the slot statuses in canonical order. Missing slots count as pending.
func (a *Applicant) DocumentStatuses() [DocumentCount]DocumentStatus {
	var statuses [DocumentCount]DocumentStatus
	for i, kind := range DocumentKinds {
		statuses[i] = DocumentPending
		if slot := a.Slot(kind); slot != nil && slot.Status.Valid() {
			statuses[i] = slot.Status
		}
	}
	return statuses
}

// Status recomputes the global status from the current slots.
func (a *Applicant) Status() GlobalStatus {
	return AggregateStatus(a.DocumentStatuses())
}

// ExamCardEligible reports whether an exam card may be rendered.
func (a *Applicant) ExamCardEligible() bool {
	return a.Status() == StatusVerified
}

// HasParticipantNumber reports whether numbering already ran for the applicant.
func (a *Applicant) HasParticipantNumber() bool {
	return a.ParticipantNumber != nil && *a.ParticipantNumber != ""
}

// NewDocumentSlots returns the six pending slots a new applicant starts with.
func NewDocumentSlots(applicantID string) []DocumentSlot {
	slots := make([]DocumentSlot, DocumentCount)
	for i, kind := range DocumentKinds {
		slots[i] = DocumentSlot{ApplicantID: applicantID, Kind: kind, Status: DocumentPending}
	}
	return slots
}

// ApplicantFilter encapsulates allowed search parameters for listing applicants.
type ApplicantFilter struct {
	Search     string
	Position   string
	Status     *GlobalStatus
	SessionID  string
	Attendance *AttendanceStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// ApplicantView is the API representation of an applicant with derived fields.
type ApplicantView struct {
	Applicant
	GlobalStatus     GlobalStatus `json:"global_status"`
	ExamCardEligible bool         `json:"exam_card_eligible"`
}

// NewApplicantView computes the derived fields for a response.
func NewApplicantView(a *Applicant) ApplicantView {
	status := a.Status()
	return ApplicantView{Applicant: *a, GlobalStatus: status, ExamCardEligible: status == StatusVerified}
}
