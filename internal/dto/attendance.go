package dto

import "github.com/xhdskyprime/rekruitment/internal/models"

// CheckInRequest carries the scanned or typed identifier.
type CheckInRequest struct {
	Identifier string `json:"identifier" validate:"required,max=64"`
}

// CheckInResult reports the attendance transition. AlreadyPresent is true when
// the applicant had been checked in before; the original timestamp is kept.
type CheckInResult struct {
	Applicant      models.ApplicantView `json:"applicant"`
	AlreadyPresent bool                 `json:"already_present"`
}

// ResetAttendanceResult reports how many applicants were reset.
type ResetAttendanceResult struct {
	Reset int64 `json:"reset"`
}

// AttendanceExportFormat selects the roster export encoding.
type AttendanceExportFormat string

const (
	ExportCSV AttendanceExportFormat = "csv"
	ExportPDF AttendanceExportFormat = "pdf"
)
