package models

// StatusNotification is queued when an applicant's global status changes.
type StatusNotification struct {
	ApplicantID       string       `json:"applicant_id"`
	FullName          string       `json:"full_name"`
	Email             string       `json:"email"`
	ParticipantNumber string       `json:"participant_number,omitempty"`
	Previous          GlobalStatus `json:"previous"`
	Current           GlobalStatus `json:"current"`
}
