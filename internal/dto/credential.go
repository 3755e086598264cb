package dto

import "time"

// ExamCardRequest proves the requester's identity before an exam card is issued.
// Identifier is the participant number or the applicant id.
type ExamCardRequest struct {
	Identifier string `json:"identifier" validate:"required,max=64"`
	NationalID string `json:"national_id" validate:"required,numeric,len=16"`
}

// ExamCardLink is a signed, expiring download link for an exam card.
type ExamCardLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RenderedDocument is a generated file and its download name.
type RenderedDocument struct {
	Filename    string
	ContentType string
	Content     []byte
}
