package models

import (
	"strings"
	"time"
)

// DocumentKind identifies one of the six documents every applicant submits.
type DocumentKind string

const (
	DocumentApplicationLetter DocumentKind = "application_letter"
	DocumentIdentityCard      DocumentKind = "identity_card"
	DocumentDiploma           DocumentKind = "diploma"
	DocumentSTR               DocumentKind = "str"
	DocumentDeclarationLetter DocumentKind = "declaration_letter"
	DocumentSkillCertificate  DocumentKind = "skill_certificate"
)

// DocumentKinds is the fixed, ordered document set.
var DocumentKinds = [DocumentCount]DocumentKind{
	DocumentApplicationLetter,
	DocumentIdentityCard,
	DocumentDiploma,
	DocumentSTR,
	DocumentDeclarationLetter,
	DocumentSkillCertificate,
}

// DocumentCount is the number of document slots per applicant.
const DocumentCount = 6

var documentLabels = map[DocumentKind]string{
	DocumentApplicationLetter: "Surat Lamaran & CV",
	DocumentIdentityCard:      "KTP",
	DocumentDiploma:           "Ijazah & Transkrip",
	DocumentSTR:               "STR",
	DocumentDeclarationLetter: "Surat Pernyataan",
	DocumentSkillCertificate:  "Sertifikat Keahlian",
}

// ParseDocumentKind accepts only the exact lowercase kind identifiers.
func ParseDocumentKind(raw string) (DocumentKind, bool) {
	kind := DocumentKind(raw)
	return kind, kind.Valid()
}

// Valid reports whether the kind belongs to the fixed document set.
func (k DocumentKind) Valid() bool {
	_, ok := documentLabels[k]
	return ok
}

// Label returns the human readable document name.
func (k DocumentKind) Label() string {
	return documentLabels[k]
}

// Index returns the slot position of the kind, or -1.
func (k DocumentKind) Index() int {
	for i, kind := range DocumentKinds {
		if kind == k {
			return i
		}
	}
	return -1
}

// DocumentStatus is the verdict a verifier gives a single document.
type DocumentStatus string

const (
	DocumentPending DocumentStatus = "pending"
	DocumentValid   DocumentStatus = "valid"
	DocumentInvalid DocumentStatus = "invalid"
)

// Valid returns true when the status is a supported value.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentPending, DocumentValid, DocumentInvalid:
		return true
	default:
		return false
	}
}

// DefaultRejectReason is recorded when a document is marked invalid without a reason.
const DefaultRejectReason = "Dokumen tidak sesuai persyaratan"

// DocumentSlot is the verification record for one document of an applicant.
type DocumentSlot struct {
	ApplicantID  string         `db:"applicant_id" json:"-"`
	Kind         DocumentKind   `db:"kind" json:"kind"`
	Status       DocumentStatus `db:"status" json:"status"`
	RejectReason *string        `db:"reject_reason" json:"reject_reason,omitempty"`
	VerifiedBy   *string        `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt   *time.Time     `db:"verified_at" json:"verified_at,omitempty"`
	FilePath     *string        `db:"file_path" json:"file_path,omitempty"`
}

// Apply moves the slot to status, maintaining the reject reason and verifier stamp.
// The reason is cleared whenever the slot is not invalid.
func (d *DocumentSlot) Apply(status DocumentStatus, reason string, verifier string, at time.Time) {
	d.Status = status
	if status == DocumentInvalid {
		r := strings.TrimSpace(reason)
		if r == "" {
			r = DefaultRejectReason
		}
		d.RejectReason = &r
	} else {
		d.RejectReason = nil
	}
	v := verifier
	d.VerifiedBy = &v
	ts := at
	d.VerifiedAt = &ts
}
