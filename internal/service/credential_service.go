package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
	"github.com/xhdskyprime/rekruitment/pkg/export"
	"github.com/xhdskyprime/rekruitment/pkg/scancode"
	"github.com/xhdskyprime/rekruitment/pkg/storage"
)

// Credential kinds recorded in metrics.
const (
	CredentialRegistration = "registration_card"
	CredentialExam         = "exam_card"
)

const toBeAnnounced = "Akan diumumkan"

type credentialSessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.ExamSession, error)
}

type photoStore interface {
	ReadAll(filename string) ([]byte, error)
}

type codeEncoder interface {
	Line(payload string) (*scancode.Code, error)
	Matrix(payload string) (*scancode.Code, error)
}

type cardRenderer interface {
	Render(card export.Card) ([]byte, error)
}

type linkSigner interface {
	Generate(subject string) (string, time.Time, error)
	Parse(token string) (string, time.Time, error)
}

// CredentialConfig carries presentation settings for rendered cards.
type CredentialConfig struct {
	Organisation string
	APIPrefix    string
}

// CredentialService renders registration and exam cards from current applicant state.
// Nothing is persisted; every request renders again.
type CredentialService struct {
	applicants identifierRepository
	sessions   credentialSessionRepository
	photos     photoStore
	codes      codeEncoder
	renderer   cardRenderer
	signer     linkSigner
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        CredentialConfig
}

// NewCredentialService constructs a CredentialService. photos and signer may be nil.
func NewCredentialService(applicants identifierRepository, sessions credentialSessionRepository, photos photoStore, signer linkSigner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg CredentialConfig) *CredentialService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{
		applicants: applicants,
		sessions:   sessions,
		photos:     photos,
		codes:      scancode.NewEncoder(scancode.Options{}),
		renderer:   export.NewCredentialRenderer(),
		signer:     signer,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// RenderRegistrationCard renders the proof of registration. It has no
// eligibility precondition.
func (s *CredentialService) RenderRegistrationCard(ctx context.Context, applicantID string) (*dto.RenderedDocument, error) {
	if !isUUID(applicantID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
	}
	applicant, err := s.applicants.FindByID(ctx, applicantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicant")
	}

	card := s.baseCard(applicant, "KARTU TANDA PENDAFTARAN")
	card.Notes = []string{
		"Simpan kartu ini sebagai bukti pendaftaran.",
		"Status verifikasi berkas dapat berubah sampai pengumuman resmi.",
	}
	return s.render(applicant, card, CredentialRegistration, "kartu-pendaftaran")
}

// RenderExamCard renders the exam admission card after checking the identity
// proof and the verified status.
func (s *CredentialService) RenderExamCard(ctx context.Context, req dto.ExamCardRequest) (*dto.RenderedDocument, error) {
	applicant, err := s.authorise(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.renderExamCard(ctx, applicant)
}

// IssueExamCardLink checks the identity proof and returns a signed, expiring
// download link for the exam card.
func (s *CredentialService) IssueExamCardLink(ctx context.Context, req dto.ExamCardRequest) (*dto.ExamCardLink, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "exam card links are not configured")
	}
	applicant, err := s.authorise(ctx, req)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(applicant.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign exam card link")
	}
	link := fmt.Sprintf("%s/exam-card/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), url.QueryEscape(token))
	return &dto.ExamCardLink{Token: token, URL: link, ExpiresAt: expiresAt}, nil
}

// RenderExamCardByToken renders the exam card for a signed link. The applicant
// must still be verified at download time.
func (s *CredentialService) RenderExamCardByToken(ctx context.Context, token string) (*dto.RenderedDocument, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "exam card links are not configured")
	}
	applicantID, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "exam card link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid exam card link")
	}
	applicant, err := s.applicants.FindByID(ctx, applicantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicant")
	}
	if !applicant.ExamCardEligible() {
		return nil, appErrors.Clone(appErrors.ErrNotEligible, "exam card is available only for verified applicants")
	}
	return s.renderExamCard(ctx, applicant)
}

func (s *CredentialService) authorise(ctx context.Context, req dto.ExamCardRequest) (*models.Applicant, error) {
	req.Identifier = strings.TrimSpace(req.Identifier)
	req.NationalID = strings.TrimSpace(req.NationalID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam card request")
	}
	applicant, err := resolveIdentifier(ctx, s.applicants, req.Identifier)
	if err != nil {
		return nil, err
	}
	if applicant.NationalID != req.NationalID {
		s.logger.Info("exam card identity mismatch", zap.String("applicant_id", applicant.ID))
		return nil, appErrors.Clone(appErrors.ErrIdentityMismatch, "national id does not match the applicant")
	}
	if !applicant.ExamCardEligible() {
		return nil, appErrors.Clone(appErrors.ErrNotEligible, "exam card is available only for verified applicants")
	}
	return applicant, nil
}

func (s *CredentialService) renderExamCard(ctx context.Context, applicant *models.Applicant) (*dto.RenderedDocument, error) {
	card := s.baseCard(applicant, "KARTU PESERTA UJIAN")
	schedule, err := s.sessionFields(ctx, applicant)
	if err != nil {
		return nil, err
	}
	card.Fields = append(card.Fields, schedule...)
	card.Notes = []string{
		"Hadir 30 menit sebelum ujian dimulai.",
		"Bawa kartu ini dan KTP asli saat registrasi ulang.",
	}
	return s.render(applicant, card, CredentialExam, "kartu-ujian")
}

func (s *CredentialService) sessionFields(ctx context.Context, applicant *models.Applicant) ([]export.CardField, error) {
	tba := []export.CardField{
		{Label: "Sesi", Value: toBeAnnounced},
		{Label: "Tanggal", Value: toBeAnnounced},
		{Label: "Waktu", Value: toBeAnnounced},
		{Label: "Lokasi", Value: toBeAnnounced},
	}
	if applicant.SessionID == nil || *applicant.SessionID == "" {
		return tba, nil
	}
	session, err := s.sessions.FindByID(ctx, *applicant.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("applicant references missing session", zap.String("applicant_id", applicant.ID), zap.String("session_id", *applicant.SessionID))
			return tba, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam session")
	}
	return []export.CardField{
		{Label: "Sesi", Value: session.Name},
		{Label: "Tanggal", Value: session.Date.Format("02-01-2006")},
		{Label: "Waktu", Value: session.StartTime + " - " + session.EndTime},
		{Label: "Lokasi", Value: session.Location},
	}, nil
}

func (s *CredentialService) baseCard(applicant *models.Applicant, title string) export.Card {
	gender := "Laki-laki"
	if applicant.Gender == "P" {
		gender = "Perempuan"
	}
	card := export.Card{
		Organisation: s.cfg.Organisation,
		Title:        title,
		Fields: []export.CardField{
			{Label: "Nama", Value: applicant.FullName},
			{Label: "NIK", Value: applicant.NationalID},
			{Label: "Tempat, Tgl Lahir", Value: applicant.BirthPlace + ", " + applicant.BirthDate.Format("02-01-2006")},
			{Label: "Jenis Kelamin", Value: gender},
			{Label: "Posisi", Value: applicant.Position},
			{Label: "Pendidikan", Value: applicant.Education},
		},
		Photo: s.photo(applicant),
	}
	if applicant.HasParticipantNumber() {
		number := *applicant.ParticipantNumber
		card.ParticipantNumber = number
		card.LineCode = s.encode(applicant.ID, number, s.codes.Line)
		card.MatrixCode = s.encode(applicant.ID, number, s.codes.Matrix)
	}
	return card
}

func (s *CredentialService) photo(applicant *models.Applicant) []byte {
	if applicant.PhotoPath == nil || *applicant.PhotoPath == "" || s.photos == nil {
		return nil
	}
	data, err := s.photos.ReadAll(*applicant.PhotoPath)
	if err != nil {
		s.logger.Warn("applicant photo unavailable", zap.String("applicant_id", applicant.ID), zap.Error(err))
		return nil
	}
	return data
}

func (s *CredentialService) encode(applicantID, number string, fn func(string) (*scancode.Code, error)) []byte {
	code, err := fn(number)
	if err != nil {
		s.logger.Warn("scan code rendering failed", zap.String("applicant_id", applicantID), zap.Error(err))
		return nil
	}
	return code.PNG
}

func (s *CredentialService) render(applicant *models.Applicant, card export.Card, kind, prefix string) (*dto.RenderedDocument, error) {
	content, err := s.renderer.Render(card)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render "+strings.ReplaceAll(kind, "_", " "))
	}
	s.metrics.RecordCredential(kind)
	name := applicant.ID
	if applicant.HasParticipantNumber() {
		name = *applicant.ParticipantNumber
	}
	s.logger.Info("credential rendered", zap.String("applicant_id", applicant.ID), zap.String("kind", kind))
	return &dto.RenderedDocument{Filename: fmt.Sprintf("%s-%s.pdf", prefix, name), ContentType: "application/pdf", Content: content}, nil
}
