package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
)

type verificationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Applicant, error)
	SaveDocument(ctx context.Context, slot *models.DocumentSlot) error
}

type statusChangeNotifier interface {
	NotifyStatusChange(ctx context.Context, notification models.StatusNotification)
}

// VerificationService records per-document verdicts and derives the global status.
type VerificationService struct {
	repo      verificationRepository
	notifier  statusChangeNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewVerificationService constructs a VerificationService. notifier and metrics may be nil.
func NewVerificationService(repo verificationRepository, notifier statusChangeNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *VerificationService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{repo: repo, notifier: notifier, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// SetDocumentStatus applies a verdict to one document slot. Any transition is
// allowed, including back to pending. The session assignment is never touched.
func (s *VerificationService) SetDocumentStatus(ctx context.Context, applicantID, rawKind string, req dto.SetDocumentStatusRequest, verifier string) (*dto.VerificationResult, error) {
	kind, ok := models.ParseDocumentKind(rawKind)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidDocumentKind, "unknown document kind "+rawKind)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document status payload")
	}
	if !isUUID(applicantID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
	}

	applicant, err := s.repo.FindByID(ctx, applicantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicant")
	}

	previous := applicant.Status()
	slot := applicant.Slot(kind)
	if slot == nil {
		applicant.Documents = append(applicant.Documents, models.DocumentSlot{ApplicantID: applicant.ID, Kind: kind, Status: models.DocumentPending})
		slot = &applicant.Documents[len(applicant.Documents)-1]
	}
	slot.Apply(models.DocumentStatus(req.Status), req.Reason, verifier, s.now().UTC())

	if err := s.repo.SaveDocument(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document status")
	}

	applicant, err = s.repo.FindByID(ctx, applicantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload applicant")
	}
	current := applicant.Status()

	s.metrics.RecordVerification(string(kind), req.Status, string(previous), string(current))
	s.logger.Info("document verified",
		zap.String("applicant_id", applicant.ID),
		zap.String("kind", string(kind)),
		zap.String("status", req.Status),
		zap.String("verifier", verifier),
		zap.String("global_status", string(current)),
	)

	if previous != current && current != models.StatusPending && s.notifier != nil {
		notification := models.StatusNotification{
			ApplicantID: applicant.ID,
			FullName:    applicant.FullName,
			Email:       applicant.Email,
			Previous:    previous,
			Current:     current,
		}
		if applicant.ParticipantNumber != nil {
			notification.ParticipantNumber = *applicant.ParticipantNumber
		}
		s.notifier.NotifyStatusChange(ctx, notification)
	}

	return &dto.VerificationResult{
		Applicant: models.NewApplicantView(applicant),
		Previous:  previous,
		Current:   current,
	}, nil
}
