package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	"github.com/xhdskyprime/rekruitment/pkg/config"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
	"github.com/xhdskyprime/rekruitment/pkg/participant"
)

type applicantRepository interface {
	Create(ctx context.Context, applicant *models.Applicant) error
	FindByID(ctx context.Context, id string) (*models.Applicant, error)
	ExistsByNationalID(ctx context.Context, nationalID string, excludeID string) (bool, error)
	ParticipantNumberTaken(ctx context.Context, number string, excludeID string) (bool, error)
	SetParticipantNumber(ctx context.Context, id, number string) (bool, error)
	NextScopedSequence(ctx context.Context, date time.Time, positionCode string) (int64, error)
	Update(ctx context.Context, applicant *models.Applicant) error
	List(ctx context.Context, filter models.ApplicantFilter) ([]models.Applicant, int, error)
}

type positionCodeResolver interface {
	CodeFor(ctx context.Context, name string) string
}

// ApplicantServiceConfig selects the numbering strategy and registration time zone.
type ApplicantServiceConfig struct {
	NumberingStrategy string
	Location          *time.Location
}

// ApplicantService handles registration, numbering and applicant records.
type ApplicantService struct {
	repo      applicantRepository
	positions positionCodeResolver
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ApplicantServiceConfig
}

// NewApplicantService constructs an ApplicantService.
func NewApplicantService(repo applicantRepository, positions positionCodeResolver, validate *validator.Validate, logger *zap.Logger, cfg ApplicantServiceConfig) *ApplicantService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.NumberingStrategy != config.NumberingScoped {
		cfg.NumberingStrategy = config.NumberingGlobal
	}
	return &ApplicantService{repo: repo, positions: positions, validator: validate, logger: logger, cfg: cfg}
}

// Register creates an applicant with six pending documents and assigns the
// participant number once the storage sequence is known. When numbering fails
// the created applicant is still returned, with a nil participant number.
func (s *ApplicantService) Register(ctx context.Context, req dto.RegisterApplicantRequest) (*models.ApplicantView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	birthDate, _ := time.Parse("2006-01-02", req.BirthDate)

	exists, err := s.repo.ExistsByNationalID(ctx, req.NationalID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check national id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "national id already registered")
	}

	applicant := &models.Applicant{
		NationalID:       req.NationalID,
		FullName:         strings.TrimSpace(req.FullName),
		BirthPlace:       strings.TrimSpace(req.BirthPlace),
		BirthDate:        birthDate,
		Gender:           req.Gender,
		Address:          strings.TrimSpace(req.Address),
		Phone:            strings.TrimSpace(req.Phone),
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		Education:        strings.TrimSpace(req.Education),
		Position:         strings.TrimSpace(req.Position),
		PhotoPath:        req.PhotoPath,
		AttendanceStatus: models.AttendanceAbsent,
	}
	applicant.Documents = models.NewDocumentSlots("")
	for kind, path := range req.Documents {
		if k, ok := models.ParseDocumentKind(string(kind)); ok && path != "" {
			p := path
			applicant.Documents[k.Index()].FilePath = &p
		}
	}

	if err := s.repo.Create(ctx, applicant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register applicant")
	}
	s.logger.Info("applicant registered", zap.String("applicant_id", applicant.ID), zap.Int64("seq", applicant.Sequence))

	// The applicant row is committed at this point. A numbering failure leaves
	// it without a number for EnsureParticipantNumber to fill in later.
	if err := s.assignParticipantNumber(ctx, applicant); err != nil {
		s.logger.Error("participant numbering deferred", zap.String("applicant_id", applicant.ID), zap.Error(err))
	}
	view := models.NewApplicantView(applicant)
	return &view, nil
}

// EnsureParticipantNumber numbers an applicant whose numbering did not complete
// at registration. Applicants that already have a number are returned unchanged.
func (s *ApplicantService) EnsureParticipantNumber(ctx context.Context, id string) (*models.ApplicantView, error) {
	applicant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !applicant.HasParticipantNumber() {
		if err := s.assignParticipantNumber(ctx, applicant); err != nil {
			return nil, err
		}
	}
	view := models.NewApplicantView(applicant)
	return &view, nil
}

func (s *ApplicantService) assignParticipantNumber(ctx context.Context, applicant *models.Applicant) error {
	registeredAt := applicant.CreatedAt.In(s.cfg.Location)
	code := participant.UnknownPositionCode
	if s.positions != nil {
		code = s.positions.CodeFor(ctx, applicant.Position)
	}

	var number string
	switch s.cfg.NumberingStrategy {
	case config.NumberingScoped:
		day := time.Date(registeredAt.Year(), registeredAt.Month(), registeredAt.Day(), 0, 0, 0, 0, time.UTC)
		sequence, err := s.repo.NextScopedSequence(ctx, day, code)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate participant sequence")
		}
		number, err = participant.GenerateScoped(registeredAt, code, sequence)
		if err != nil {
			s.logger.Error("participant sequence exhausted", zap.String("applicant_id", applicant.ID), zap.String("position_code", code), zap.Int64("sequence", sequence))
			return appErrors.Wrap(err, appErrors.ErrSequenceExhausted.Code, appErrors.ErrSequenceExhausted.Status, "participant sequence exhausted for registration date and position")
		}
	default:
		number = participant.Generate(registeredAt, code, applicant.Sequence)
		if taken, err := s.repo.ParticipantNumberTaken(ctx, number, applicant.ID); err != nil {
			s.logger.Warn("participant number collision check failed", zap.Error(err))
		} else if taken {
			s.logger.Warn("participant number already in use", zap.String("participant_number", number), zap.String("applicant_id", applicant.ID))
		}
	}

	set, err := s.repo.SetParticipantNumber(ctx, applicant.ID, number)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store participant number")
	}
	if !set {
		current, err := s.repo.FindByID(ctx, applicant.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload applicant")
		}
		applicant.ParticipantNumber = current.ParticipantNumber
		return nil
	}
	applicant.ParticipantNumber = &number
	return nil
}

// Get returns an applicant with derived status.
func (s *ApplicantService) Get(ctx context.Context, id string) (*models.ApplicantView, error) {
	applicant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	view := models.NewApplicantView(applicant)
	return &view, nil
}

// List returns applicants matching the filter.
func (s *ApplicantService) List(ctx context.Context, filter models.ApplicantFilter) ([]models.ApplicantView, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 500 {
		filter.PageSize = 20
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	applicants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applicants")
	}
	views := make([]models.ApplicantView, len(applicants))
	for i := range applicants {
		views[i] = models.NewApplicantView(&applicants[i])
	}
	return views, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update modifies identity fields. Documents, session, attendance and the
// participant number are left as they are.
func (s *ApplicantService) Update(ctx context.Context, id string, req dto.UpdateApplicantRequest) (*models.ApplicantView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid applicant payload")
	}
	applicant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.NationalID != applicant.NationalID {
		exists, err := s.repo.ExistsByNationalID(ctx, req.NationalID, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check national id")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "national id already registered")
		}
	}
	birthDate, _ := time.Parse("2006-01-02", req.BirthDate)

	applicant.NationalID = req.NationalID
	applicant.FullName = strings.TrimSpace(req.FullName)
	applicant.BirthPlace = strings.TrimSpace(req.BirthPlace)
	applicant.BirthDate = birthDate
	applicant.Gender = req.Gender
	applicant.Address = strings.TrimSpace(req.Address)
	applicant.Phone = strings.TrimSpace(req.Phone)
	applicant.Email = strings.ToLower(strings.TrimSpace(req.Email))
	applicant.Education = strings.TrimSpace(req.Education)
	applicant.Position = strings.TrimSpace(req.Position)
	applicant.PhotoPath = req.PhotoPath

	if err := s.repo.Update(ctx, applicant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update applicant")
	}
	view := models.NewApplicantView(applicant)
	return &view, nil
}

func (s *ApplicantService) load(ctx context.Context, id string) (*models.Applicant, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
	}
	applicant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicant")
	}
	return applicant, nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
