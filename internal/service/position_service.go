package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
	"github.com/xhdskyprime/rekruitment/pkg/participant"
)

const positionCodeCachePrefix = "position_code:"

type positionRepository interface {
	List(ctx context.Context) ([]models.Position, error)
	FindByName(ctx context.Context, name string) (*models.Position, error)
	ExistsByNameOrCode(ctx context.Context, name, code string) (bool, error)
	Create(ctx context.Context, position *models.Position) error
}

// PositionService manages positions and resolves their numbering codes.
type PositionService struct {
	repo      positionRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPositionService constructs a PositionService. cache may be nil.
func NewPositionService(repo positionRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PositionService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns all positions.
func (s *PositionService) List(ctx context.Context) ([]models.Position, error) {
	positions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list positions")
	}
	return positions, nil
}

// Create registers a new position with a unique name and code.
func (s *PositionService) Create(ctx context.Context, req dto.CreatePositionRequest) (*models.Position, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid position payload")
	}
	code := participant.NormalizeCode(strings.TrimSpace(req.Code))
	if code == participant.UnknownPositionCode {
		return nil, appErrors.Clone(appErrors.ErrValidation, "position code must be 01-99")
	}
	exists, err := s.repo.ExistsByNameOrCode(ctx, req.Name, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check position")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "position name or code already exists")
	}
	position := &models.Position{Name: strings.TrimSpace(req.Name), Code: code}
	if err := s.repo.Create(ctx, position); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create position")
	}
	s.cache.Invalidate(ctx, positionCodeCachePrefix+"*")
	return position, nil
}

// CodeFor resolves the 2-digit code for a position name. Lookup failures never
// block numbering: they yield participant.UnknownPositionCode.
func (s *PositionService) CodeFor(ctx context.Context, name string) string {
	key := positionCodeCachePrefix + strings.ToLower(strings.TrimSpace(name))
	var cached string
	if s.cache.Get(ctx, key, &cached) {
		return participant.NormalizeCode(cached)
	}

	position, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("position code lookup failed", zap.String("position", name), zap.Error(err))
			return participant.UnknownPositionCode
		}
		s.logger.Info("position has no code", zap.String("position", name))
		return participant.UnknownPositionCode
	}
	code := participant.NormalizeCode(position.Code)
	s.cache.Set(ctx, key, code, 0)
	return code
}
