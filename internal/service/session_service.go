package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	"github.com/xhdskyprime/rekruitment/internal/repository"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context) ([]models.ExamSessionWithOccupancy, error)
	FindByID(ctx context.Context, id string) (*models.ExamSession, error)
	CountAssigned(ctx context.Context, id string) (int, error)
	Create(ctx context.Context, session *models.ExamSession) error
	Update(ctx context.Context, session *models.ExamSession) error
	Delete(ctx context.Context, id string) error
}

type sessionAssignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Applicant, error)
	AssignSession(ctx context.Context, applicantID, sessionID string, admit func(session models.ExamSession, occupied int) bool) (*repository.AssignSessionResult, error)
	ClearSession(ctx context.Context, applicantID string) error
}

// SessionService manages exam sessions and capacity-checked assignment.
type SessionService struct {
	sessions   sessionRepository
	applicants sessionAssignmentRepository
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions sessionRepository, applicants sessionAssignmentRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{sessions: sessions, applicants: applicants, metrics: metrics, validator: validate, logger: logger}
}

// List returns sessions with their current occupancy.
func (s *SessionService) List(ctx context.Context) ([]models.ExamSessionWithOccupancy, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*models.ExamSession, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// Create adds a new exam session.
func (s *SessionService) Create(ctx context.Context, req dto.ExamSessionRequest) (*models.ExamSession, error) {
	session, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// Update replaces the session details. Lowering the capacity below the current
// occupancy is allowed; nobody is moved out.
func (s *SessionService) Update(ctx context.Context, id string, req dto.ExamSessionRequest) (*models.ExamSession, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	session, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	session.ID = existing.ID
	session.CreatedAt = existing.CreatedAt
	if err := s.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	return session, nil
}

// Delete removes a session and unassigns its applicants.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

// Occupancy reports assigned, capacity and remaining seats for a session.
func (s *SessionService) Occupancy(ctx context.Context, id string) (*models.SessionOccupancy, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	assigned, err := s.sessions.CountAssigned(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count session occupancy")
	}
	occupancy := &models.SessionOccupancy{SessionID: id, Assigned: assigned, Capacity: session.Capacity}
	if !session.Unlimited() {
		remaining := session.Capacity - assigned
		if remaining < 0 {
			remaining = 0
		}
		occupancy.Remaining = &remaining
	}
	return occupancy, nil
}

// AssignSession assigns the applicant to sessionID, or unassigns when sessionID
// is nil. Without override a full session yields a CapacityWarning and nothing
// changes. Re-assigning to the current session always succeeds.
func (s *SessionService) AssignSession(ctx context.Context, applicantID string, sessionID *string, override bool) (*dto.SessionAssignment, error) {
	if !isUUID(applicantID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
	}

	if sessionID == nil || strings.TrimSpace(*sessionID) == "" {
		if err := s.applicants.ClearSession(ctx, applicantID); err != nil {
			return nil, s.assignError(err, "applicant not found")
		}
		s.metrics.RecordSessionAssignment(OutcomeAssignUnassigned)
		return s.assignmentResult(ctx, applicantID)
	}

	target := strings.TrimSpace(*sessionID)
	if !isUUID(target) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	result, err := s.applicants.AssignSession(ctx, applicantID, target, func(session models.ExamSession, occupied int) bool {
		return override || session.HasRoom(occupied)
	})
	if err != nil {
		return nil, s.assignError(err, "session or applicant not found")
	}

	if !result.Applied {
		warning := &models.CapacityWarning{
			Assigned:    result.Occupied,
			Capacity:    result.Session.Capacity,
			SessionName: result.Session.Name,
		}
		s.metrics.RecordSessionAssignment(OutcomeAssignWarning)
		s.logger.Info("session capacity reached",
			zap.String("applicant_id", applicantID),
			zap.String("session_id", target),
			zap.Int("assigned", warning.Assigned),
			zap.Int("capacity", warning.Capacity),
		)
		return &dto.SessionAssignment{Warning: warning}, nil
	}

	if override && !result.Session.HasRoom(result.Occupied) {
		s.metrics.RecordSessionAssignment(OutcomeAssignOverride)
		s.logger.Warn("session capacity overridden",
			zap.String("applicant_id", applicantID),
			zap.String("session_id", target),
			zap.Int("assigned", result.Occupied+1),
			zap.Int("capacity", result.Session.Capacity),
		)
	} else {
		s.metrics.RecordSessionAssignment(OutcomeAssignAssigned)
	}
	return s.assignmentResult(ctx, applicantID)
}

func (s *SessionService) assignmentResult(ctx context.Context, applicantID string) (*dto.SessionAssignment, error) {
	applicant, err := s.applicants.FindByID(ctx, applicantID)
	if err != nil {
		return nil, s.assignError(err, "applicant not found")
	}
	view := models.NewApplicantView(applicant)
	return &dto.SessionAssignment{Applicant: &view, Applied: true}, nil
}

func (s *SessionService) assignError(err error, notFound string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign session")
}

func (s *SessionService) fromRequest(req dto.ExamSessionRequest) (*models.ExamSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	start, _ := time.Parse("15:04", req.StartTime)
	end, _ := time.Parse("15:04", req.EndTime)
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	return &models.ExamSession{
		Name:      strings.TrimSpace(req.Name),
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Location:  strings.TrimSpace(req.Location),
		Capacity:  req.Capacity,
	}, nil
}
