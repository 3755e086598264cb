package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
	"github.com/xhdskyprime/rekruitment/pkg/response"
)

type sessionService interface {
	List(ctx context.Context) ([]models.ExamSessionWithOccupancy, error)
	Get(ctx context.Context, id string) (*models.ExamSession, error)
	Create(ctx context.Context, req dto.ExamSessionRequest) (*models.ExamSession, error)
	Update(ctx context.Context, id string, req dto.ExamSessionRequest) (*models.ExamSession, error)
	Delete(ctx context.Context, id string) error
	Occupancy(ctx context.Context, id string) (*models.SessionOccupancy, error)
	AssignSession(ctx context.Context, applicantID string, sessionID *string, override bool) (*dto.SessionAssignment, error)
}

// SessionHandler manages exam sessions and applicant assignment.
type SessionHandler struct {
	sessions sessionService
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(sessions sessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List godoc
// @Summary List exam sessions with occupancy
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Get godoc
// @Summary Get exam session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Create godoc
// @Summary Create exam session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.ExamSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.ExamSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Update exam session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.ExamSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req dto.ExamSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.sessions.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Delete godoc
// @Summary Delete exam session
// @Description Applicants assigned to the session become unassigned
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Security BearerAuth
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Occupancy godoc
// @Summary Session occupancy
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id}/occupancy [get]
func (h *SessionHandler) Occupancy(c *gin.Context) {
	occupancy, err := h.sessions.Occupancy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occupancy, nil)
}

// Assign godoc
// @Summary Assign applicant to a session
// @Description A null session_id unassigns. A full session returns 409 CAPACITY_WARNING unless override is set by an admin.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body dto.AssignSessionRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /applicants/{id}/session [put]
func (h *SessionHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AssignSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	if req.Override && !claims.Role.CanOverrideCapacity() {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only administrators may override session capacity"))
		return
	}
	result, err := h.sessions.AssignSession(c.Request.Context(), c.Param("id"), req.SessionID, req.Override)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Warning != nil {
		message := fmt.Sprintf("session %s is full (%d/%d)", result.Warning.SessionName, result.Warning.Assigned, result.Warning.Capacity)
		response.ErrorWithData(c, appErrors.Clone(appErrors.ErrCapacityWarning, message), result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
