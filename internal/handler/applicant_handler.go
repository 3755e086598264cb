package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
	"github.com/xhdskyprime/rekruitment/pkg/response"
)

type applicantService interface {
	Register(ctx context.Context, req dto.RegisterApplicantRequest) (*models.ApplicantView, error)
	EnsureParticipantNumber(ctx context.Context, id string) (*models.ApplicantView, error)
	Get(ctx context.Context, id string) (*models.ApplicantView, error)
	List(ctx context.Context, filter models.ApplicantFilter) ([]models.ApplicantView, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateApplicantRequest) (*models.ApplicantView, error)
}

// ApplicantHandler exposes registration and applicant records.
type ApplicantHandler struct {
	applicants applicantService
}

// NewApplicantHandler constructs an ApplicantHandler.
func NewApplicantHandler(applicants applicantService) *ApplicantHandler {
	return &ApplicantHandler{applicants: applicants}
}

// Register godoc
// @Summary Register applicant
// @Description Creates the applicant with six pending documents and assigns a participant number
// @Tags Applicants
// @Accept json
// @Produce json
// @Param payload body dto.RegisterApplicantRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applicants [post]
func (h *ApplicantHandler) Register(c *gin.Context) {
	var req dto.RegisterApplicantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	applicant, err := h.applicants.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, applicant)
}

// List godoc
// @Summary List applicants
// @Tags Applicants
// @Produce json
// @Param search query string false "Name, national id or participant number"
// @Param position query string false "Position"
// @Param status query string false "pending, verified or rejected"
// @Param session_id query string false "Exam session"
// @Param attendance query string false "absent or present"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applicants [get]
func (h *ApplicantHandler) List(c *gin.Context) {
	applicants, pagination, err := h.applicants.List(c.Request.Context(), applicantFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicants, pagination)
}

// Get godoc
// @Summary Get applicant
// @Tags Applicants
// @Produce json
// @Param id path string true "Applicant ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /applicants/{id} [get]
func (h *ApplicantHandler) Get(c *gin.Context) {
	applicant, err := h.applicants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// Update godoc
// @Summary Update applicant identity
// @Tags Applicants
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body dto.UpdateApplicantRequest true "Identity payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applicants/{id} [put]
func (h *ApplicantHandler) Update(c *gin.Context) {
	var req dto.UpdateApplicantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid applicant payload"))
		return
	}
	applicant, err := h.applicants.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// EnsureParticipantNumber godoc
// @Summary Assign a missing participant number
// @Tags Applicants
// @Produce json
// @Param id path string true "Applicant ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applicants/{id}/participant-number [post]
func (h *ApplicantHandler) EnsureParticipantNumber(c *gin.Context) {
	applicant, err := h.applicants.EnsureParticipantNumber(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

func applicantFilterFromQuery(c *gin.Context) models.ApplicantFilter {
	var filter models.ApplicantFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Position = strings.TrimSpace(c.Query("position"))
	filter.SessionID = c.Query("session_id")
	if status := c.Query("status"); status != "" {
		s := models.GlobalStatus(strings.ToLower(status))
		filter.Status = &s
	}
	if attendance := c.Query("attendance"); attendance != "" {
		a := models.AttendanceStatus(strings.ToLower(attendance))
		filter.Attendance = &a
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
