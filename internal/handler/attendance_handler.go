package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
	"github.com/xhdskyprime/rekruitment/pkg/response"
)

type attendanceService interface {
	CheckIn(ctx context.Context, req dto.CheckInRequest) (*dto.CheckInResult, error)
	ResetAll(ctx context.Context) (*dto.ResetAttendanceResult, error)
	List(ctx context.Context, filter models.ApplicantFilter) ([]models.ApplicantView, *models.Pagination, error)
	Export(ctx context.Context, filter models.ApplicantFilter, format dto.AttendanceExportFormat) (*dto.RenderedDocument, error)
}

// AttendanceHandler records exam-day check-ins and exports the roster.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs an AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// CheckIn godoc
// @Summary Check in applicant
// @Description Accepts a participant number or applicant id. Repeated scans keep the first timestamp.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.CheckInRequest true "Scanned identifier"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-in payload"))
		return
	}
	result, err := h.attendance.CheckIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reset godoc
// @Summary Reset all attendance
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/reset [post]
func (h *AttendanceHandler) Reset(c *gin.Context) {
	result, err := h.attendance.ResetAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary Attendance roster
// @Tags Attendance
// @Produce json
// @Param attendance query string false "absent or present"
// @Param session_id query string false "Exam session"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	applicants, pagination, err := h.attendance.List(c.Request.Context(), applicantFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicants, pagination)
}

// Export godoc
// @Summary Export attendance roster
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	format := dto.AttendanceExportFormat(strings.ToLower(c.DefaultQuery("format", string(dto.ExportCSV))))
	doc, err := h.attendance.Export(c.Request.Context(), applicantFilterFromQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Content)
}
