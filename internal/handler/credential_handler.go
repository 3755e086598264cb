package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
	"github.com/xhdskyprime/rekruitment/pkg/response"
)

type credentialService interface {
	RenderRegistrationCard(ctx context.Context, applicantID string) (*dto.RenderedDocument, error)
	RenderExamCard(ctx context.Context, req dto.ExamCardRequest) (*dto.RenderedDocument, error)
	IssueExamCardLink(ctx context.Context, req dto.ExamCardRequest) (*dto.ExamCardLink, error)
	RenderExamCardByToken(ctx context.Context, token string) (*dto.RenderedDocument, error)
}

// CredentialHandler serves registration and exam cards as PDF documents.
type CredentialHandler struct {
	credentials credentialService
}

// NewCredentialHandler constructs a CredentialHandler.
func NewCredentialHandler(credentials credentialService) *CredentialHandler {
	return &CredentialHandler{credentials: credentials}
}

// RegistrationCard godoc
// @Summary Download registration card
// @Tags Credentials
// @Produce application/pdf
// @Param id path string true "Applicant ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /applicants/{id}/registration-card [get]
func (h *CredentialHandler) RegistrationCard(c *gin.Context) {
	doc, err := h.credentials.RenderRegistrationCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, doc.Filename, doc.ContentType, doc.Content)
}

// ExamCard godoc
// @Summary Download exam card
// @Description Requires the participant number or id together with the matching national id. Only verified applicants are eligible.
// @Tags Credentials
// @Accept json
// @Produce application/pdf
// @Param payload body dto.ExamCardRequest true "Identity proof"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exam-card [post]
func (h *CredentialHandler) ExamCard(c *gin.Context) {
	var req dto.ExamCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam card payload"))
		return
	}
	doc, err := h.credentials.RenderExamCard(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, doc.Filename, doc.ContentType, doc.Content)
}

// ExamCardLink godoc
// @Summary Issue a signed exam card download link
// @Tags Credentials
// @Accept json
// @Produce json
// @Param payload body dto.ExamCardRequest true "Identity proof"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exam-card/link [post]
func (h *CredentialHandler) ExamCardLink(c *gin.Context) {
	var req dto.ExamCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam card payload"))
		return
	}
	link, err := h.credentials.IssueExamCardLink(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// DownloadExamCard godoc
// @Summary Download exam card with a signed link
// @Tags Credentials
// @Produce application/pdf
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /exam-card/download [get]
func (h *CredentialHandler) DownloadExamCard(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "download token required"))
		return
	}
	doc, err := h.credentials.RenderExamCardByToken(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, doc.Filename, doc.ContentType, doc.Content)
}
