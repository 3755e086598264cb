package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
	"github.com/xhdskyprime/rekruitment/pkg/response"
)

type verificationService interface {
	SetDocumentStatus(ctx context.Context, applicantID, rawKind string, req dto.SetDocumentStatusRequest, verifier string) (*dto.VerificationResult, error)
}

// VerificationHandler records verifier decisions on applicant documents.
type VerificationHandler struct {
	verification verificationService
}

// NewVerificationHandler constructs a VerificationHandler.
func NewVerificationHandler(verification verificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// SetDocumentStatus godoc
// @Summary Set document verification status
// @Description Marks one document valid, invalid or pending and returns the recomputed global status
// @Tags Verification
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param kind path string true "Document kind" Enums(application_letter, identity_card, diploma, str, declaration_letter, skill_certificate)
// @Param payload body dto.SetDocumentStatusRequest true "Verdict"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /applicants/{id}/documents/{kind} [put]
func (h *VerificationHandler) SetDocumentStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SetDocumentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document status payload"))
		return
	}
	result, err := h.verification.SetDocumentStatus(c.Request.Context(), c.Param("id"), c.Param("kind"), req, claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
