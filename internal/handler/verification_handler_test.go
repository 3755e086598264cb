package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
)

type verificationServiceMock struct {
	kind     string
	verifier string
}

func (m *verificationServiceMock) SetDocumentStatus(ctx context.Context, applicantID, rawKind string, req dto.SetDocumentStatusRequest, verifier string) (*dto.VerificationResult, error) {
	m.kind = rawKind
	m.verifier = verifier
	return &dto.VerificationResult{}, nil
}

func TestVerificationHandlerRecordsVerifier(t *testing.T) {
	svc := &verificationServiceMock{}
	handler := NewVerificationHandler(svc)
	c, w := newJSONContext(t, http.MethodPut, "/applicants/a1/documents/ktp", dto.SetDocumentStatusRequest{Status: string(models.DocumentValid)},
		&models.JWTClaims{UserID: "u1", Email: "dewi@example.com", FullName: "Dewi", Role: models.RoleVerifier})
	c.Params = gin.Params{{Key: "id", Value: "a1"}, {Key: "kind", Value: "ktp"}}

	handler.SetDocumentStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ktp", svc.kind)
	assert.Equal(t, "Dewi", svc.verifier)
}

func TestVerificationHandlerRequiresClaims(t *testing.T) {
	handler := NewVerificationHandler(&verificationServiceMock{})
	c, w := newJSONContext(t, http.MethodPut, "/applicants/a1/documents/ktp", dto.SetDocumentStatusRequest{Status: string(models.DocumentValid)}, nil)

	handler.SetDocumentStatus(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
