package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
)

type tokenValidatorStub struct{}

func (tokenValidatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "verifier":
		return &models.JWTClaims{UserID: "u1", Role: models.RoleVerifier}, nil
	case "admin":
		return &models.JWTClaims{UserID: "u2", Role: models.RoleAdmin}, nil
	default:
		return nil, appErrors.ErrUnauthorized
	}
}

func newProtectedRouter(roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/staff", JWT(tokenValidatorStub{}), RequireRoles(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).UserID)
	})
	return r
}

func performRequest(r http.Handler, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/staff", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	r := newProtectedRouter(models.RoleVerifier, models.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, performRequest(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, performRequest(r, "Token verifier").Code)
	assert.Equal(t, http.StatusUnauthorized, performRequest(r, "Bearer forged").Code)

	w := performRequest(r, "bearer verifier")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
}

func TestRequireRoles(t *testing.T) {
	r := newProtectedRouter(models.RoleAdmin, models.RoleSuperAdmin)

	assert.Equal(t, http.StatusForbidden, performRequest(r, "Bearer verifier").Code)
	assert.Equal(t, http.StatusOK, performRequest(r, "Bearer admin").Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/staff", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, performRequest(r, "").Code)
}
