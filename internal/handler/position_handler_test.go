package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
)

type positionServiceMock struct {
	createErr error
}

func (m *positionServiceMock) List(ctx context.Context) ([]models.Position, error) {
	return []models.Position{{ID: "p1", Name: "Perawat", Code: "07"}}, nil
}

func (m *positionServiceMock) Create(ctx context.Context, req dto.CreatePositionRequest) (*models.Position, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Position{ID: "p2", Name: req.Name, Code: req.Code}, nil
}

func TestPositionHandlerList(t *testing.T) {
	handler := NewPositionHandler(&positionServiceMock{})
	c, w := newJSONContext(t, http.MethodGet, "/positions", nil, &models.JWTClaims{Role: models.RoleVerifier})

	handler.List(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), "Perawat")
}

func TestPositionHandlerCreate(t *testing.T) {
	handler := NewPositionHandler(&positionServiceMock{})
	c, w := newJSONContext(t, http.MethodPost, "/positions", dto.CreatePositionRequest{Name: "Bidan", Code: "08"}, &models.JWTClaims{Role: models.RoleAdmin})

	handler.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	handler = NewPositionHandler(&positionServiceMock{createErr: appErrors.ErrConflict})
	c, w = newJSONContext(t, http.MethodPost, "/positions", dto.CreatePositionRequest{Name: "Bidan", Code: "08"}, &models.JWTClaims{Role: models.RoleAdmin})

	handler.Create(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}
