package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
	"github.com/xhdskyprime/rekruitment/pkg/response"
)

type positionService interface {
	List(ctx context.Context) ([]models.Position, error)
	Create(ctx context.Context, req dto.CreatePositionRequest) (*models.Position, error)
}

// PositionHandler exposes the positions applicants apply for.
type PositionHandler struct {
	positions positionService
}

// NewPositionHandler constructs a PositionHandler.
func NewPositionHandler(positions positionService) *PositionHandler {
	return &PositionHandler{positions: positions}
}

// List godoc
// @Summary List positions
// @Tags Positions
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /positions [get]
func (h *PositionHandler) List(c *gin.Context) {
	positions, err := h.positions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, positions, nil)
}

// Create godoc
// @Summary Create position
// @Tags Positions
// @Accept json
// @Produce json
// @Param payload body dto.CreatePositionRequest true "Position payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /positions [post]
func (h *PositionHandler) Create(c *gin.Context) {
	var req dto.CreatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid position payload"))
		return
	}
	position, err := h.positions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, position)
}
