package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xhdskyprime/rekruitment/internal/middleware"
	"github.com/xhdskyprime/rekruitment/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}
