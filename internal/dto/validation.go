package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/xhdskyprime/rekruitment/internal/models"
)

// NewValidator returns a validator with the domain tags registered:
// document_kind and document_status.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("document_kind", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseDocumentKind(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("document_status", func(fl validator.FieldLevel) bool {
		return models.DocumentStatus(fl.Field().String()).Valid()
	})
	return v
}
