package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/xhdskyprime/rekruitment/internal/models"
	appErrors "github.com/xhdskyprime/rekruitment/pkg/errors"
)

type identifierRepository interface {
	FindByID(ctx context.Context, id string) (*models.Applicant, error)
	FindByParticipantNumber(ctx context.Context, number string) ([]models.Applicant, error)
}

// resolveIdentifier finds the applicant a scanned or typed identifier refers to.
// The participant number is tried first, then the internal id. A match in both
// spaces pointing at different applicants, or a participant number shared by
// several applicants, is ambiguous.
func resolveIdentifier(ctx context.Context, repo identifierRepository, raw string) (*models.Applicant, error) {
	identifier := strings.TrimSpace(raw)
	if identifier == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "identifier is required")
	}

	byNumber, err := repo.FindByParticipantNumber(ctx, identifier)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up participant number")
	}
	if len(byNumber) > 1 {
		return nil, appErrors.Clone(appErrors.ErrAmbiguousIdentifier, "participant number is shared by several applicants")
	}

	var byID *models.Applicant
	if isUUID(identifier) {
		byID, err = repo.FindByID(ctx, identifier)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicant")
			}
			byID = nil
		}
	}

	switch {
	case len(byNumber) == 1 && byID != nil && byID.ID != byNumber[0].ID:
		return nil, appErrors.Clone(appErrors.ErrAmbiguousIdentifier, "identifier matches different applicants")
	case len(byNumber) == 1:
		return &byNumber[0], nil
	case byID != nil:
		return byID, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
	}
}
