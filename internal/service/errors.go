package service

import (
	"errors"
	"strings"

	"github.com/spec-kit/pharmacy-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

// storeError maps repository failures onto the service error taxonomy.
// DomainErrors raised inside a transaction pass through unchanged.
func storeError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource)
	}
	return apperrors.NewPersistenceError(err)
}

func requiredText(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", apperrors.NewValidationError(field+" is required", map[string]any{"field": field})
	}
	return trimmed, nil
}
