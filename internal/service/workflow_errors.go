package service

import (
	"database/sql"
	"errors"

	"github.com/parkops/parkops-api/internal/repository"
	"github.com/parkops/parkops-api/pkg/database"
	appErrors "github.com/parkops/parkops-api/pkg/errors"
)

// Transition outcomes recorded on workflow_transitions_total.
const (
	outcomeApplied          = "applied"
	outcomeAlreadyProcessed = "already_processed"
	outcomeForbidden        = "forbidden"
	outcomeInvalid          = "invalid"
	outcomeUnavailable      = "unavailable"
	outcomeFailed           = "failed"
)

type transitionRecorder interface {
	RecordTransition(kind, action, outcome string)
}

// storeError maps repository failures onto the workflow error taxonomy. message
// describes the failed operation for the internal case.
func storeError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.ErrNotFound
	case errors.Is(err, repository.ErrAlreadyProcessed):
		return appErrors.Clone(appErrors.ErrAlreadyProcessed, "")
	case errors.Is(err, repository.ErrOutOfScope):
		return appErrors.Clone(appErrors.ErrForbidden, "row belongs to another location")
	case errors.Is(err, repository.ErrWorkOrderClosed):
		return appErrors.Clone(appErrors.ErrValidation, "work order is already closed")
	case database.IsRetryable(err):
		return appErrors.Unavailable(err)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}

// outcomeOf classifies err for transition metrics.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeApplied
	case appErrors.Is(err, appErrors.ErrAlreadyProcessed):
		return outcomeAlreadyProcessed
	case appErrors.Is(err, appErrors.ErrForbidden), appErrors.Is(err, appErrors.ErrUnauthorized):
		return outcomeForbidden
	case appErrors.Is(err, appErrors.ErrValidation), appErrors.Is(err, appErrors.ErrNotFound):
		return outcomeInvalid
	case appErrors.Is(err, appErrors.ErrStoreUnavailable):
		return outcomeUnavailable
	default:
		return outcomeFailed
	}
}
