package database

import (
	"context"
	"database/sql"
	"errors"

	apperrors "investor-matching/internal/common/errors"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

// Classify maps a driver error onto the error taxonomy. sql.ErrNoRows is returned unchanged because
// its meaning (not found, not owned, absent) depends on the caller.
func Classify(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return apperrors.NewConflictError(tableResource(pqErr.Table), pqErr.Constraint)
		case pqCheckViolation:
			return apperrors.NewValidationError(apperrors.FieldError{
				Field:   pqErr.Constraint,
				Message: "violates a stored constraint",
				Code:    "check_violation",
			})
		}
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.NewDependencyError(service, err)
}

// IsUniqueViolation reports whether err is a postgres unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

func tableResource(table string) string {
	switch table {
	case "investor_theses":
		return "thesis"
	case "startup_matches":
		return "match"
	case "match_interactions":
		return "interaction"
	case "":
		return "record"
	default:
		return table
	}
}
