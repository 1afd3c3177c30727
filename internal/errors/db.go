package errors

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors to AppError instances.
// It handles:
// - pgx.ErrNoRows → NotFound
// - malformed identifiers (invalid_text_representation) → NotFound
// - unique violations → Conflict
// - check and NOT NULL violations → Validation
// - connection exceptions and shutdowns → Unavailable
// - context timeouts/cancellations → Timeout/Canceled
//
// Unrecognised errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: ErrCodeTimeout, Message: "database request timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: ErrCodeCanceled, Message: "database request canceled", Cause: err}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{Code: ErrCodeNotFound, Message: "resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch {
	case pgErr.Code == pgerrcode.UniqueViolation:
		return &AppError{Code: ErrCodeConflict, Message: "resource already exists", Field: pgErr.ColumnName, Cause: pgErr}
	case pgErr.Code == pgerrcode.CheckViolation, pgErr.Code == pgerrcode.NotNullViolation:
		return &AppError{Code: ErrCodeValidation, Message: "invalid data", Field: pgErr.ColumnName, Cause: pgErr}
	case pgErr.Code == pgerrcode.InvalidTextRepresentation:
		return &AppError{Code: ErrCodeNotFound, Message: "resource not found", Cause: pgErr}
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgErr.Code == pgerrcode.AdminShutdown,
		pgErr.Code == pgerrcode.CannotConnectNow:
		return &AppError{Code: ErrCodeUnavailable, Message: "database unavailable", Cause: pgErr}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "database error", Cause: pgErr}
	}
}
