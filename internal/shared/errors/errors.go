package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common error types
var (
	ErrNotFound               = errors.New("resource not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrBadRequest             = errors.New("bad request")
	ErrConflict               = errors.New("conflict")
	ErrInternal               = errors.New("internal error")
	ErrValidation             = errors.New("validation error")
	ErrRelationship           = errors.New("relationship error")
	ErrGenerationConflict     = errors.New("case number generation conflict")
	ErrHasDependentViolations = errors.New("victim has dependent violations")
)

// Error codes
const (
	CodeNotFound               = "NOT_FOUND"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeBadRequest             = "BAD_REQUEST"
	CodeValidation             = "VALIDATION_ERROR"
	CodeConflict               = "CONFLICT"
	CodeRelationship           = "RELATIONSHIP_ERROR"
	CodeGenerationConflict     = "GENERATION_CONFLICT"
	CodeHasDependentViolations = "HAS_DEPENDENT_VIOLATIONS"
	CodeInternal               = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	HTTPStatus int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a not found error
func NotFound(kind string, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", kind),
		Code:       CodeNotFound,
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]string{"kind": kind, "id": id},
	}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       CodeUnauthorized,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       CodeForbidden,
		HTTPStatus: http.StatusForbidden,
	}
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Message:    message,
		Code:       CodeBadRequest,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Validation creates a validation error with field details
func Validation(message string, details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Message:    message,
		Code:       CodeValidation,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// FieldError creates a validation error for a single field
func FieldError(field, reason string) *AppError {
	return Validation("validation failed", map[string]string{field: reason})
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Message:    message,
		Code:       CodeConflict,
		HTTPStatus: http.StatusConflict,
	}
}

// Relationship wraps a storage failure raised while maintaining join records.
// The transaction has been rolled back and the operation can be retried.
func Relationship(operation string, cause error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrRelationship, cause),
		Message:    fmt.Sprintf("%s failed", operation),
		Code:       CodeRelationship,
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]string{"operation": operation},
	}
}

// GenerationConflict reports a case number collision. Callers retry the creation.
func GenerationConflict(cause error) *AppError {
	err := ErrGenerationConflict
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrGenerationConflict, cause)
	}
	return &AppError{
		Err:        err,
		Message:    "case number already taken",
		Code:       CodeGenerationConflict,
		HTTPStatus: http.StatusConflict,
	}
}

// HasDependentViolations rejects removing a victim that still has violations recorded.
func HasDependentViolations(incidentID, victimID string, count int) *AppError {
	return &AppError{
		Err:        ErrHasDependentViolations,
		Message:    "remove all violations recorded for this victim first",
		Code:       CodeHasDependentViolations,
		HTTPStatus: http.StatusConflict,
		Details: map[string]string{
			"incident_id": incidentID,
			"victim_id":   victimID,
			"violations":  strconv.Itoa(count),
		},
	}
}

// Internal creates an internal error
func Internal(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "internal server error",
		Code:       CodeInternal,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	if appErr, ok := err.(*AppError); ok {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       CodeInternal,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// IsDomain reports whether err is a rejection the caller should see as-is
// rather than a storage failure.
func IsDomain(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case CodeInternal, CodeRelationship:
		return false
	}
	return true
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsSerializationFailure reports whether err is a PostgreSQL serialization or deadlock failure.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
