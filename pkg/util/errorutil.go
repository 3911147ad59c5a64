package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Stable machine codes for the conversation-layer error kinds.
const (
	CodeInvalidLocation     = "INVALID_LOCATION"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeTimeUnavailable     = "TIME_UNAVAILABLE"
	CodeDuplicateClient     = "DUPLICATE_CLIENT"
	CodeUnknownCommand      = "UNKNOWN_COMMAND"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewInvalidLocation flags free text the geocoder could not resolve.
func NewInvalidLocation(query string) error {
	return NewDomainError(CodeInvalidLocation, "location could not be resolved",
		http.StatusUnprocessableEntity, map[string]any{"query": query})
}

// NewProviderUnavailable flags a failed or unparseable quality-provider answer.
func NewProviderUnavailable(err error) error {
	return &DomainError{
		Code:       CodeProviderUnavailable,
		Message:    "sunset quality provider unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewTimeUnavailable flags a date/latitude with no sunset (polar edge case).
func NewTimeUnavailable(lat, lon float64) error {
	return NewDomainError(CodeTimeUnavailable, "no sunset occurs at this location today",
		http.StatusUnprocessableEntity, map[string]any{"lat": lat, "lon": lon})
}

// NewDuplicateClient flags onboarding of an already-registered phone number.
func NewDuplicateClient(phone string) error {
	return NewDomainError(CodeDuplicateClient, "client already registered",
		http.StatusConflict, map[string]any{"phone": phone})
}

// NewUnknownCommand flags inbound text matching no recognized pattern.
func NewUnknownCommand() error {
	return NewDomainError(CodeUnknownCommand, "unrecognized command",
		http.StatusBadRequest, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError carrying the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
