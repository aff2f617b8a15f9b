package app

import (
	"errors"
	"fmt"
	"net/http"

	"folio/api/internal/section"
	"folio/api/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// validationError marks recoverable bad input: the caller can fix the payload
// and retry, and no state was touched.
func validationError(message string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION", message, nil)
}

func notFoundError(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

// asDomainError maps internal errors onto wire errors. Structural violations
// surface as unprocessable content; storage failures leave the caller free to
// retry since a failed save never mutates state.
func asDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	var ie *section.IntegrityError
	if errors.As(err, &ie) {
		return domainError(http.StatusUnprocessableEntity, "STRUCTURAL_INTEGRITY", ie.Error(), nil)
	}
	if errors.Is(err, section.ErrNotFound) || errors.Is(err, store.ErrPageNotFound) {
		return notFoundError(err.Error())
	}
	return domainError(http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
}
