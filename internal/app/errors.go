package app

import (
	"errors"
	"fmt"
	"net/http"

	"markershare/internal/auth"
	"markershare/internal/authpw"
	"markershare/internal/store"
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

func validationError(message string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

var errUnauthorized = domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)

// mapError translates err into a response. Auth failures never say which
// check failed; internal failures carry the raw error text as details.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validation *store.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, "VALIDATION_ERROR", validation.Message, nil
	}
	switch {
	case errors.Is(err, store.ErrNameRequired):
		return http.StatusBadRequest, "VALIDATION_ERROR", "field name is required", nil
	case errors.Is(err, store.ErrGroupNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Group not found", nil
	case errors.Is(err, store.ErrRaidNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Raid not found", nil
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Invalid login credentials", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Internal server error", err.Error()
}
