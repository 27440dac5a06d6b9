// Package api implements the HTTP surface: chi handlers, request DTOs,
// and the mapping from internal errors to status codes.
package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/postflight/campaign-api/internal/api/shared"
	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/service"
	"github.com/postflight/campaign-api/internal/service/unsubscribe"
	"github.com/postflight/campaign-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes.
// Not-found sentinels become 404, duplicates 409, validation problems 400,
// token problems 401, everything else 500.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, service.ErrCampaignNotFound),
		errors.Is(err, service.ErrRecipientNotFound),
		errors.Is(err, service.ErrGroupNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrGroupNameExists),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, unsubscribe.ErrInvalidToken),
		errors.Is(err, unsubscribe.ErrExpiredToken):
		return http.StatusUnauthorized

	case isValidationError(err):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// GetSafeErrorMessage returns a client-safe message for the error. Internal
// detail never leaks; unexpected errors collapse to a generic message.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, service.ErrCampaignNotFound):
		return "campaign not found"
	case errors.Is(err, service.ErrRecipientNotFound):
		return "recipient not found"
	case errors.Is(err, service.ErrGroupNotFound):
		return "group not found"
	case errors.Is(err, store.ErrNotFound):
		return "resource not found"

	case errors.Is(err, service.ErrGroupNameExists):
		return "a group with this name already exists"
	case errors.Is(err, store.ErrDuplicate):
		return "resource already exists"

	case errors.Is(err, unsubscribe.ErrExpiredToken):
		return "unsubscribe link has expired"
	case errors.Is(err, unsubscribe.ErrInvalidToken):
		return "invalid unsubscribe link"

	case isValidationError(err):
		return err.Error()
	}

	return "an internal error occurred"
}

func isValidationError(err error) bool {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return true
	}

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrEmptyCampaignTitle),
		errors.Is(err, domain.ErrEmptyCampaignMessage),
		errors.Is(err, domain.ErrInvalidCampaignStatus),
		errors.Is(err, domain.ErrEmptyRecipientEmail),
		errors.Is(err, domain.ErrEmptyGroupName),
		errors.Is(err, store.ErrInvalidEntity):
		return true
	}

	return false
}

// respondServiceError writes an error response using the standard mapping.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
