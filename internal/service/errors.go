// Package service provides the synchronous application operations for
// campaigns, recipients, and groups. Services validate input, persist
// through the store layer, and emit task request events for the
// asynchronous work (recipient reconciliation, campaign dispatch).
package service

import (
	"errors"
	"fmt"

	"github.com/postflight/campaign-api/internal/store"
)

// Sentinel errors returned by service methods for expected conditions.
// Callers check these with errors.Is; the API layer maps them to HTTP
// status codes.
var (
	// ErrCampaignNotFound indicates the campaign does not exist.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrRecipientNotFound indicates the recipient does not exist.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrGroupNotFound indicates the group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrGroupNameExists indicates a group with the name already exists.
	ErrGroupNameExists = errors.New("group name already exists")
)

// ServiceError wraps unexpected errors with the operation that failed.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap supports errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// wrapError maps store sentinels to service sentinels and wraps everything
// else in a ServiceError.
func wrapError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, store.ErrCampaignNotFound):
		return ErrCampaignNotFound
	case errors.Is(err, store.ErrRecipientNotFound):
		return ErrRecipientNotFound
	case errors.Is(err, store.ErrGroupNotFound):
		return ErrGroupNotFound
	case errors.Is(err, store.ErrGroupNameExists):
		return ErrGroupNameExists
	case errors.Is(err, ErrCampaignNotFound),
		errors.Is(err, ErrRecipientNotFound),
		errors.Is(err, ErrGroupNotFound),
		errors.Is(err, ErrGroupNameExists):
		return err
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
