package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/postflight/campaign-api/internal/domain"
	"github.com/postflight/campaign-api/internal/service"
	"github.com/postflight/campaign-api/internal/service/unsubscribe"
	"github.com/postflight/campaign-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, http.StatusOK},
		{"campaign not found", service.ErrCampaignNotFound, http.StatusNotFound},
		{"recipient not found", service.ErrRecipientNotFound, http.StatusNotFound},
		{"group not found", service.ErrGroupNotFound, http.StatusNotFound},
		{"store not found", store.ErrNotFound, http.StatusNotFound},
		{"group name exists", service.ErrGroupNameExists, http.StatusConflict},
		{"store duplicate", store.ErrDuplicate, http.StatusConflict},
		{"invalid token", unsubscribe.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", unsubscribe.ErrExpiredToken, http.StatusUnauthorized},
		{"invalid email", domain.ErrInvalidEmail, http.StatusBadRequest},
		{"empty campaign title", domain.ErrEmptyCampaignTitle, http.StatusBadRequest},
		{"empty group name", domain.ErrEmptyGroupName, http.StatusBadRequest},
		{"unknown error", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestMapErrorToStatusCodeUnwrapsChains(t *testing.T) {
	wrapped := fmt.Errorf("loading campaign: %w", service.ErrCampaignNotFound)
	assert.Equal(t, http.StatusNotFound, MapErrorToStatusCode(wrapped))
}

func TestGetSafeErrorMessage(t *testing.T) {
	assert.Equal(t, "", GetSafeErrorMessage(nil))
	assert.Equal(t, "campaign not found", GetSafeErrorMessage(service.ErrCampaignNotFound))
	assert.Equal(t, "a group with this name already exists", GetSafeErrorMessage(service.ErrGroupNameExists))
	assert.Equal(t, "unsubscribe link has expired", GetSafeErrorMessage(unsubscribe.ErrExpiredToken))
}

func TestGetSafeErrorMessageHidesInternalDetail(t *testing.T) {
	err := errors.New("pq: connection to postgres://user:hunter2@db:5432 refused")
	msg := GetSafeErrorMessage(err)
	assert.Equal(t, "an internal error occurred", msg)
	assert.NotContains(t, msg, "hunter2")
}
