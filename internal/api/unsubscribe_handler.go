package api

import (
	"log/slog"
	"net/http"

	"github.com/postflight/campaign-api/internal/api/shared"
	"github.com/postflight/campaign-api/internal/service"
	"github.com/postflight/campaign-api/internal/service/unsubscribe"
)

// UnsubscribeHandler serves the token-authenticated opt-out endpoint that
// unsubscribe links in dispatched messages point at.
type UnsubscribeHandler struct {
	tokens           *unsubscribe.TokenService
	recipientService service.RecipientService
	logger           *slog.Logger
}

// NewUnsubscribeHandler creates an UnsubscribeHandler.
func NewUnsubscribeHandler(
	tokens *unsubscribe.TokenService,
	recipientService service.RecipientService,
	logger *slog.Logger,
) *UnsubscribeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnsubscribeHandler{
		tokens:           tokens,
		recipientService: recipientService,
		logger:           logger.With("component", "unsubscribe_handler"),
	}
}

// Unsubscribe handles GET /unsubscribe?token=... by verifying the token
// and opting out the email it authorizes.
func (h *UnsubscribeHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "token is required")
		return
	}

	email, err := h.tokens.Verify(r.Context(), token)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if _, err := h.recipientService.OptOut(r.Context(), email, "unsubscribe link"); err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"status": "unsubscribed",
	})
}
