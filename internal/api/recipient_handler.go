package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/api/shared"
	"github.com/postflight/campaign-api/internal/service"
)

// RecipientHandler serves the recipient directory endpoints.
type RecipientHandler struct {
	recipientService service.RecipientService
	logger           *slog.Logger
}

// NewRecipientHandler creates a RecipientHandler.
func NewRecipientHandler(recipientService service.RecipientService, logger *slog.Logger) *RecipientHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecipientHandler{
		recipientService: recipientService,
		logger:           logger.With("component", "recipient_handler"),
	}
}

// Create handles POST /api/recipients. Creation is get-or-create by email,
// so posting an existing address returns the existing recipient.
func (h *RecipientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRecipientRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	recipient, err := h.recipientService.GetOrCreateRecipient(r.Context(), req.Email, req.Name, req.GroupID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, NewRecipientResponse(recipient))
}

// List handles GET /api/recipients (?include_opted_out).
func (h *RecipientHandler) List(w http.ResponseWriter, r *http.Request) {
	includeOptedOut := r.URL.Query().Get("include_opted_out") == "true"

	recipients, err := h.recipientService.ListRecipients(r.Context(), includeOptedOut)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewRecipientListResponse(recipients))
}

// ListActive handles GET /api/recipients/active.
func (h *RecipientHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.recipientService.ListRecipients(r.Context(), false)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewRecipientListResponse(recipients))
}

// Update handles PATCH /api/recipients/{id}.
func (h *RecipientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid recipient ID")
		return
	}

	var req UpdateRecipientRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	recipient, err := h.recipientService.UpdateRecipient(r.Context(), id, service.RecipientUpdate{
		Name:    req.Name,
		GroupID: req.GroupID,
		OptOut:  req.OptOut,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewRecipientResponse(recipient))
}

// OptOut handles POST /api/recipients/opt-out.
func (h *RecipientHandler) OptOut(w http.ResponseWriter, r *http.Request) {
	var req OptOutRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	recipient, err := h.recipientService.OptOut(r.Context(), req.Email, req.Reason)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewRecipientResponse(recipient))
}

// OptIn handles POST /api/recipients/opt-in.
func (h *RecipientHandler) OptIn(w http.ResponseWriter, r *http.Request) {
	var req OptInRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	recipient, err := h.recipientService.OptIn(r.Context(), req.Email)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewRecipientResponse(recipient))
}
