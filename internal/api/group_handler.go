package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/api/shared"
	"github.com/postflight/campaign-api/internal/service"
)

// GroupHandler serves the group directory endpoints.
type GroupHandler struct {
	groupService     service.GroupService
	recipientService service.RecipientService
	logger           *slog.Logger
}

// NewGroupHandler creates a GroupHandler.
func NewGroupHandler(
	groupService service.GroupService,
	recipientService service.RecipientService,
	logger *slog.Logger,
) *GroupHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupHandler{
		groupService:     groupService,
		recipientService: recipientService,
		logger:           logger.With("component", "group_handler"),
	}
}

// Create handles POST /api/groups. Creation is get-or-create by name.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	group, err := h.groupService.GetOrCreateGroup(r.Context(), req.Name, req.Description)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, NewGroupResponse(group))
}

// List handles GET /api/groups.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupService.ListGroups(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, NewGroupResponse(g))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// Update handles PATCH /api/groups/{id}.
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid group ID")
		return
	}

	var req UpdateGroupRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.groupService.UpdateGroup(r.Context(), id, service.GroupUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewGroupResponse(group))
}

// AddRecipients handles PATCH /api/groups/{id}/recipients. Unseen emails
// are created; opted-out ones are skipped and reported.
func (h *GroupHandler) AddRecipients(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid group ID")
		return
	}

	var req AddGroupRecipientsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Emails) == 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "emails cannot be empty")
		return
	}

	added, skipped, err := h.recipientService.AddRecipientsToGroup(r.Context(), id, req.Emails)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AddGroupRecipientsResponse{
		Added:   NewRecipientListResponse(added),
		Skipped: skipped,
	})
}

// ListRecipients handles GET /api/groups/{id}/recipients (?active_only).
func (h *GroupHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid group ID")
		return
	}

	activeOnly := r.URL.Query().Get("active_only") == "true"

	recipients, err := h.recipientService.ListByGroup(r.Context(), id, activeOnly)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewRecipientListResponse(recipients))
}
