package api

import (
	"log/slog"
	"net/http"

	"github.com/postflight/campaign-api/internal/api/shared"
	"github.com/postflight/campaign-api/internal/service"
)

// CampaignHandler serves the campaign endpoints.
type CampaignHandler struct {
	campaignService service.CampaignService
	logger          *slog.Logger
}

// NewCampaignHandler creates a CampaignHandler.
func NewCampaignHandler(campaignService service.CampaignService, logger *slog.Logger) *CampaignHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CampaignHandler{
		campaignService: campaignService,
		logger:          logger.With("component", "campaign_handler"),
	}
}

// Create handles POST /api/campaigns. The campaign is stored immediately;
// recipient reconciliation runs in the background, so the response is 202
// with the campaign in pending status.
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	campaign, err := h.campaignService.CreateCampaign(r.Context(), req.Title, req.Message, req.RecipientEmails)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, NewCampaignResponse(campaign))
}

// List handles GET /api/campaigns.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaignService.ListCampaigns(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]CampaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, NewCampaignResponse(c))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// Send handles POST /api/campaigns/send. The campaign is marked queued
// synchronously; dispatch runs in the background.
func (h *CampaignHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendCampaignRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.campaignService.RequestSend(r.Context(), req.CampaignID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]string{
		"campaign_id": req.CampaignID.String(),
		"status":      "queued",
	})
}
