package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/postflight/campaign-api/internal/domain"
)

// RecipientEmails accepts either a JSON array of addresses or a single
// comma-separated string, and normalizes both to a trimmed list.
type RecipientEmails []string

// UnmarshalJSON implements the dual-format decoding.
func (e *RecipientEmails) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*e = normalizeEmails(list)
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err == nil {
		*e = normalizeEmails(strings.Split(joined, ","))
		return nil
	}

	return fmt.Errorf("recipient_emails must be a string or an array of strings")
}

func normalizeEmails(raw []string) []string {
	emails := make([]string, 0, len(raw))
	for _, email := range raw {
		email = strings.TrimSpace(email)
		if email != "" {
			emails = append(emails, email)
		}
	}
	return emails
}

// CreateCampaignRequest is the payload for POST /api/campaigns.
type CreateCampaignRequest struct {
	Title           string          `json:"title"            validate:"required"`
	Message         string          `json:"message"          validate:"required"`
	RecipientEmails RecipientEmails `json:"recipient_emails"`
}

// SendCampaignRequest is the payload for POST /api/campaigns/send.
type SendCampaignRequest struct {
	CampaignID uuid.UUID `json:"campaign_id" validate:"required"`
}

// CampaignResponse is the campaign representation returned by the API.
type CampaignResponse struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Status          string    `json:"status"`
	RecipientEmails []string  `json:"recipient_emails"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewCampaignResponse converts a domain campaign to its API representation.
func NewCampaignResponse(campaign *domain.Campaign) CampaignResponse {
	emails := make([]string, 0, len(campaign.Recipients))
	for _, r := range campaign.Recipients {
		emails = append(emails, r.Email)
	}
	return CampaignResponse{
		ID:              campaign.ID,
		Title:           campaign.Title,
		Message:         campaign.Message,
		Status:          string(campaign.Status),
		RecipientEmails: emails,
		CreatedAt:       campaign.CreatedAt,
		UpdatedAt:       campaign.UpdatedAt,
	}
}

// CreateRecipientRequest is the payload for POST /api/recipients.
type CreateRecipientRequest struct {
	Email   string     `json:"email"              validate:"required,email"`
	Name    string     `json:"name"`
	GroupID *uuid.UUID `json:"group_id,omitempty"`
}

// UpdateRecipientRequest is the payload for PATCH /api/recipients/{id}.
// Absent fields are left unchanged.
type UpdateRecipientRequest struct {
	Name    *string    `json:"name,omitempty"`
	GroupID *uuid.UUID `json:"group_id,omitempty"`
	OptOut  *bool      `json:"opt_out,omitempty"`
}

// OptOutRequest is the payload for POST /api/recipients/opt-out.
type OptOutRequest struct {
	Email  string `json:"email"  validate:"required,email"`
	Reason string `json:"reason"`
}

// OptInRequest is the payload for POST /api/recipients/opt-in.
type OptInRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RecipientResponse is the recipient representation returned by the API.
type RecipientResponse struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	GroupID   *uuid.UUID `json:"group_id,omitempty"`
	OptOut    bool       `json:"opt_out"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewRecipientResponse converts a domain recipient to its API
// representation.
func NewRecipientResponse(recipient *domain.Recipient) RecipientResponse {
	return RecipientResponse{
		ID:        recipient.ID,
		Email:     recipient.Email,
		Name:      recipient.Name,
		GroupID:   recipient.GroupID,
		OptOut:    recipient.OptOut,
		CreatedAt: recipient.CreatedAt,
		UpdatedAt: recipient.UpdatedAt,
	}
}

// NewRecipientListResponse converts a slice of domain recipients.
func NewRecipientListResponse(recipients []*domain.Recipient) []RecipientResponse {
	out := make([]RecipientResponse, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, NewRecipientResponse(r))
	}
	return out
}

// CreateGroupRequest is the payload for POST /api/groups.
type CreateGroupRequest struct {
	Name        string `json:"name"        validate:"required"`
	Description string `json:"description"`
}

// UpdateGroupRequest is the payload for PATCH /api/groups/{id}.
type UpdateGroupRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// AddGroupRecipientsRequest is the payload for
// PATCH /api/groups/{id}/recipients.
type AddGroupRecipientsRequest struct {
	Emails RecipientEmails `json:"emails" validate:"required,min=1"`
}

// GroupResponse is the group representation returned by the API.
type GroupResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewGroupResponse converts a domain group to its API representation.
func NewGroupResponse(group *domain.Group) GroupResponse {
	return GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		CreatedAt:   group.CreatedAt,
		UpdatedAt:   group.UpdatedAt,
	}
}

// AddGroupRecipientsResponse reports the outcome of a group assignment.
type AddGroupRecipientsResponse struct {
	Added   []RecipientResponse `json:"added"`
	Skipped []string            `json:"skipped,omitempty"`
}
