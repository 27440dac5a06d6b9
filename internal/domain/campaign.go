package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

// Possible campaign status values.
//
// The pending -> queued transition happens synchronously when a send is
// requested; the pending/queued -> recipients_processed transition is driven
// by the background reconciliation job. The two chains are concurrent: a
// campaign may reach recipients_processed before or after being queued.
const (
	CampaignStatusPending             CampaignStatus = "pending"
	CampaignStatusQueued              CampaignStatus = "queued"
	CampaignStatusRecipientsProcessed CampaignStatus = "recipients_processed"
	CampaignStatusSent                CampaignStatus = "sent"
	CampaignStatusSentNoRecipients    CampaignStatus = "sent_no_recipients"

	// CampaignStatusNoActiveRecipients is a legacy value written by an older
	// dispatcher variant. It is accepted when loading rows but never written.
	CampaignStatusNoActiveRecipients CampaignStatus = "no_active_recipients"
)

// Common validation errors for Campaign
var (
	ErrEmptyCampaignID       = errors.New("campaign ID cannot be empty")
	ErrEmptyCampaignTitle    = errors.New("campaign title cannot be empty")
	ErrEmptyCampaignMessage  = errors.New("campaign message cannot be empty")
	ErrInvalidCampaignStatus = errors.New("invalid campaign status")
)

// Campaign represents a message to be delivered to a set of recipients.
// Recipients are attached asynchronously by the reconciliation job; the
// Recipients slice is populated only when the campaign is loaded with its
// associations.
type Campaign struct {
	ID         uuid.UUID      `json:"id"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Status     CampaignStatus `json:"status"`
	Recipients []*Recipient   `json:"recipients,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewCampaign creates a new Campaign with pending status and no recipients.
// Returns an error if validation fails.
func NewCampaign(title, message string) (*Campaign, error) {
	campaign := &Campaign{
		ID:        uuid.New(),
		Title:     title,
		Message:   message,
		Status:    CampaignStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := campaign.Validate(); err != nil {
		return nil, err
	}

	return campaign, nil
}

// Validate checks if the Campaign has valid data.
func (c *Campaign) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCampaignID
	}

	if c.Title == "" {
		return ErrEmptyCampaignTitle
	}

	if c.Message == "" {
		return ErrEmptyCampaignMessage
	}

	if !isValidCampaignStatus(c.Status) {
		return ErrInvalidCampaignStatus
	}

	return nil
}

// UpdateStatus updates the campaign's status and the UpdatedAt timestamp.
// Returns an error if the new status is invalid.
func (c *Campaign) UpdateStatus(status CampaignStatus) error {
	if !isValidCampaignStatus(status) {
		return ErrInvalidCampaignStatus
	}

	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ActiveRecipients returns the loaded recipients that have not opted out.
func (c *Campaign) ActiveRecipients() []*Recipient {
	active := make([]*Recipient, 0, len(c.Recipients))
	for _, r := range c.Recipients {
		if !r.OptOut {
			active = append(active, r)
		}
	}
	return active
}

func isValidCampaignStatus(status CampaignStatus) bool {
	switch status {
	case CampaignStatusPending, CampaignStatusQueued,
		CampaignStatusRecipientsProcessed, CampaignStatusSent,
		CampaignStatusSentNoRecipients, CampaignStatusNoActiveRecipients:
		return true
	default:
		return false
	}
}
