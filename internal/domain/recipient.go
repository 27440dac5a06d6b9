package domain

import (
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Recipient
var (
	ErrEmptyRecipientID    = errors.New("recipient ID cannot be empty")
	ErrEmptyRecipientEmail = errors.New("recipient email cannot be empty")
)

// Recipient represents a single delivery address in the directory.
// Identity is the email address: at most one Recipient exists per email,
// enforced by a uniqueness constraint in the store. The OptOut flag means
// the recipient must never receive campaign messages, regardless of group
// or campaign targeting.
type Recipient struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	GroupID   *uuid.UUID `json:"group_id,omitempty"`
	OptOut    bool       `json:"opt_out"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewRecipient creates a new Recipient for the given email.
// The opt-out flag defaults to false; name may be empty.
// Returns an error if validation fails.
func NewRecipient(email, name string) (*Recipient, error) {
	recipient := &Recipient{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		OptOut:    false,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := recipient.Validate(); err != nil {
		return nil, err
	}

	return recipient, nil
}

// Validate checks if the Recipient has valid data.
func (r *Recipient) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyRecipientID
	}

	if r.Email == "" {
		return ErrEmptyRecipientEmail
	}

	if _, err := mail.ParseAddress(r.Email); err != nil {
		return ErrInvalidEmail
	}

	return nil
}

// SetName updates the display name and the UpdatedAt timestamp.
func (r *Recipient) SetName(name string) {
	r.Name = name
	r.UpdatedAt = time.Now().UTC()
}

// SetOptOut updates the opt-out flag and the UpdatedAt timestamp.
func (r *Recipient) SetOptOut(optOut bool) {
	r.OptOut = optOut
	r.UpdatedAt = time.Now().UTC()
}

// AssignGroup assigns the recipient to the given group and updates the
// UpdatedAt timestamp.
func (r *Recipient) AssignGroup(groupID uuid.UUID) {
	r.GroupID = &groupID
	r.UpdatedAt = time.Now().UTC()
}
