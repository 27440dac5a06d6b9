package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Group
var (
	ErrEmptyGroupID   = errors.New("group ID cannot be empty")
	ErrEmptyGroupName = errors.New("group name cannot be empty")
)

// Group organizes recipients into a named segment. Group names are unique
// across the directory; membership is recorded on the recipient side via
// its group reference.
type Group struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewGroup creates a new Group with the given name and optional description.
// Returns an error if validation fails.
func NewGroup(name, description string) (*Group, error) {
	group := &Group{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := group.Validate(); err != nil {
		return nil, err
	}

	return group, nil
}

// Rename changes the group name and updates the UpdatedAt timestamp.
func (g *Group) Rename(name string) {
	g.Name = name
	g.UpdatedAt = time.Now().UTC()
}

// SetDescription changes the description and updates the UpdatedAt
// timestamp.
func (g *Group) SetDescription(description string) {
	g.Description = description
	g.UpdatedAt = time.Now().UTC()
}

// Validate checks if the Group has valid data.
func (g *Group) Validate() error {
	if g.ID == uuid.Nil {
		return ErrEmptyGroupID
	}

	if g.Name == "" {
		return ErrEmptyGroupName
	}

	return nil
}
