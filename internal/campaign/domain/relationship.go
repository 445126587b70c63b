package domain

import (
	"strings"

	apperrors "github.com/ematosg/spiretracker/internal/platform/errors"
	"github.com/ematosg/spiretracker/internal/platform/id"
)

// Relationship links two entities on the relationship graph.
type Relationship struct {
	ID       string `json:"id"`
	FromID   string `json:"from_id"`
	ToID     string `json:"to_id"`
	Label    string `json:"label,omitempty"`
	Strength int    `json:"strength"`
	Notes    string `json:"notes,omitempty"`
}

// CreateRelationshipInput describes the data needed to create a relationship.
type CreateRelationshipInput struct {
	FromID   string
	ToID     string
	Label    string
	Strength int
}

// CreateRelationship creates a new relationship with a generated ID.
func CreateRelationship(input CreateRelationshipInput, idGenerator func() (string, error)) (Relationship, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.FromID = strings.TrimSpace(input.FromID)
	input.ToID = strings.TrimSpace(input.ToID)
	if input.FromID == "" || input.ToID == "" {
		return Relationship{}, apperrors.New(apperrors.CodeRelationshipEmptyEndpoint, "relationship endpoints are required")
	}
	if input.FromID == input.ToID {
		return Relationship{}, apperrors.New(apperrors.CodeRelationshipSelfLink, "relationship cannot link an entity to itself")
	}

	relationshipID, err := idGenerator()
	if err != nil {
		return Relationship{}, apperrors.Wrap(apperrors.CodeUnknown, "generate relationship id", err)
	}

	return Relationship{
		ID:       relationshipID,
		FromID:   input.FromID,
		ToID:     input.ToID,
		Label:    strings.TrimSpace(input.Label),
		Strength: input.Strength,
	}, nil
}

// Clone returns an isolated copy of the relationship.
func (r Relationship) Clone() Relationship {
	return r
}
