package domain

import (
	"strings"
	"time"

	apperrors "github.com/ematosg/spiretracker/internal/platform/errors"
	"github.com/ematosg/spiretracker/internal/platform/id"
)

// Campaign is the aggregate root for one game: its entities, the
// relationship graph between them, and scalar settings.
type Campaign struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Setting       string                  `json:"setting,omitempty"`
	Entities      map[string]Entity       `json:"entities"`
	Relationships map[string]Relationship `json:"relationships"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// CreateCampaignInput describes the metadata needed to create a campaign.
type CreateCampaignInput struct {
	Name    string
	Setting string
}

// CreateCampaign creates a new campaign with a generated ID and timestamps.
func CreateCampaign(input CreateCampaignInput, now func() time.Time, idGenerator func() (string, error)) (Campaign, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Campaign{}, apperrors.New(apperrors.CodeCampaignNameEmpty, "campaign name is required")
	}

	campaignID, err := idGenerator()
	if err != nil {
		return Campaign{}, apperrors.Wrap(apperrors.CodeUnknown, "generate campaign id", err)
	}

	createdAt := now().UTC()
	return Campaign{
		ID:            campaignID,
		Name:          input.Name,
		Setting:       strings.TrimSpace(input.Setting),
		Entities:      map[string]Entity{},
		Relationships: map[string]Relationship{},
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}, nil
}

// Entity returns the entity with the given id.
func (c Campaign) Entity(entityID string) (Entity, error) {
	entity, ok := c.Entities[entityID]
	if !ok {
		return Entity{}, apperrors.WithMetadata(apperrors.CodeEntityNotFound, "entity not found",
			map[string]string{"EntityID": entityID})
	}
	return entity, nil
}

// Relationship returns the relationship with the given id.
func (c Campaign) Relationship(relationshipID string) (Relationship, error) {
	relationship, ok := c.Relationships[relationshipID]
	if !ok {
		return Relationship{}, apperrors.WithMetadata(apperrors.CodeRelationshipNotFound, "relationship not found",
			map[string]string{"RelationshipID": relationshipID})
	}
	return relationship, nil
}

// PutEntity adds or replaces an entity.
func (c *Campaign) PutEntity(entity Entity) {
	if c.Entities == nil {
		c.Entities = map[string]Entity{}
	}
	c.Entities[entity.ID] = entity
}

// RemoveEntity deletes an entity and every relationship touching it.
// Callers snapshot the whole campaign first; this is a destructive edit.
func (c *Campaign) RemoveEntity(entityID string) error {
	if _, ok := c.Entities[entityID]; !ok {
		return apperrors.WithMetadata(apperrors.CodeEntityNotFound, "entity not found",
			map[string]string{"EntityID": entityID})
	}
	delete(c.Entities, entityID)
	for relationshipID, relationship := range c.Relationships {
		if relationship.FromID == entityID || relationship.ToID == entityID {
			delete(c.Relationships, relationshipID)
		}
	}
	return nil
}

// PutRelationship adds or replaces a relationship.
func (c *Campaign) PutRelationship(relationship Relationship) {
	if c.Relationships == nil {
		c.Relationships = map[string]Relationship{}
	}
	c.Relationships[relationship.ID] = relationship
}

// RemoveRelationship deletes a relationship.
func (c *Campaign) RemoveRelationship(relationshipID string) error {
	if _, ok := c.Relationships[relationshipID]; !ok {
		return apperrors.WithMetadata(apperrors.CodeRelationshipNotFound, "relationship not found",
			map[string]string{"RelationshipID": relationshipID})
	}
	delete(c.Relationships, relationshipID)
	return nil
}

// Touch records a mutation time.
func (c *Campaign) Touch(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	c.UpdatedAt = now().UTC()
}

// Clone returns a deep copy of the campaign with no shared mutable structure.
func (c Campaign) Clone() Campaign {
	cloned := c
	if c.Entities != nil {
		cloned.Entities = make(map[string]Entity, len(c.Entities))
		for entityID, entity := range c.Entities {
			cloned.Entities[entityID] = entity.Clone()
		}
	}
	if c.Relationships != nil {
		cloned.Relationships = make(map[string]Relationship, len(c.Relationships))
		for relationshipID, relationship := range c.Relationships {
			cloned.Relationships[relationshipID] = relationship.Clone()
		}
	}
	return cloned
}
