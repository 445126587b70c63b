package domain

import (
	"strings"

	apperrors "github.com/ematosg/spiretracker/internal/platform/errors"
	"github.com/ematosg/spiretracker/internal/platform/id"
)

// EntityKind describes what an entity represents in the campaign.
type EntityKind string

const (
	// EntityKindPC is a player character.
	EntityKindPC EntityKind = "pc"
	// EntityKindNPC is a non-player character.
	EntityKindNPC EntityKind = "npc"
	// EntityKindOrganisation is a faction or organisation.
	EntityKindOrganisation EntityKind = "organisation"
)

// Resistance names a stress track on an entity.
type Resistance string

const (
	ResistanceBlood      Resistance = "blood"
	ResistanceMind       Resistance = "mind"
	ResistanceSilver     Resistance = "silver"
	ResistanceShadow     Resistance = "shadow"
	ResistanceReputation Resistance = "reputation"
)

// Resistances lists every stress track in display order.
var Resistances = []Resistance{
	ResistanceBlood,
	ResistanceMind,
	ResistanceSilver,
	ResistanceShadow,
	ResistanceReputation,
}

// KnownResistance reports whether name is a valid stress track.
func KnownResistance(name Resistance) bool {
	for _, r := range Resistances {
		if r == name {
			return true
		}
	}
	return false
}

// SectionName names one of an entity's list-valued sections.
type SectionName string

const (
	SectionTasks     SectionName = "tasks"
	SectionInventory SectionName = "inventory"
	SectionBonds     SectionName = "bonds"
)

// Sections lists every entity section that supports scoped undo.
var Sections = []SectionName{SectionTasks, SectionInventory, SectionBonds}

// KnownSection reports whether name is a valid entity section.
func KnownSection(name SectionName) bool {
	for _, s := range Sections {
		if s == name {
			return true
		}
	}
	return false
}

// Entity represents a character, NPC, or organisation in a campaign.
type Entity struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Kind        EntityKind         `json:"kind"`
	Class       string             `json:"class,omitempty"`
	Notes       string             `json:"notes,omitempty"`
	Resistances map[Resistance]int `json:"resistances,omitempty"`
	Fallout     []string           `json:"fallout,omitempty"`
	Sections    map[SectionName][]string `json:"sections,omitempty"`
}

// CreateEntityInput describes the data needed to create an entity.
type CreateEntityInput struct {
	Name  string
	Kind  EntityKind
	Class string
	Notes string
}

// CreateEntity creates a new entity with a generated ID and empty sections.
func CreateEntity(input CreateEntityInput, idGenerator func() (string, error)) (Entity, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Entity{}, apperrors.New(apperrors.CodeEntityNameEmpty, "entity name is required")
	}
	switch input.Kind {
	case EntityKindPC, EntityKindNPC, EntityKindOrganisation:
	default:
		return Entity{}, apperrors.WithMetadata(apperrors.CodeEntityInvalidKind, "invalid entity kind",
			map[string]string{"Kind": string(input.Kind)})
	}

	entityID, err := idGenerator()
	if err != nil {
		return Entity{}, apperrors.Wrap(apperrors.CodeUnknown, "generate entity id", err)
	}

	return Entity{
		ID:    entityID,
		Name:  input.Name,
		Kind:  input.Kind,
		Class: strings.TrimSpace(input.Class),
		Notes: input.Notes,
		Resistances: map[Resistance]int{},
		Sections: map[SectionName][]string{
			SectionTasks:     {},
			SectionInventory: {},
			SectionBonds:     {},
		},
	}, nil
}

// Section returns a copy of the named section list.
func (e Entity) Section(name SectionName) ([]string, error) {
	if !KnownSection(name) {
		return nil, apperrors.WithMetadata(apperrors.CodeSectionUnknown, "unknown entity section",
			map[string]string{"Section": string(name)})
	}
	return append([]string(nil), e.Sections[name]...), nil
}

// SetSection replaces the named section list with an isolated copy of items.
func (e *Entity) SetSection(name SectionName, items []string) error {
	if !KnownSection(name) {
		return apperrors.WithMetadata(apperrors.CodeSectionUnknown, "unknown entity section",
			map[string]string{"Section": string(name)})
	}
	if e.Sections == nil {
		e.Sections = map[SectionName][]string{}
	}
	e.Sections[name] = append([]string(nil), items...)
	return nil
}

// TotalStress sums stress across every resistance track.
func (e Entity) TotalStress() int {
	total := 0
	for _, value := range e.Resistances {
		total += value
	}
	return total
}

// Clone returns a deep copy of the entity with no shared mutable structure.
func (e Entity) Clone() Entity {
	cloned := e
	if e.Resistances != nil {
		cloned.Resistances = make(map[Resistance]int, len(e.Resistances))
		for track, value := range e.Resistances {
			cloned.Resistances[track] = value
		}
	}
	if e.Fallout != nil {
		cloned.Fallout = append([]string(nil), e.Fallout...)
	}
	if e.Sections != nil {
		cloned.Sections = make(map[SectionName][]string, len(e.Sections))
		for name, items := range e.Sections {
			cloned.Sections[name] = append([]string(nil), items...)
		}
	}
	return cloned
}
