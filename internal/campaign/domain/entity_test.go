package domain

import (
	"testing"

	apperrors "github.com/ematosg/spiretracker/internal/platform/errors"
)

func TestCreateEntity(t *testing.T) {
	entity, err := CreateEntity(CreateEntityInput{
		Name:  "  Ysera of the Silent Court  ",
		Kind:  EntityKindPC,
		Class: "Knight",
	}, staticID("pc-1"))
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}

	if entity.ID != "pc-1" {
		t.Fatalf("expected id pc-1, got %q", entity.ID)
	}
	if entity.Name != "Ysera of the Silent Court" {
		t.Fatalf("expected trimmed name, got %q", entity.Name)
	}
	for _, section := range Sections {
		if entity.Sections[section] == nil {
			t.Fatalf("expected section %s initialized", section)
		}
	}
}

func TestCreateEntityValidation(t *testing.T) {
	cases := []struct {
		name  string
		input CreateEntityInput
		code  apperrors.Code
	}{
		{"empty name", CreateEntityInput{Name: " ", Kind: EntityKindPC}, apperrors.CodeEntityNameEmpty},
		{"missing kind", CreateEntityInput{Name: "x"}, apperrors.CodeEntityInvalidKind},
		{"bad kind", CreateEntityInput{Name: "x", Kind: EntityKind("deity")}, apperrors.CodeEntityInvalidKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateEntity(tc.input, staticID("pc-1"))
			if !apperrors.IsCode(err, tc.code) {
				t.Fatalf("expected code %s, got %v", tc.code, err)
			}
		})
	}
}

func TestEntitySectionRoundTrip(t *testing.T) {
	entity, err := CreateEntity(CreateEntityInput{Name: "x", Kind: EntityKindNPC}, staticID("npc-1"))
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}

	items := []string{"rusted dagger", "forged permit"}
	if err := entity.SetSection(SectionInventory, items); err != nil {
		t.Fatalf("set section: %v", err)
	}

	items[0] = "changed"

	got, err := entity.Section(SectionInventory)
	if err != nil {
		t.Fatalf("get section: %v", err)
	}
	if got[0] != "rusted dagger" {
		t.Fatal("expected stored section to be isolated from caller slice")
	}

	got[1] = "changed"
	again, _ := entity.Section(SectionInventory)
	if again[1] != "forged permit" {
		t.Fatal("expected returned section copy to be isolated")
	}
}

func TestEntitySectionUnknown(t *testing.T) {
	entity, _ := CreateEntity(CreateEntityInput{Name: "x", Kind: EntityKindNPC}, staticID("npc-1"))

	if _, err := entity.Section("spells"); !apperrors.IsCode(err, apperrors.CodeSectionUnknown) {
		t.Fatalf("expected section unknown, got %v", err)
	}
	if err := entity.SetSection("spells", nil); !apperrors.IsCode(err, apperrors.CodeSectionUnknown) {
		t.Fatalf("expected section unknown, got %v", err)
	}
}

func TestTotalStress(t *testing.T) {
	entity := Entity{Resistances: map[Resistance]int{
		ResistanceBlood:  3,
		ResistanceMind:   2,
		ResistanceSilver: 1,
	}}
	if entity.TotalStress() != 6 {
		t.Fatalf("expected total stress 6, got %d", entity.TotalStress())
	}
}

func TestCreateRelationshipValidation(t *testing.T) {
	if _, err := CreateRelationship(CreateRelationshipInput{FromID: "a"}, staticID("rel-1")); !apperrors.IsCode(err, apperrors.CodeRelationshipEmptyEndpoint) {
		t.Fatalf("expected empty endpoint error, got %v", err)
	}
	if _, err := CreateRelationship(CreateRelationshipInput{FromID: "a", ToID: "a"}, staticID("rel-1")); !apperrors.IsCode(err, apperrors.CodeRelationshipSelfLink) {
		t.Fatalf("expected self link error, got %v", err)
	}

	relationship, err := CreateRelationship(CreateRelationshipInput{
		FromID:   " a ",
		ToID:     "b",
		Label:    " owes a debt ",
		Strength: 2,
	}, staticID("rel-1"))
	if err != nil {
		t.Fatalf("create relationship: %v", err)
	}
	if relationship.FromID != "a" || relationship.ToID != "b" {
		t.Fatalf("expected trimmed endpoints, got %q -> %q", relationship.FromID, relationship.ToID)
	}
	if relationship.Label != "owes a debt" {
		t.Fatalf("expected trimmed label, got %q", relationship.Label)
	}
}
