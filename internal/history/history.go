// Package history keeps bounded undo/redo stacks for campaign mutations.
//
// History lives beside the entities, never inside them: snapshots are typed
// deep clones held in memory and are not serialized into the durable
// payload. Each scope owns its own pair of stacks.
package history

import (
	"fmt"
	"log"
	"time"

	"github.com/ematosg/spiretracker/internal/campaign/domain"
	apperrors "github.com/ematosg/spiretracker/internal/platform/errors"
	"github.com/ematosg/spiretracker/internal/platform/id"
)

// ScopeKind names the granularity a history entry restores at.
type ScopeKind string

const (
	// ScopeCampaign snapshots the whole campaign set.
	ScopeCampaign ScopeKind = "campaign"
	// ScopeRelationship snapshots a single relationship.
	ScopeRelationship ScopeKind = "relationship"
	// ScopeSection snapshots one list section of one entity.
	ScopeSection ScopeKind = "section"
)

// Stack caps per scope kind. The oldest entry is evicted on overflow.
const (
	campaignCap     = 20
	relationshipCap = 30
	sectionCap      = 20
)

// Scope identifies one undo/redo stack pair.
type Scope struct {
	Kind       ScopeKind
	CampaignID string
	// TargetID is the relationship id for relationship scopes and the
	// entity id for section scopes.
	TargetID string
	Section  domain.SectionName
}

func (s Scope) key() string {
	return fmt.Sprintf("%s/%s/%s/%s", s.Kind, s.CampaignID, s.TargetID, s.Section)
}

// Snapshot is a typed deep copy at one of the three scope granularities.
// Exactly one field is set, matching the scope kind.
type Snapshot struct {
	Set          *domain.CampaignSet
	Relationship *domain.Relationship
	Items        []string
}

// SetSnapshot captures an isolated copy of the whole campaign set.
func SetSnapshot(set domain.CampaignSet) Snapshot {
	clone := set.Clone()
	return Snapshot{Set: &clone}
}

// RelationshipSnapshot captures an isolated copy of one relationship.
func RelationshipSnapshot(rel domain.Relationship) Snapshot {
	clone := rel.Clone()
	return Snapshot{Relationship: &clone}
}

// SectionSnapshot captures an isolated copy of one section's items.
func SectionSnapshot(items []string) Snapshot {
	copied := append([]string(nil), items...)
	if copied == nil {
		copied = []string{}
	}
	return Snapshot{Items: copied}
}

// Clone returns an isolated copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{}
	if s.Set != nil {
		clone := s.Set.Clone()
		out.Set = &clone
	}
	if s.Relationship != nil {
		clone := s.Relationship.Clone()
		out.Relationship = &clone
	}
	if s.Items != nil {
		out.Items = append([]string(nil), s.Items...)
	}
	return out
}

// matches reports whether the snapshot carries the payload its scope kind
// requires. A mismatch marks the entry corrupt.
func (s Snapshot) matches(kind ScopeKind) bool {
	switch kind {
	case ScopeCampaign:
		return s.Set != nil
	case ScopeRelationship:
		return s.Relationship != nil
	case ScopeSection:
		return s.Items != nil
	}
	return false
}

// Entry is one recorded state a scope can return to.
type Entry struct {
	ID        string
	CreatedAt time.Time
	Label     string
	Scope     Scope
	Snapshot  Snapshot
}

type stacks struct {
	undo []Entry
	redo []Entry
}

// Store keeps the per-scope undo/redo stacks.
//
// Store is not safe for concurrent use; the sync controller serializes
// access to it along with the rest of the session.
type Store struct {
	scopes      map[string]*stacks
	clock       func() time.Time
	idGenerator func() (string, error)
	logf        func(format string, v ...any)
}

// NewStore creates an empty history store.
func NewStore() *Store {
	return &Store{
		scopes:      make(map[string]*stacks),
		clock:       time.Now,
		idGenerator: id.NewID,
		logf:        log.Printf,
	}
}

// SetClock overrides the clock, for tests.
func (s *Store) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

func capFor(kind ScopeKind) int {
	switch kind {
	case ScopeRelationship:
		return relationshipCap
	default:
		return campaignCap
	}
}

func (s *Store) stacksFor(scope Scope) *stacks {
	key := scope.key()
	st, ok := s.scopes[key]
	if !ok {
		st = &stacks{}
		s.scopes[key] = st
	}
	return st
}

// Push records the pre-mutation state for the scope and clears the scope's
// redo stack: a new change after an undo discards the undone future. The
// oldest entry is evicted once the scope cap is reached.
func (s *Store) Push(scope Scope, label string, snap Snapshot) (Entry, error) {
	if !snap.matches(scope.Kind) {
		return Entry{}, apperrors.New(apperrors.CodeSnapshotCorrupt,
			"snapshot does not match scope kind")
	}

	entryID, err := s.idGenerator()
	if err != nil {
		return Entry{}, fmt.Errorf("generate history entry id: %w", err)
	}

	entry := Entry{
		ID:        entryID,
		CreatedAt: s.clock().UTC(),
		Label:     label,
		Scope:     scope,
		Snapshot:  snap.Clone(),
	}

	st := s.stacksFor(scope)
	st.undo = append(st.undo, entry)
	for len(st.undo) > capFor(scope.Kind) {
		st.undo = st.undo[1:]
	}
	st.redo = nil
	return entry, nil
}

// Undo pops the most recent entry for the scope and pushes the
// caller-supplied current state onto the redo stack. Entries whose snapshot
// no longer matches the scope are skipped with a warning.
func (s *Store) Undo(scope Scope, current Snapshot) (Entry, error) {
	st := s.stacksFor(scope)
	entry, ok := s.pop(scope, &st.undo)
	if !ok {
		return Entry{}, apperrors.New(apperrors.CodeHistoryEmpty, "nothing to undo")
	}
	st.redo = append(st.redo, Entry{
		ID:        entry.ID,
		CreatedAt: s.clock().UTC(),
		Label:     entry.Label,
		Scope:     scope,
		Snapshot:  current.Clone(),
	})
	return entry, nil
}

// Redo pops the most recent undone entry for the scope and pushes the
// caller-supplied current state back onto the undo stack.
func (s *Store) Redo(scope Scope, current Snapshot) (Entry, error) {
	st := s.stacksFor(scope)
	entry, ok := s.pop(scope, &st.redo)
	if !ok {
		return Entry{}, apperrors.New(apperrors.CodeHistoryEmpty, "nothing to redo")
	}
	st.undo = append(st.undo, Entry{
		ID:        entry.ID,
		CreatedAt: s.clock().UTC(),
		Label:     entry.Label,
		Scope:     scope,
		Snapshot:  current.Clone(),
	})
	return entry, nil
}

// pop removes entries from the top of the stack until one with a usable
// snapshot is found.
func (s *Store) pop(scope Scope, stack *[]Entry) (Entry, bool) {
	for len(*stack) > 0 {
		top := (*stack)[len(*stack)-1]
		*stack = (*stack)[:len(*stack)-1]
		if top.Snapshot.matches(scope.Kind) {
			return top, true
		}
		s.logf("history: skipping corrupt entry %s for scope %s", top.ID, scope.key())
	}
	return Entry{}, false
}

// CanUndo reports whether the scope has undoable entries.
func (s *Store) CanUndo(scope Scope) bool {
	st, ok := s.scopes[scope.key()]
	return ok && len(st.undo) > 0
}

// CanRedo reports whether the scope has redoable entries.
func (s *Store) CanRedo(scope Scope) bool {
	st, ok := s.scopes[scope.key()]
	return ok && len(st.redo) > 0
}

// Depth returns the undo and redo stack sizes for the scope.
func (s *Store) Depth(scope Scope) (undo, redo int) {
	st, ok := s.scopes[scope.key()]
	if !ok {
		return 0, 0
	}
	return len(st.undo), len(st.redo)
}
