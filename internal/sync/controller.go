// Package sync coordinates one writer context: it owns the save path, the
// conflict state, the offline queue, the undo/redo stacks, and the
// announcements that keep other contexts honest.
//
// The controller runs single-threaded by design: mutations apply
// synchronously between snapshot and commit, with no suspension point in
// between. The mutex on the entry points only keeps concurrent callers from
// corrupting one context; coordination between contexts is the revision
// protocol's job, never the lock's.
package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/ematosg/spiretracker/internal/campaign/domain"
	"github.com/ematosg/spiretracker/internal/campaign/snapshot"
	"github.com/ematosg/spiretracker/internal/conflict"
	"github.com/ematosg/spiretracker/internal/history"
	"github.com/ematosg/spiretracker/internal/notify"
	apperrors "github.com/ematosg/spiretracker/internal/platform/errors"
	"github.com/ematosg/spiretracker/internal/queue"
	"github.com/ematosg/spiretracker/internal/revision"
	"github.com/ematosg/spiretracker/internal/storage"
)

// Status names the states of the save path.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusSaving          Status = "saving"
	StatusSaved           Status = "saved"
	StatusOffline         Status = "offline"
	StatusConflictBlocked Status = "conflict_blocked"
	StatusWriteFailed     Status = "write_failed"
)

// SaveOutcome reports where a mutation landed: committed, queued for later,
// or blocked. Err carries the non-fatal cause when the commit did not
// happen; the in-memory state is usable either way.
type SaveOutcome struct {
	Status   Status
	Revision revision.Token
	Queued   bool
	Err      error
}

// SessionContext is the explicit per-context state threaded through the
// controller: who is editing, from which client, and what they believe the
// current revision is. Nothing about a session lives in package state.
type SessionContext struct {
	UserID    string
	ClientID  string
	Actor     string
	ActorRole string
	Set       *domain.CampaignSet
	Revision  revision.Token
}

// Controller drives saves, conflict resolution, offline queueing, and
// scoped undo/redo for one session.
type Controller struct {
	mu      stdsync.Mutex
	session *SessionContext
	store   storage.Store
	monitor *conflict.Monitor
	queue   *queue.Queue
	notes   *notify.Notifier
	history *history.Store
	codec   snapshot.Codec
	clock   func() time.Time

	online bool
	status Status
	// isApplying guards undo/redo restores so applying a snapshot never
	// pushes history recursively.
	isApplying bool
}

// NewController wires a controller for the session and subscribes it to the
// notifier's event stream.
func NewController(session *SessionContext, store storage.Store, notes *notify.Notifier) *Controller {
	c := &Controller{
		session: session,
		store:   store,
		monitor: conflict.NewMonitor(session.Revision),
		queue:   queue.New(store, session.UserID),
		notes:   notes,
		history: history.NewStore(),
		clock:   time.Now,
		online:  true,
		status:  StatusIdle,
	}
	if notes != nil {
		notes.Subscribe(c.HandleEvent)
	}
	return c
}

// SetClock overrides the clock, for tests.
func (c *Controller) SetClock(clock func() time.Time) {
	if clock != nil {
		c.clock = clock
	}
}

// Load replaces the session state with the durable one and restores the
// persisted offline queue. A missing record leaves the session's empty set
// in place for the caller to seed. An unreadable live payload falls back to
// the rolling backup copy.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.queue.Load(ctx); err != nil {
		return err
	}
	set, token, err := c.store.Get(ctx, c.session.UserID)
	switch {
	case apperrors.IsCode(err, apperrors.CodeSnapshotCorrupt):
		backup, _, berr := c.store.Backup(ctx, c.session.UserID)
		if berr != nil {
			return err
		}
		set = backup
		if token, err = c.store.Revision(ctx, c.session.UserID); err != nil {
			token = ""
		}
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, "no saved campaigns", err)
	case err != nil:
		return err
	}
	*c.session.Set = set
	c.session.Revision = token
	c.monitor.Clear(token)
	return nil
}

// Status returns the save path's current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ConflictState returns the sticky conflict flag.
func (c *Controller) ConflictState() conflict.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitor.State()
}

// QueuedOps returns how many operations wait in the offline queue.
func (c *Controller) QueuedOps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

// CanUndo reports whether the scope has undoable entries.
func (c *Controller) CanUndo(scope history.Scope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.CanUndo(scope)
}

// CanRedo reports whether the scope has redoable entries.
func (c *Controller) CanRedo(scope history.Scope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.CanRedo(scope)
}

// Mutate snapshots the scope, applies fn to the live set, and commits the
// result. A failed fn leaves both the set and the history untouched. The
// commit downgrades to the offline queue when the context is offline, when
// a conflict blocks it, or when the write itself fails.
func (c *Controller) Mutate(ctx context.Context, scope history.Scope, label string, fn func(*domain.CampaignSet) error) (SaveOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return SaveOutcome{Status: c.status}, err
	}

	before, err := c.captureSnapshot(scope)
	if err != nil {
		return SaveOutcome{Status: c.status}, err
	}
	if err := fn(c.session.Set); err != nil {
		return SaveOutcome{Status: c.status}, err
	}
	if !c.isApplying {
		if _, err := c.history.Push(scope, label, before); err != nil {
			return SaveOutcome{Status: c.status}, err
		}
	}
	return c.commit(ctx, scope.CampaignID)
}

// Undo restores the scope's most recent recorded state and commits the
// restore, advancing the revision like any other change.
func (c *Controller) Undo(ctx context.Context, scope history.Scope) (SaveOutcome, error) {
	return c.timeTravel(ctx, scope, true)
}

// Redo re-applies the scope's most recently undone state and commits it.
func (c *Controller) Redo(ctx context.Context, scope history.Scope) (SaveOutcome, error) {
	return c.timeTravel(ctx, scope, false)
}

func (c *Controller) timeTravel(ctx context.Context, scope history.Scope, undo bool) (SaveOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return SaveOutcome{Status: c.status}, err
	}

	current, err := c.captureSnapshot(scope)
	if err != nil {
		return SaveOutcome{Status: c.status}, err
	}

	var entry history.Entry
	if undo {
		entry, err = c.history.Undo(scope, current)
	} else {
		entry, err = c.history.Redo(scope, current)
	}
	if err != nil {
		return SaveOutcome{Status: c.status}, err
	}

	c.isApplying = true
	err = c.applySnapshot(scope, entry.Snapshot)
	c.isApplying = false
	if err != nil {
		return SaveOutcome{Status: c.status}, err
	}
	return c.commit(ctx, scope.CampaignID)
}

// ResolveConflict ends or hides an active conflict. reload_latest replaces
// local state with the durable state and drops the queued writes built on
// it; force_overwrite commits local state unconditionally; dismiss hides
// the signal without clearing the condition.
func (c *Controller) ResolveConflict(ctx context.Context, kind conflict.ResolutionKind) (SaveOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.monitor.Active() {
		return SaveOutcome{Status: c.status}, apperrors.New(apperrors.CodeConflictActive,
			"no active conflict to resolve")
	}

	switch kind {
	case conflict.ResolutionDismiss:
		c.monitor.Dismiss()
		return SaveOutcome{Status: StatusIdle, Revision: c.session.Revision}, nil

	case conflict.ResolutionReloadLatest:
		set, token, err := c.store.Get(ctx, c.session.UserID)
		if err != nil {
			return SaveOutcome{Status: c.status}, err
		}
		*c.session.Set = set
		c.session.Revision = token
		c.monitor.Clear(token)
		if err := c.discardQueuedPuts(ctx); err != nil {
			return SaveOutcome{Status: c.status}, err
		}
		c.status = StatusIdle
		return SaveOutcome{Status: StatusIdle, Revision: token}, nil

	case conflict.ResolutionForceOverwrite:
		token, err := c.store.Put(ctx, c.session.UserID, *c.session.Set)
		if err != nil {
			return SaveOutcome{Status: StatusWriteFailed, Err: err}, nil
		}
		c.session.Revision = token
		c.monitor.Clear(token)
		if err := c.discardQueuedPuts(ctx); err != nil {
			return SaveOutcome{Status: c.status}, err
		}
		c.announce(token, c.session.Set.ActiveID)
		c.status = StatusIdle
		return SaveOutcome{Status: StatusSaved, Revision: token}, nil
	}

	return SaveOutcome{Status: c.status}, apperrors.WithMetadata(apperrors.CodeUnknown,
		"unknown conflict resolution", map[string]string{"Kind": string(kind)})
}

// SetOnline flips connectivity. Regaining it flushes the offline queue; a
// stale queued write surfaces as a conflict instead of committing.
func (c *Controller) SetOnline(ctx context.Context, online bool) (SaveOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasOffline := !c.online
	c.online = online
	if !online || !wasOffline {
		c.status = StatusIdle
		return SaveOutcome{Status: StatusIdle, Revision: c.session.Revision}, nil
	}
	return c.flushQueue(ctx)
}

// RetryQueued flushes the offline queue without a connectivity change, the
// explicit-retry trigger. An empty queue is reported as such.
func (c *Controller) RetryQueued(ctx context.Context) (SaveOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.Len() == 0 {
		return SaveOutcome{Status: c.status}, apperrors.New(apperrors.CodeQueueEmpty,
			"no queued writes to retry")
	}
	return c.flushQueue(ctx)
}

// flushQueue drains the pending campaign writes. Callers hold the lock.
func (c *Controller) flushQueue(ctx context.Context) (SaveOutcome, error) {
	token, flushed, err := c.queue.Flush(ctx, c.store, c.monitor)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeQueueFlushRejected) {
			c.status = StatusConflictBlocked
			return SaveOutcome{Status: StatusConflictBlocked, Revision: c.session.Revision, Err: err}, nil
		}
		return SaveOutcome{Status: c.status}, err
	}
	if flushed == 0 {
		c.status = StatusIdle
		return SaveOutcome{Status: StatusIdle, Revision: c.session.Revision}, nil
	}

	c.session.Revision = token
	c.monitor.SetKnown(token)
	c.announce(token, c.session.Set.ActiveID)
	c.status = StatusIdle
	return SaveOutcome{Status: StatusSaved, Revision: token}, nil
}

// HandleEvent receives announcements from other contexts. Echoes of this
// context's own saves and already-known revisions are dropped; anything
// else feeds the conflict monitor.
func (c *Controller) HandleEvent(event notify.Event) {
	if event.Type != notify.TypeCampaignSaved {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if event.ClientID == c.session.ClientID {
		return
	}
	if revision.Equal(event.Revision, c.session.Revision) {
		return
	}
	c.monitor.Observe(event.Revision)
}

// commit runs the save state machine for the current in-memory set.
// Callers hold the lock.
func (c *Controller) commit(ctx context.Context, campaignID string) (SaveOutcome, error) {
	if campaignID == "" {
		campaignID = c.session.Set.ActiveID
	}

	if c.monitor.Active() {
		c.monitor.NoteLocalEdit()
		if err := c.enqueue(ctx); err != nil {
			return SaveOutcome{Status: c.status}, err
		}
		c.status = StatusConflictBlocked
		return SaveOutcome{
			Status: StatusConflictBlocked,
			Queued: true,
			Err:    apperrors.New(apperrors.CodeConflictActive, "save blocked by an unresolved conflict"),
		}, nil
	}

	if !c.online {
		if err := c.enqueue(ctx); err != nil {
			return SaveOutcome{Status: c.status}, err
		}
		c.status = StatusOffline
		return SaveOutcome{Status: StatusOffline, Queued: true}, nil
	}

	c.status = StatusSaving
	token, err := c.store.Put(ctx, c.session.UserID, *c.session.Set)
	if err != nil {
		if qerr := c.enqueue(ctx); qerr != nil {
			c.status = StatusWriteFailed
			return SaveOutcome{Status: StatusWriteFailed}, qerr
		}
		c.status = StatusWriteFailed
		return SaveOutcome{
			Status: StatusWriteFailed,
			Queued: true,
			Err:    apperrors.Wrap(apperrors.CodeStorageWriteFailure, "commit campaign set", err),
		}, nil
	}

	c.session.Revision = token
	c.monitor.SetKnown(token)
	c.announce(token, campaignID)
	c.status = StatusSaved
	return SaveOutcome{Status: StatusSaved, Revision: token}, nil
}

func (c *Controller) enqueue(ctx context.Context) error {
	payload, err := c.codec.EncodeSet(*c.session.Set)
	if err != nil {
		return err
	}
	_, err = c.queue.Enqueue(ctx, queue.KindCampaignPut, c.session.Revision, payload)
	return err
}

func (c *Controller) discardQueuedPuts(ctx context.Context) error {
	var ids []string
	for _, op := range c.queue.Ops() {
		if op.Kind == queue.KindCampaignPut {
			ids = append(ids, op.ID)
		}
	}
	return c.queue.Discard(ctx, ids...)
}

func (c *Controller) announce(token revision.Token, campaignID string) {
	if c.notes == nil {
		return
	}
	c.notes.Announce(notify.Event{
		Type:       notify.TypeCampaignSaved,
		Revision:   token,
		CampaignID: campaignID,
		Actor:      c.session.Actor,
		ActorRole:  c.session.ActorRole,
		ClientID:   c.session.ClientID,
		Time:       c.clock().UTC(),
	})
}

// captureSnapshot reads the scope's current state from the live set.
func (c *Controller) captureSnapshot(scope history.Scope) (history.Snapshot, error) {
	switch scope.Kind {
	case history.ScopeCampaign:
		return history.SetSnapshot(*c.session.Set), nil

	case history.ScopeRelationship:
		campaign, err := c.session.Set.Campaign(scope.CampaignID)
		if err != nil {
			return history.Snapshot{}, err
		}
		rel, err := campaign.Relationship(scope.TargetID)
		if err != nil {
			return history.Snapshot{}, err
		}
		return history.RelationshipSnapshot(rel), nil

	case history.ScopeSection:
		campaign, err := c.session.Set.Campaign(scope.CampaignID)
		if err != nil {
			return history.Snapshot{}, err
		}
		entity, err := campaign.Entity(scope.TargetID)
		if err != nil {
			return history.Snapshot{}, err
		}
		items, err := entity.Section(scope.Section)
		if err != nil {
			return history.Snapshot{}, err
		}
		return history.SectionSnapshot(items), nil
	}
	return history.Snapshot{}, apperrors.WithMetadata(apperrors.CodeUnknown,
		"unknown history scope", map[string]string{"Kind": string(scope.Kind)})
}

// applySnapshot writes the snapshot back at the scope's granularity: the
// whole set, one relationship, or one section. Sibling state outside the
// scope is untouched.
func (c *Controller) applySnapshot(scope history.Scope, snap history.Snapshot) error {
	switch scope.Kind {
	case history.ScopeCampaign:
		*c.session.Set = snap.Set.Clone()
		return nil

	case history.ScopeRelationship:
		campaign, err := c.session.Set.Campaign(scope.CampaignID)
		if err != nil {
			return err
		}
		campaign.PutRelationship(snap.Relationship.Clone())
		campaign.Touch(c.clock)
		c.session.Set.PutCampaign(campaign)
		return nil

	case history.ScopeSection:
		campaign, err := c.session.Set.Campaign(scope.CampaignID)
		if err != nil {
			return err
		}
		entity, err := campaign.Entity(scope.TargetID)
		if err != nil {
			return err
		}
		if err := entity.SetSection(scope.Section, snap.Items); err != nil {
			return err
		}
		campaign.PutEntity(entity)
		campaign.Touch(c.clock)
		c.session.Set.PutCampaign(campaign)
		return nil
	}
	return apperrors.WithMetadata(apperrors.CodeUnknown,
		"unknown history scope", map[string]string{"Kind": string(scope.Kind)})
}
