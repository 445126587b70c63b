// Package queue holds writes that could not be committed immediately, either
// because the context was offline or because a conflict blocks direct commits.
//
// The queue itself is persisted through the durable store so it survives
// restarts. Flushing is event-triggered — connectivity regained or an
// explicit retry — never polled.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ematosg/spiretracker/internal/campaign/snapshot"
	"github.com/ematosg/spiretracker/internal/conflict"
	apperrors "github.com/ematosg/spiretracker/internal/platform/errors"
	"github.com/ematosg/spiretracker/internal/platform/id"
	"github.com/ematosg/spiretracker/internal/revision"
	"github.com/ematosg/spiretracker/internal/storage"
)

// KindCampaignPut is a queued full-state campaign set write. Later ops of
// the same kind supersede earlier ones: only the most recent full-state
// payload is meaningful.
const KindCampaignPut = "campaign_put"

// DefaultCap bounds the queue; the oldest entry is evicted on overflow.
const DefaultCap = 25

// PendingOperation is one queued write, tagged with the revision its author
// believed was current when it was queued.
type PendingOperation struct {
	ID           string
	CreatedAt    time.Time
	Kind         string
	BaseRevision revision.Token
	Payload      []byte
}

// Queue is a bounded, durable, ordered log of pending operations for one user.
//
// Queue is not safe for concurrent use; the sync controller serializes
// access to it along with the rest of the session.
type Queue struct {
	userID      string
	store       storage.PendingOpStore
	codec       snapshot.Codec
	cap         int
	clock       func() time.Time
	idGenerator func() (string, error)
	ops         []PendingOperation
}

// New creates a queue for the given user backed by the given store.
func New(store storage.PendingOpStore, userID string) *Queue {
	return &Queue{
		userID:      userID,
		store:       store,
		cap:         DefaultCap,
		clock:       time.Now,
		idGenerator: id.NewID,
	}
}

// SetCap overrides the queue bound. Values below one are ignored.
func (q *Queue) SetCap(cap int) {
	if cap >= 1 {
		q.cap = cap
	}
}

// SetClock overrides the clock, for tests.
func (q *Queue) SetClock(clock func() time.Time) {
	if clock != nil {
		q.clock = clock
	}
}

// Load restores the persisted queue contents.
func (q *Queue) Load(ctx context.Context) error {
	if q.store == nil {
		return fmt.Errorf("pending op store is not configured")
	}
	records, err := q.store.LoadPending(ctx, q.userID)
	if err != nil {
		return fmt.Errorf("load pending ops: %w", err)
	}
	q.ops = q.ops[:0]
	for _, record := range records {
		q.ops = append(q.ops, PendingOperation{
			ID:           record.ID,
			CreatedAt:    record.CreatedAt,
			Kind:         record.Kind,
			BaseRevision: revision.Token(record.BaseRevision),
			Payload:      record.Payload,
		})
	}
	return nil
}

// Len returns the number of queued operations.
func (q *Queue) Len() int {
	return len(q.ops)
}

// Ops returns a copy of the queued operations in order.
func (q *Queue) Ops() []PendingOperation {
	return append([]PendingOperation(nil), q.ops...)
}

// Enqueue appends a new pending operation and persists the queue. When the
// bound is reached the oldest entry is evicted first.
func (q *Queue) Enqueue(ctx context.Context, kind string, baseRevision revision.Token, payload []byte) (PendingOperation, error) {
	opID, err := q.idGenerator()
	if err != nil {
		return PendingOperation{}, fmt.Errorf("generate pending op id: %w", err)
	}

	op := PendingOperation{
		ID:           opID,
		CreatedAt:    q.clock().UTC(),
		Kind:         kind,
		BaseRevision: baseRevision,
		Payload:      payload,
	}
	q.ops = append(q.ops, op)
	for len(q.ops) > q.cap {
		q.ops = q.ops[1:]
	}

	if err := q.persist(ctx); err != nil {
		return PendingOperation{}, err
	}
	return op, nil
}

// Discard removes the identified operations and persists the queue.
func (q *Queue) Discard(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, opID := range ids {
		drop[opID] = struct{}{}
	}

	kept := q.ops[:0]
	for _, op := range q.ops {
		if _, ok := drop[op.ID]; !ok {
			kept = append(kept, op)
		}
	}
	q.ops = kept
	return q.persist(ctx)
}

// Flush attempts to commit the most recent campaign_put operation. The
// commit proceeds only when the operation's base revision equals the
// store's current revision, or when the base revision is empty and the
// store holds nothing yet (a first-ever write).
//
// On success every campaign_put op is cleared and the fresh token is
// returned along with the number of cleared ops. On a base-revision
// mismatch the flush is refused with CodeQueueFlushRejected and the oracle
// observes the durable revision, so the divergence surfaces as a conflict
// instead of silently dropping data.
func (q *Queue) Flush(ctx context.Context, campaigns storage.CampaignStore, oracle conflict.Oracle) (revision.Token, int, error) {
	latest, count := q.latest(KindCampaignPut)
	if count == 0 {
		return "", 0, nil
	}

	current, err := campaigns.Revision(ctx, q.userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		current = ""
	case err != nil:
		return "", 0, fmt.Errorf("read current revision: %w", err)
	}

	if !revision.Equal(latest.BaseRevision, current) {
		if oracle != nil {
			oracle.Observe(current)
		}
		return "", 0, apperrors.WithMetadata(apperrors.CodeQueueFlushRejected,
			"queued write is based on a stale revision",
			map[string]string{
				"BaseRevision":    string(latest.BaseRevision),
				"CurrentRevision": string(current),
			})
	}

	set, err := q.codec.DecodeSet(latest.Payload)
	if err != nil {
		return "", 0, err
	}
	token, err := campaigns.Put(ctx, q.userID, set)
	if err != nil {
		return "", 0, apperrors.Wrap(apperrors.CodeStorageWriteFailure, "flush queued write", err)
	}

	kept := q.ops[:0]
	for _, op := range q.ops {
		if op.Kind != KindCampaignPut {
			kept = append(kept, op)
		}
	}
	q.ops = kept
	if err := q.persist(ctx); err != nil {
		return "", 0, err
	}
	return token, count, nil
}

// latest returns the most recent op of the given kind and how many ops of
// that kind are queued.
func (q *Queue) latest(kind string) (PendingOperation, int) {
	var latest PendingOperation
	count := 0
	for _, op := range q.ops {
		if op.Kind == kind {
			latest = op
			count++
		}
	}
	return latest, count
}

func (q *Queue) persist(ctx context.Context) error {
	if q.store == nil {
		return fmt.Errorf("pending op store is not configured")
	}
	records := make([]storage.PendingOpRecord, 0, len(q.ops))
	for _, op := range q.ops {
		records = append(records, storage.PendingOpRecord{
			ID:           op.ID,
			CreatedAt:    op.CreatedAt,
			Kind:         op.Kind,
			BaseRevision: string(op.BaseRevision),
			Payload:      op.Payload,
		})
	}
	if err := q.store.SavePending(ctx, q.userID, records); err != nil {
		return fmt.Errorf("persist pending ops: %w", err)
	}
	return nil
}
