package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ematosg/spiretracker/internal/campaign/domain"
	"github.com/ematosg/spiretracker/internal/campaign/snapshot"
	"github.com/ematosg/spiretracker/internal/conflict"
	apperrors "github.com/ematosg/spiretracker/internal/platform/errors"
	"github.com/ematosg/spiretracker/internal/revision"
	"github.com/ematosg/spiretracker/internal/storage/bbolt"
)

func openTestStore(t *testing.T) *bbolt.Store {
	t.Helper()
	store, err := bbolt.Open(filepath.Join(t.TempDir(), "spiretracker.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func encodedSet(t *testing.T, name string) []byte {
	t.Helper()
	campaign, err := domain.CreateCampaign(domain.CreateCampaignInput{Name: name},
		func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) },
		func() (string, error) { return "camp-1", nil })
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	set := domain.NewCampaignSet()
	set.PutCampaign(campaign)

	payload, err := snapshot.Codec{}.EncodeSet(set)
	if err != nil {
		t.Fatalf("encode set: %v", err)
	}
	return payload
}

func TestEnqueuePersistsAcrossReload(t *testing.T) {
	store := openTestStore(t)

	q := New(store, "user-1")
	if _, err := q.Enqueue(context.Background(), KindCampaignPut, "r0", encodedSet(t, "x")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	reloaded := New(store, "user-1")
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.Len() != 1 {
		t.Fatalf("expected 1 op after reload, got %d", reloaded.Len())
	}
	op := reloaded.Ops()[0]
	if op.Kind != KindCampaignPut || !revision.Equal(op.BaseRevision, "r0") {
		t.Fatalf("unexpected op after reload: %+v", op)
	}
}

func TestEnqueueEvictsOldestAtCap(t *testing.T) {
	store := openTestStore(t)

	q := New(store, "user-1")
	q.SetCap(3)

	for i := 0; i < 5; i++ {
		base := revision.Token(fmt.Sprintf("r%d", i))
		if _, err := q.Enqueue(context.Background(), KindCampaignPut, base, encodedSet(t, "x")); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	if q.Len() != 3 {
		t.Fatalf("expected 3 ops at cap, got %d", q.Len())
	}
	ops := q.Ops()
	for i, want := range []revision.Token{"r2", "r3", "r4"} {
		if !revision.Equal(ops[i].BaseRevision, want) {
			t.Fatalf("expected base %s at %d, got %s", want, i, ops[i].BaseRevision)
		}
	}
}

func TestFlushFirstEverWrite(t *testing.T) {
	store := openTestStore(t)

	q := New(store, "user-1")
	if _, err := q.Enqueue(context.Background(), KindCampaignPut, "", encodedSet(t, "first")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	token, flushed, err := q.Flush(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flushed != 1 {
		t.Fatalf("expected 1 flushed op, got %d", flushed)
	}
	if token.IsZero() {
		t.Fatal("expected fresh revision token")
	}
	if q.Len() != 0 {
		t.Fatalf("expected cleared queue, got %d", q.Len())
	}

	_, storedToken, err := store.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get set: %v", err)
	}
	if !revision.Equal(token, storedToken) {
		t.Fatalf("expected stored revision %s, got %s", token, storedToken)
	}
}

func TestFlushMatchingBaseRevision(t *testing.T) {
	store := openTestStore(t)

	set, err := snapshot.Codec{}.DecodeSet(encodedSet(t, "base"))
	if err != nil {
		t.Fatalf("decode set: %v", err)
	}
	r0, err := store.Put(context.Background(), "user-1", set)
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}

	q := New(store, "user-1")
	if _, err := q.Enqueue(context.Background(), KindCampaignPut, r0, encodedSet(t, "queued")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	token, flushed, err := q.Flush(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flushed != 1 || token.IsZero() {
		t.Fatalf("expected successful flush, got count %d token %s", flushed, token)
	}
	if revision.Equal(token, r0) {
		t.Fatal("expected revision to advance past r0")
	}
}

func TestFlushStaleBaseRevisionRejected(t *testing.T) {
	store := openTestStore(t)

	set, err := snapshot.Codec{}.DecodeSet(encodedSet(t, "base"))
	if err != nil {
		t.Fatalf("decode set: %v", err)
	}
	if _, err := store.Put(context.Background(), "user-1", set); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	q := New(store, "user-1")
	if _, err := q.Enqueue(context.Background(), KindCampaignPut, "stale-rev", encodedSet(t, "queued")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	monitor := conflict.NewMonitor("stale-rev")
	_, _, err = q.Flush(context.Background(), store, monitor)
	if !apperrors.IsCode(err, apperrors.CodeQueueFlushRejected) {
		t.Fatalf("expected queue flush rejected, got %v", err)
	}

	// The rejection surfaces as a conflict instead of dropping data.
	if !monitor.Active() {
		t.Fatal("expected conflict raised by rejected flush")
	}
	if q.Len() != 1 {
		t.Fatalf("expected op kept after rejection, got %d", q.Len())
	}

	// The durable state is untouched.
	loaded, _, err := store.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get set: %v", err)
	}
	campaign, err := loaded.Campaign("camp-1")
	if err != nil {
		t.Fatalf("lookup campaign: %v", err)
	}
	if campaign.Name != "base" {
		t.Fatalf("expected durable state unchanged, got %q", campaign.Name)
	}
}

func TestFlushTakesLatestOpOfKind(t *testing.T) {
	store := openTestStore(t)

	q := New(store, "user-1")
	if _, err := q.Enqueue(context.Background(), KindCampaignPut, "", encodedSet(t, "older")); err != nil {
		t.Fatalf("enqueue older: %v", err)
	}
	if _, err := q.Enqueue(context.Background(), KindCampaignPut, "", encodedSet(t, "newest")); err != nil {
		t.Fatalf("enqueue newest: %v", err)
	}

	_, flushed, err := q.Flush(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flushed != 2 {
		t.Fatalf("expected both ops cleared, got %d", flushed)
	}

	loaded, _, err := store.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get set: %v", err)
	}
	campaign, err := loaded.Campaign("camp-1")
	if err != nil {
		t.Fatalf("lookup campaign: %v", err)
	}
	if campaign.Name != "newest" {
		t.Fatalf("expected latest payload to win, got %q", campaign.Name)
	}
}

func TestFlushEmptyQueueIsNoOp(t *testing.T) {
	store := openTestStore(t)

	q := New(store, "user-1")
	token, flushed, err := q.Flush(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flushed != 0 || !token.IsZero() {
		t.Fatalf("expected no-op flush, got count %d token %s", flushed, token)
	}
}

func TestDiscard(t *testing.T) {
	store := openTestStore(t)

	q := New(store, "user-1")
	first, err := q.Enqueue(context.Background(), KindCampaignPut, "", encodedSet(t, "a"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue(context.Background(), KindCampaignPut, "", encodedSet(t, "b")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := q.Discard(context.Background(), first.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 op after discard, got %d", q.Len())
	}

	reloaded := New(store, "user-1")
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.Len() != 1 {
		t.Fatalf("expected discard persisted, got %d ops", reloaded.Len())
	}
}
