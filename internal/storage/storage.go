// Package storage defines the durable-store contracts for campaign sets,
// rolling backups, and the persisted offline queue.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ematosg/spiretracker/internal/campaign/domain"
	"github.com/ematosg/spiretracker/internal/revision"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// PendingOpRecord is the persisted form of one queued write.
type PendingOpRecord struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Kind         string    `json:"kind"`
	BaseRevision string    `json:"base_revision,omitempty"`
	Payload      []byte    `json:"payload"`
}

// CampaignStore is the writer-of-record for one user's campaign set.
//
// Put serializes the set, writes it together with a rolling backup copy,
// and advances the revision — all in one transaction. On any failure the
// previously committed set and revision remain valid. Put is the only
// place revision tokens are created.
type CampaignStore interface {
	Put(ctx context.Context, userID string, set domain.CampaignSet) (revision.Token, error)
	Get(ctx context.Context, userID string) (domain.CampaignSet, revision.Token, error)
	Revision(ctx context.Context, userID string) (revision.Token, error)
}

// BackupStore reads the rolling last-good copy written by Put.
type BackupStore interface {
	Backup(ctx context.Context, userID string) (domain.CampaignSet, time.Time, error)
}

// PendingOpStore persists the offline queue so it survives restarts.
// SavePending replaces the whole queue for the user.
type PendingOpStore interface {
	SavePending(ctx context.Context, userID string, ops []PendingOpRecord) error
	LoadPending(ctx context.Context, userID string) ([]PendingOpRecord, error)
}

// Store combines every persistence concern behind one handle.
type Store interface {
	CampaignStore
	BackupStore
	PendingOpStore
	Close() error
}
