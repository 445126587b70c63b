// Package bbolt provides a BoltDB-backed durable store for campaign sets.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ematosg/spiretracker/internal/campaign/domain"
	"github.com/ematosg/spiretracker/internal/campaign/snapshot"
	"github.com/ematosg/spiretracker/internal/revision"
	"github.com/ematosg/spiretracker/internal/storage"
	"go.etcd.io/bbolt"
)

// Bucket names mirror the user-scoped durable keys of the tracker:
// the live set, its revision, the rolling backup, and the offline queue.
const (
	campaignsBucket = "campaigns"
	revisionBucket  = "campaigns-rev"
	backupBucket    = "campaigns-backup"
	backupTsBucket  = "campaigns-backup-ts"
	pendingBucket   = "pending-ops"
)

var buckets = []string{
	campaignsBucket,
	revisionBucket,
	backupBucket,
	backupTsBucket,
	pendingBucket,
}

// Store provides a BoltDB-backed campaign set store.
type Store struct {
	db        *bbolt.DB
	codec     snapshot.Codec
	revisions revision.Generator
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put persists a campaign set, its rolling backup, and a fresh revision in
// one transaction. The prior revision remains valid if anything fails.
func (s *Store) Put(ctx context.Context, userID string, set domain.CampaignSet) (revision.Token, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.db == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id is required")
	}

	payload, err := s.codec.EncodeSet(set)
	if err != nil {
		return "", err
	}
	token, err := s.revisions.Next()
	if err != nil {
		return "", fmt.Errorf("generate revision: %w", err)
	}
	backupAt := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(campaignsBucket)).Put(userKey(userID), payload); err != nil {
			return fmt.Errorf("write campaign set: %w", err)
		}
		if err := tx.Bucket([]byte(backupBucket)).Put(userKey(userID), payload); err != nil {
			return fmt.Errorf("write backup copy: %w", err)
		}
		if err := tx.Bucket([]byte(backupTsBucket)).Put(userKey(userID), []byte(backupAt)); err != nil {
			return fmt.Errorf("write backup timestamp: %w", err)
		}
		if err := tx.Bucket([]byte(revisionBucket)).Put(userKey(userID), []byte(token)); err != nil {
			return fmt.Errorf("write revision: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return token, nil
}

// Get fetches the last committed campaign set and its revision.
func (s *Store) Get(ctx context.Context, userID string) (domain.CampaignSet, revision.Token, error) {
	if err := ctx.Err(); err != nil {
		return domain.CampaignSet{}, "", err
	}
	if s == nil || s.db == nil {
		return domain.CampaignSet{}, "", fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.CampaignSet{}, "", fmt.Errorf("user id is required")
	}

	var set domain.CampaignSet
	var token revision.Token
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(campaignsBucket)).Get(userKey(userID))
		if payload == nil {
			return storage.ErrNotFound
		}
		decoded, err := s.codec.DecodeSet(payload)
		if err != nil {
			return err
		}
		set = decoded
		token = revision.Token(tx.Bucket([]byte(revisionBucket)).Get(userKey(userID)))
		return nil
	})
	if err != nil {
		return domain.CampaignSet{}, "", err
	}

	return set, token, nil
}

// Revision returns the current revision for the user.
func (s *Store) Revision(ctx context.Context, userID string) (revision.Token, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.db == nil {
		return "", fmt.Errorf("storage is not configured")
	}

	var token revision.Token
	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket([]byte(revisionBucket)).Get(userKey(userID))
		if value == nil {
			return storage.ErrNotFound
		}
		token = revision.Token(value)
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Backup returns the rolling last-good copy and its timestamp.
func (s *Store) Backup(ctx context.Context, userID string) (domain.CampaignSet, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return domain.CampaignSet{}, time.Time{}, err
	}
	if s == nil || s.db == nil {
		return domain.CampaignSet{}, time.Time{}, fmt.Errorf("storage is not configured")
	}

	var set domain.CampaignSet
	var backupAt time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(backupBucket)).Get(userKey(userID))
		if payload == nil {
			return storage.ErrNotFound
		}
		decoded, err := s.codec.DecodeSet(payload)
		if err != nil {
			return err
		}
		set = decoded

		if raw := tx.Bucket([]byte(backupTsBucket)).Get(userKey(userID)); raw != nil {
			millis, err := strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("parse backup timestamp: %w", err)
			}
			backupAt = time.UnixMilli(millis).UTC()
		}
		return nil
	})
	if err != nil {
		return domain.CampaignSet{}, time.Time{}, err
	}
	return set, backupAt, nil
}

// SavePending replaces the persisted offline queue for the user.
func (s *Store) SavePending(ctx context.Context, userID string, ops []storage.PendingOpRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}

	payload, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("marshal pending ops: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(pendingBucket)).Put(userKey(userID), payload)
	})
}

// LoadPending returns the persisted offline queue for the user.
// A user with no queue gets an empty slice, not an error.
func (s *Store) LoadPending(ctx context.Context, userID string) ([]storage.PendingOpRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var ops []storage.PendingOpRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(pendingBucket)).Get(userKey(userID))
		if payload == nil {
			return nil
		}
		if err := json.Unmarshal(payload, &ops); err != nil {
			return fmt.Errorf("unmarshal pending ops: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("create %s bucket: %w", bucket, err)
			}
		}
		return nil
	})
}

func userKey(userID string) []byte {
	return []byte(userID)
}
