// Package sqlite provides a SQLite-backed durable store for campaign sets.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ematosg/spiretracker/internal/campaign/domain"
	"github.com/ematosg/spiretracker/internal/campaign/snapshot"
	"github.com/ematosg/spiretracker/internal/platform/storage/sqlitemigrate"
	"github.com/ematosg/spiretracker/internal/revision"
	"github.com/ematosg/spiretracker/internal/storage"
	"github.com/ematosg/spiretracker/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for campaign sets.
type Store struct {
	sqlDB     *sql.DB
	codec     snapshot.Codec
	revisions revision.Generator
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a campaign SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Put persists a campaign set, its rolling backup, and a fresh revision in
// one transaction. The prior revision remains valid if anything fails.
func (s *Store) Put(ctx context.Context, userID string, set domain.CampaignSet) (revision.Token, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
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
	now := toMillis(time.Now())

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin put transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO campaign_sets (user_id, payload, revision, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET payload = excluded.payload,
    revision = excluded.revision, updated_at = excluded.updated_at
`, userID, payload, string(token), now); err != nil {
		_ = tx.Rollback()
		return "", fmt.Errorf("write campaign set: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO campaign_backups (user_id, payload, backup_at)
VALUES (?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET payload = excluded.payload,
    backup_at = excluded.backup_at
`, userID, payload, now); err != nil {
		_ = tx.Rollback()
		return "", fmt.Errorf("write backup copy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit put transaction: %w", err)
	}

	return token, nil
}

// Get fetches the last committed campaign set and its revision.
func (s *Store) Get(ctx context.Context, userID string) (domain.CampaignSet, revision.Token, error) {
	if err := ctx.Err(); err != nil {
		return domain.CampaignSet{}, "", err
	}
	if s == nil || s.sqlDB == nil {
		return domain.CampaignSet{}, "", fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.CampaignSet{}, "", fmt.Errorf("user id is required")
	}

	var payload []byte
	var tokenValue string
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT payload, revision FROM campaign_sets WHERE user_id = ?", userID)
	if err := row.Scan(&payload, &tokenValue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CampaignSet{}, "", storage.ErrNotFound
		}
		return domain.CampaignSet{}, "", fmt.Errorf("read campaign set: %w", err)
	}

	set, err := s.codec.DecodeSet(payload)
	if err != nil {
		return domain.CampaignSet{}, "", err
	}
	return set, revision.Token(tokenValue), nil
}

// Revision returns the current revision for the user.
func (s *Store) Revision(ctx context.Context, userID string) (revision.Token, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}

	var tokenValue string
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT revision FROM campaign_sets WHERE user_id = ?", userID)
	if err := row.Scan(&tokenValue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("read revision: %w", err)
	}
	return revision.Token(tokenValue), nil
}

// Backup returns the rolling last-good copy and its timestamp.
func (s *Store) Backup(ctx context.Context, userID string) (domain.CampaignSet, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return domain.CampaignSet{}, time.Time{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.CampaignSet{}, time.Time{}, fmt.Errorf("storage is not configured")
	}

	var payload []byte
	var backupAt int64
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT payload, backup_at FROM campaign_backups WHERE user_id = ?", userID)
	if err := row.Scan(&payload, &backupAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CampaignSet{}, time.Time{}, storage.ErrNotFound
		}
		return domain.CampaignSet{}, time.Time{}, fmt.Errorf("read backup: %w", err)
	}

	set, err := s.codec.DecodeSet(payload)
	if err != nil {
		return domain.CampaignSet{}, time.Time{}, err
	}
	return set, fromMillis(backupAt), nil
}

// SavePending replaces the persisted offline queue for the user.
func (s *Store) SavePending(ctx context.Context, userID string, ops []storage.PendingOpRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pending transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM pending_ops WHERE user_id = ?", userID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear pending ops: %w", err)
	}
	for position, op := range ops {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO pending_ops (user_id, position, op_id, created_at, kind, base_revision, payload)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, userID, position, op.ID, toMillis(op.CreatedAt), op.Kind, op.BaseRevision, op.Payload); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("write pending op %s: %w", op.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pending transaction: %w", err)
	}
	return nil
}

// LoadPending returns the persisted offline queue for the user in order.
// A user with no queue gets an empty slice, not an error.
func (s *Store) LoadPending(ctx context.Context, userID string) ([]storage.PendingOpRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT op_id, created_at, kind, base_revision, payload
FROM pending_ops WHERE user_id = ? ORDER BY position
`, userID)
	if err != nil {
		return nil, fmt.Errorf("read pending ops: %w", err)
	}
	defer rows.Close()

	var ops []storage.PendingOpRecord
	for rows.Next() {
		var op storage.PendingOpRecord
		var createdAt int64
		if err := rows.Scan(&op.ID, &createdAt, &op.Kind, &op.BaseRevision, &op.Payload); err != nil {
			return nil, fmt.Errorf("scan pending op: %w", err)
		}
		op.CreatedAt = fromMillis(createdAt)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending ops: %w", err)
	}
	return ops, nil
}
