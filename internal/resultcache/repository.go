// Package resultcache persists completed simulation results so identical
// seeded requests are answered without re-running the Monte Carlo.
// Values are msgpack blobs with an expiration timestamp.
package resultcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultTTL is used when the configured TTL is not positive.
const DefaultTTL = time.Hour

// Repository provides cache operations for simulation results.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new result cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// HashRequest derives a stable cache key from a request value. Map keys are
// sorted before encoding so equal requests always hash the same.
func HashRequest(kind string, req interface{}) (string, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(req); err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	sum := sha256.Sum256(append([]byte(kind+":"), buf.Bytes()...))
	return kind + ":" + hex.EncodeToString(sum[:]), nil
}

// Store saves value with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (r *Repository) Store(ctx context.Context, key, kind string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return r.put(ctx, key, kind, value, r.now().Add(ttl))
}

func (r *Repository) put(ctx context.Context, key, kind string, value interface{}, expiresAt time.Time) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO simulation_results (cache_key, kind, data, created_at, expires_at) VALUES (?, ?, ?, ?, ?)",
		key, kind, data, r.now().Unix(), expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store result %s: %w", key, err)
	}
	return nil
}

// GetIfFresh decodes the entry into out only if expires_at > now.
// Returns false, nil if the key doesn't exist or the entry is expired.
func (r *Repository) GetIfFresh(ctx context.Context, key string, out interface{}) (bool, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT data FROM simulation_results WHERE cache_key = ? AND expires_at > ?",
		key, r.now().Unix(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get result %s: %w", key, err)
	}

	if err := msgpack.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal result %s: %w", key, err)
	}
	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM simulation_results WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete result %s: %w", key, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at <= now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM simulation_results WHERE expires_at <= ?", r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired results: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Count returns the number of stored entries, fresh or not.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM simulation_results").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}
