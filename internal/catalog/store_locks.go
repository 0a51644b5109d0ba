package catalog

import (
	"context"
	"fmt"
	"time"
)

// TryAcquireLock claims the advisory lock for (document, stage) without
// blocking. A live lock held by another owner loses the claim; an expired
// lock is taken over. Returns true when the caller now holds the lock.
func (s *Store) TryAcquireLock(ctx context.Context, documentID int64, stage, owner string, ttl time.Duration) (bool, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO stage_locks (document_id, stage, owner, acquired_at, expires_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(document_id, stage) DO UPDATE
         SET owner = excluded.owner, acquired_at = excluded.acquired_at, expires_at = excluded.expires_at
         WHERE stage_locks.expires_at <= ?`,
		documentID,
		stage,
		owner,
		timestamp(now),
		timestamp(now.Add(ttl)),
		timestamp(now),
	)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", stage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lock rows affected: %w", err)
	}
	return affected > 0, nil
}

// ReleaseLock drops the lock only while the caller still owns it.
func (s *Store) ReleaseLock(ctx context.Context, documentID int64, stage, owner string) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(
		ctx,
		`DELETE FROM stage_locks WHERE document_id = ? AND stage = ? AND owner = ?`,
		documentID,
		stage,
		owner,
	)
	if err != nil {
		return fmt.Errorf("release lock %s: %w", stage, err)
	}
	return nil
}

// ExtendLock pushes the expiry forward while execution continues. Returns
// false when the lock was lost (expired and claimed by someone else).
func (s *Store) ExtendLock(ctx context.Context, documentID int64, stage, owner string, ttl time.Duration) (bool, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE stage_locks SET expires_at = ? WHERE document_id = ? AND stage = ? AND owner = ?`,
		timestamp(time.Now().UTC().Add(ttl)),
		documentID,
		stage,
		owner,
	)
	if err != nil {
		return false, fmt.Errorf("extend lock %s: %w", stage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("extend lock rows affected: %w", err)
	}
	return affected > 0, nil
}

// SweepExpiredLocks removes locks whose expiry has passed and returns the
// rows that were dropped so callers can reopen the abandoned stage work.
func (s *Store) SweepExpiredLocks(ctx context.Context, now time.Time) ([]Lock, error) {
	ctx = ensureContext(ctx)
	cutoff := timestamp(now)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT document_id, stage, owner, acquired_at, expires_at
         FROM stage_locks WHERE expires_at <= ?`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query expired locks: %w", err)
	}
	expired, err := collectLocks(rows)
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	if _, err := s.execWithRetry(ctx, `DELETE FROM stage_locks WHERE expires_at <= ?`, cutoff); err != nil {
		return nil, fmt.Errorf("delete expired locks: %w", err)
	}
	return expired, nil
}

// ListLocks returns every advisory lock currently recorded.
func (s *Store) ListLocks(ctx context.Context) ([]Lock, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT document_id, stage, owner, acquired_at, expires_at FROM stage_locks ORDER BY acquired_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}
	return collectLocks(rows)
}

func collectLocks(rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}) ([]Lock, error) {
	defer rows.Close()
	var locks []Lock
	for rows.Next() {
		var (
			lock        Lock
			acquiredRaw string
			expiresRaw  string
		)
		if err := rows.Scan(&lock.DocumentID, &lock.Stage, &lock.Owner, &acquiredRaw, &expiresRaw); err != nil {
			return nil, err
		}
		if t, err := parseTimeString(acquiredRaw); err == nil {
			lock.AcquiredAt = t
		}
		if t, err := parseTimeString(expiresRaw); err == nil {
			lock.ExpiresAt = t
		}
		locks = append(locks, lock)
	}
	return locks, rows.Err()
}
