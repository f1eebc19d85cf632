package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Mirror operations recorded in the sync queue.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Sync queue states.
const (
	SyncPending    = "pending"
	SyncProcessing = "processing"
	SyncCompleted  = "completed"
	SyncFailed     = "failed"
)

// SyncItem is one queued mirror operation.
type SyncItem struct {
	ID        int64
	PayableID int64
	Operation string
	Status    string
	Attempts  int
	LastError string
}

// SyncStats counts queue items per state.
type SyncStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

func (r *Repository) enqueue(ctx context.Context, tx *sql.Tx, payableID int64, op string) error {
	ts := formatTS(r.now())
	_, err := tx.ExecContext(ctx, r.rebind(`INSERT INTO sync_queue (payable_id, operation, status, attempts, last_error, created_at, updated_at)
VALUES (?, ?, ?, 0, '', ?, ?)`), payableID, op, SyncPending, ts, ts)
	if err != nil {
		return fmt.Errorf("enqueue %s %d: %w", op, payableID, err)
	}
	return nil
}

// DequeueSyncBatch claims up to limit pending items, oldest first, and marks
// them processing.
func (r *Repository) DequeueSyncBatch(ctx context.Context, limit int) ([]SyncItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, r.rebind(`SELECT id, payable_id, operation, status, attempts, last_error
FROM sync_queue WHERE status = ? ORDER BY id LIMIT ?`), SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending: %w", err)
	}
	var items []SyncItem
	for rows.Next() {
		var it SyncItem
		if err := rows.Scan(&it.ID, &it.PayableID, &it.Operation, &it.Status, &it.Attempts, &it.LastError); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ts := formatTS(r.now())
	for i := range items {
		_, err := tx.ExecContext(ctx, r.rebind(`UPDATE sync_queue SET status = ?, updated_at = ? WHERE id = ?`),
			SyncProcessing, ts, items[i].ID)
		if err != nil {
			return nil, fmt.Errorf("claim sync item %d: %w", items[i].ID, err)
		}
		items[i].Status = SyncProcessing
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return items, nil
}

// MarkSyncCompleted closes an item.
func (r *Repository) MarkSyncCompleted(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`UPDATE sync_queue SET status = ?, last_error = '', updated_at = ? WHERE id = ?`),
		SyncCompleted, formatTS(r.now()), id)
	if err != nil {
		return fmt.Errorf("mark sync completed: %w", err)
	}
	return nil
}

// MarkSyncFailed records an attempt. The item goes back to pending until
// maxRetries attempts were made, then it is failed.
func (r *Repository) MarkSyncFailed(ctx context.Context, id int64, cause error, maxRetries int) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`UPDATE sync_queue
SET attempts = attempts + 1,
    status = CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END,
    last_error = ?,
    updated_at = ?
WHERE id = ?`), maxRetries, SyncFailed, SyncPending, cause.Error(), formatTS(r.now()), id)
	if err != nil {
		return fmt.Errorf("mark sync failed: %w", err)
	}
	return nil
}

// ResetStaleProcessing returns items left processing by a crash to pending.
func (r *Repository) ResetStaleProcessing(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`UPDATE sync_queue SET status = ?, updated_at = ? WHERE status = ?`),
		SyncPending, formatTS(r.now()), SyncProcessing)
	if err != nil {
		return fmt.Errorf("reset stale processing: %w", err)
	}
	return nil
}

// RetryFailed puts every failed item back in the queue with a fresh budget.
func (r *Repository) RetryFailed(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.rebind(`UPDATE sync_queue SET status = ?, attempts = 0, updated_at = ? WHERE status = ?`),
		SyncPending, formatTS(r.now()), SyncFailed)
	if err != nil {
		return 0, fmt.Errorf("retry failed: %w", err)
	}
	return res.RowsAffected()
}

// CleanupCompleted deletes completed items last touched before cutoff.
func (r *Repository) CleanupCompleted(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM sync_queue WHERE status = ? AND updated_at < ?`),
		SyncCompleted, formatTS(cutoff))
	if err != nil {
		return 0, fmt.Errorf("cleanup completed: %w", err)
	}
	return res.RowsAffected()
}

// SyncQueueStats counts items per state.
func (r *Repository) SyncQueueStats(ctx context.Context) (SyncStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return SyncStats{}, fmt.Errorf("sync stats: %w", err)
	}
	defer rows.Close()

	var s SyncStats
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return SyncStats{}, fmt.Errorf("scan sync stats: %w", err)
		}
		switch status {
		case SyncPending:
			s.Pending = n
		case SyncProcessing:
			s.Processing = n
		case SyncCompleted:
			s.Completed = n
		case SyncFailed:
			s.Failed = n
		}
	}
	return s, rows.Err()
}
