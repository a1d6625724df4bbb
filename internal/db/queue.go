package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
)

const queueColumns = `id, seq, entity_type, action, record_id, local_id, payload, attempts, status, last_error, created_at, updated_at, next_retry_at`

// Enqueue durably appends a mutation intent and returns its id
func (s *SQLStore) Enqueue(ctx context.Context, intent *models.Intent) (string, error) {
	if intent == nil {
		return "", apperrors.NewValidationError("intent cannot be nil", nil)
	}
	if err := intent.Validate(); err != nil {
		return "", apperrors.NewValidationError(err.Error(), err)
	}

	payload := intent.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	item := &models.QueueItem{
		ID:         uuid.New().String(),
		EntityType: intent.EntityType,
		Action:     intent.Action,
		RecordID:   intent.RecordID,
		LocalID:    intent.LocalID,
	}
	now := toMillis(s.now())

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO sync_queue (id, entity_type, action, record_id, local_id, record_key, payload, attempts, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`),
		item.ID,
		string(item.EntityType),
		string(item.Action),
		nullString(item.RecordID),
		nullString(item.LocalID),
		item.RecordKey(),
		string(payload),
		string(models.StatusPending),
		now,
		now,
	)
	if err != nil {
		return "", apperrors.NewStorageError("failed to enqueue mutation", err)
	}

	return item.ID, nil
}

// GetQueueItem returns a single queue item, or nil if it does not exist
func (s *SQLStore) GetQueueItem(ctx context.Context, id string) (*models.QueueItem, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+queueColumns+` FROM sync_queue WHERE id = ?`), id)
	item, err := scanQueueItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, apperrors.NewStorageError("failed to get queue item", err)
	}
	return item, nil
}

// ListPending returns pending items eligible at now in FIFO order. An item is
// held back while an earlier item for the same record is processing or
// waiting out a backoff, so a retried mutation is never overtaken by a later
// one. Eligible predecessors are returned ahead of it in the same list.
func (s *SQLStore) ListPending(ctx context.Context, now time.Time) ([]*models.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+queueColumns+`
		FROM sync_queue q
		WHERE q.status = ?
			AND (q.next_retry_at IS NULL OR q.next_retry_at <= ?)
			AND NOT EXISTS (
				SELECT 1 FROM sync_queue p
				WHERE q.record_key <> ''
					AND p.entity_type = q.entity_type
					AND p.record_key = q.record_key
					AND (p.status = ? OR (p.status = ? AND p.next_retry_at > ?))
					AND (p.created_at < q.created_at OR (p.created_at = q.created_at AND p.seq < q.seq))
			)
		ORDER BY q.created_at ASC, q.seq ASC`),
		string(models.StatusPending),
		toMillis(now),
		string(models.StatusProcessing),
		string(models.StatusPending),
		toMillis(now),
	)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list pending items", err)
	}
	defer rows.Close()

	items, err := scanQueueItems(rows)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to scan pending items", err)
	}
	return items, nil
}

// CountPending counts pending items eligible at now
func (s *SQLStore) CountPending(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT COUNT(*) FROM sync_queue
		WHERE status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)`),
		string(models.StatusPending),
		toMillis(now),
	).Scan(&count)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to count pending items", err)
	}
	return count, nil
}

// CountForRecord counts queued intents for one record that have not yet been
// applied, regardless of backoff
func (s *SQLStore) CountForRecord(ctx context.Context, entityType models.EntityType, recordKey string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT COUNT(*) FROM sync_queue
		WHERE entity_type = ? AND (record_key = ? OR record_id = ?) AND status IN (?, ?)`),
		string(entityType),
		recordKey,
		recordKey,
		string(models.StatusPending),
		string(models.StatusProcessing),
	).Scan(&count)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to count queued intents for record", err)
	}
	return count, nil
}

// MarkProcessing moves a pending item to processing
func (s *SQLStore) MarkProcessing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE sync_queue SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`),
		string(models.StatusProcessing),
		toMillis(s.now()),
		id,
		string(models.StatusPending),
	)
	if err != nil {
		return apperrors.NewStorageError("failed to mark item processing", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewResourceNotFoundError("pending queue item", id)
	}
	return nil
}

// MarkDone removes a successfully applied item. Removing a missing item is
// not an error.
func (s *SQLStore) MarkDone(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM sync_queue WHERE id = ?`), id); err != nil {
		return apperrors.NewStorageError("failed to remove synced item", err)
	}
	return nil
}

// MarkRetry returns an item to pending with a new attempt count and the time
// it next becomes eligible
func (s *SQLStore) MarkRetry(ctx context.Context, id string, attempts int, nextRetryAt time.Time, lastErr string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE sync_queue
		SET status = ?, attempts = ?, next_retry_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?`),
		string(models.StatusPending),
		attempts,
		toMillis(nextRetryAt),
		lastErr,
		toMillis(s.now()),
		id,
	)
	if err != nil {
		return apperrors.NewStorageError("failed to schedule retry", err)
	}
	return nil
}

// MarkFailed dead-letters an item. Failed items are never picked up again.
func (s *SQLStore) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE sync_queue
		SET status = ?, attempts = ?, next_retry_at = NULL, last_error = ?, updated_at = ?
		WHERE id = ?`),
		string(models.StatusFailed),
		attempts,
		lastErr,
		toMillis(s.now()),
		id,
	)
	if err != nil {
		return apperrors.NewStorageError("failed to dead-letter item", err)
	}
	return nil
}

// RewriteRecordID points queued intents that still reference a local
// placeholder at the id the server assigned. The record key moves with it so
// later intents for the server id still queue behind them.
func (s *SQLStore) RewriteRecordID(ctx context.Context, entityType models.EntityType, placeholder, recordID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE sync_queue SET
			record_id = CASE WHEN record_id = ? THEN ? ELSE record_id END,
			record_key = CASE WHEN record_key = ? THEN ? ELSE record_key END,
			updated_at = ?
		WHERE entity_type = ? AND (record_id = ? OR record_key = ?)`),
		placeholder, recordID,
		placeholder, recordID,
		toMillis(s.now()),
		string(entityType),
		placeholder, placeholder,
	)
	if err != nil {
		return apperrors.NewStorageError("failed to rewrite placeholder id", err)
	}
	return nil
}

// ListFailed returns dead-lettered items, oldest first
func (s *SQLStore) ListFailed(ctx context.Context) ([]*models.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+queueColumns+` FROM sync_queue
		WHERE status = ?
		ORDER BY created_at ASC, seq ASC`),
		string(models.StatusFailed),
	)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list failed items", err)
	}
	defer rows.Close()

	items, err := scanQueueItems(rows)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to scan failed items", err)
	}
	return items, nil
}

// DiscardFailed deletes a dead-lettered item on operator request
func (s *SQLStore) DiscardFailed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM sync_queue WHERE id = ? AND status = ?`),
		id, string(models.StatusFailed))
	if err != nil {
		return apperrors.NewStorageError("failed to discard item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewResourceNotFoundError("failed queue item", id)
	}
	return nil
}

// ResetStaleProcessing returns items left in processing by an interrupted
// pass to pending. Call once at startup before the first drain.
func (s *SQLStore) ResetStaleProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE sync_queue SET status = ?, updated_at = ? WHERE status = ?`),
		string(models.StatusPending),
		toMillis(s.now()),
		string(models.StatusProcessing),
	)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to reset processing items", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.WithField("items", n).Warn("Reset queue items left in processing")
	}
	return n, nil
}

// QueueStats breaks the queue down by state at now
func (s *SQLStore) QueueStats(ctx context.Context, now time.Time) (models.QueueStats, error) {
	var stats models.QueueStats
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT
			COALESCE(SUM(CASE WHEN status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? AND next_retry_at > ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM sync_queue`),
		string(models.StatusPending), toMillis(now),
		string(models.StatusPending), toMillis(now),
		string(models.StatusProcessing),
		string(models.StatusFailed),
	).Scan(&stats.Pending, &stats.Backoff, &stats.Processing, &stats.Failed)
	if err != nil {
		return stats, apperrors.NewStorageError("failed to compute queue stats", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(row rowScanner) (*models.QueueItem, error) {
	var (
		item        models.QueueItem
		entityType  string
		action      string
		status      string
		recordID    sql.NullString
		localID     sql.NullString
		payload     string
		createdAt   int64
		updatedAt   int64
		nextRetryAt sql.NullInt64
	)

	if err := row.Scan(
		&item.ID,
		&item.Seq,
		&entityType,
		&action,
		&recordID,
		&localID,
		&payload,
		&item.Attempts,
		&status,
		&item.LastError,
		&createdAt,
		&updatedAt,
		&nextRetryAt,
	); err != nil {
		return nil, err
	}

	item.EntityType = models.EntityType(entityType)
	item.Action = models.Action(action)
	item.Status = models.QueueStatus(status)
	item.Payload = json.RawMessage(payload)
	item.CreatedAt = fromMillis(createdAt)
	item.UpdatedAt = fromMillis(updatedAt)
	if recordID.Valid {
		item.RecordID = &recordID.String
	}
	if localID.Valid {
		item.LocalID = &localID.String
	}
	if nextRetryAt.Valid {
		t := fromMillis(nextRetryAt.Int64)
		item.NextRetryAt = &t
	}

	return &item, nil
}

func scanQueueItems(rows *sql.Rows) ([]*models.QueueItem, error) {
	var items []*models.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue rows: %w", err)
	}
	return items, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
