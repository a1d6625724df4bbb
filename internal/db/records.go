package db

import (
	"context"
	"database/sql"
	"encoding/json"

	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
)

const upsertRecordSQL = `
	INSERT INTO local_records (entity_type, id, data, local_only, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (entity_type, id) DO UPDATE SET
		data = EXCLUDED.data,
		local_only = EXCLUDED.local_only,
		updated_at = EXCLUDED.updated_at`

// GetRecord returns a local record, or nil if it does not exist
func (s *SQLStore) GetRecord(ctx context.Context, entityType models.EntityType, id string) (*models.LocalRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT entity_type, id, data, local_only, updated_at
		FROM local_records WHERE entity_type = ? AND id = ?`),
		string(entityType), id)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, apperrors.NewStorageError("failed to get local record", err)
	}
	return record, nil
}

// ListRecords returns every local record of one entity type
func (s *SQLStore) ListRecords(ctx context.Context, entityType models.EntityType) ([]*models.LocalRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT entity_type, id, data, local_only, updated_at
		FROM local_records WHERE entity_type = ?
		ORDER BY updated_at DESC, id ASC`),
		string(entityType))
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list local records", err)
	}
	defer rows.Close()

	var records []*models.LocalRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to scan local record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to iterate local records", err)
	}
	return records, nil
}

// UpsertRecord inserts or replaces a local record by (entity_type, id)
func (s *SQLStore) UpsertRecord(ctx context.Context, record *models.LocalRecord) error {
	if record == nil || record.ID == "" {
		return apperrors.NewValidationError("record id cannot be empty", nil)
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(upsertRecordSQL), s.recordArgs(record)...); err != nil {
		return apperrors.NewStorageError("failed to upsert local record", err)
	}
	return nil
}

// UpsertRecords writes a batch of records in one transaction
func (s *SQLStore) UpsertRecords(ctx context.Context, records []*models.LocalRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(upsertRecordSQL))
	if err != nil {
		return apperrors.NewStorageError("failed to prepare statement", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if record == nil || record.ID == "" {
			return apperrors.NewValidationError("record id cannot be empty", nil)
		}
		if _, err := stmt.ExecContext(ctx, s.recordArgs(record)...); err != nil {
			return apperrors.NewStorageError("failed to upsert local record "+record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("failed to commit local records", err)
	}
	return nil
}

// DeleteRecord removes a local record. Removing a missing record is not an error.
func (s *SQLStore) DeleteRecord(ctx context.Context, entityType models.EntityType, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM local_records WHERE entity_type = ? AND id = ?`),
		string(entityType), id)
	if err != nil {
		return apperrors.NewStorageError("failed to delete local record", err)
	}
	return nil
}

// ReplaceRecordID swaps a placeholder row for the server-confirmed record
func (s *SQLStore) ReplaceRecordID(ctx context.Context, entityType models.EntityType, oldID string, record *models.LocalRecord) error {
	if record == nil || record.ID == "" {
		return apperrors.NewValidationError("record id cannot be empty", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM local_records WHERE entity_type = ? AND id = ?`),
		string(entityType), oldID); err != nil {
		return apperrors.NewStorageError("failed to remove placeholder record", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(upsertRecordSQL), s.recordArgs(record)...); err != nil {
		return apperrors.NewStorageError("failed to store confirmed record", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("failed to commit placeholder swap", err)
	}
	return nil
}

// PruneRecords deletes server-backed records of one type whose ids are not
// in keep. Local-only placeholders are left alone.
func (s *SQLStore) PruneRecords(ctx context.Context, entityType models.EntityType, keep []string) (int, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, s.rebind(`
		SELECT id FROM local_records WHERE entity_type = ? AND local_only = ?`),
		string(entityType), false)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to list local record ids", err)
	}

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, apperrors.NewStorageError("failed to scan local record id", err)
		}
		if _, ok := keepSet[id]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, apperrors.NewStorageError("failed to iterate local record ids", err)
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM local_records WHERE entity_type = ? AND id = ?`),
			string(entityType), id); err != nil {
			return 0, apperrors.NewStorageError("failed to prune local record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewStorageError("failed to commit prune", err)
	}
	return len(stale), nil
}

func (s *SQLStore) recordArgs(record *models.LocalRecord) []any {
	data := record.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	return []any{
		string(record.EntityType),
		record.ID,
		string(data),
		record.LocalOnly,
		toMillis(updatedAt),
	}
}

func scanRecord(row rowScanner) (*models.LocalRecord, error) {
	var (
		record     models.LocalRecord
		entityType string
		data       string
		updatedAt  int64
	)
	if err := row.Scan(&entityType, &record.ID, &data, &record.LocalOnly, &updatedAt); err != nil {
		return nil, err
	}
	record.EntityType = models.EntityType(entityType)
	record.Data = json.RawMessage(data)
	record.UpdatedAt = fromMillis(updatedAt)
	return &record, nil
}
