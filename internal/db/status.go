package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Kamar-Folarin/propsync/internal/models"
)

// GetSyncStatus retrieves a persisted engine status by name
func (s *SQLStore) GetSyncStatus(ctx context.Context, name string) (*models.SyncStatus, error) {
	var status models.SyncStatus
	var statusJSON []byte

	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT status_json FROM sync_status WHERE name = ?`), name).Scan(&statusJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}

	if err := json.Unmarshal(statusJSON, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync status: %w", err)
	}

	return &status, nil
}

// UpdateSyncStatus persists the engine status
func (s *SQLStore) UpdateSyncStatus(ctx context.Context, status *models.SyncStatus) error {
	if status == nil {
		return fmt.Errorf("status cannot be nil")
	}

	statusJSON, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal sync status: %w", err)
	}

	now := toMillis(s.now())
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO sync_status (name, status_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			status_json = EXCLUDED.status_json,
			updated_at = EXCLUDED.updated_at`),
		status.Name, string(statusJSON), now, now)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	return nil
}

// GetResyncProgress retrieves the last full-resync progress for an entity type
func (s *SQLStore) GetResyncProgress(ctx context.Context, entityType models.EntityType) (*models.ResyncProgress, error) {
	var progressJSON []byte
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT progress_json FROM resync_progress WHERE entity_type = ?`), string(entityType)).Scan(&progressJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get resync progress: %w", err)
	}

	var progress models.ResyncProgress
	if err := json.Unmarshal(progressJSON, &progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resync progress: %w", err)
	}
	return &progress, nil
}

// SaveResyncProgress persists full-resync progress
func (s *SQLStore) SaveResyncProgress(ctx context.Context, progress *models.ResyncProgress) error {
	if progress == nil {
		return fmt.Errorf("progress cannot be nil")
	}

	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal resync progress: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO resync_progress (entity_type, progress_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (entity_type) DO UPDATE SET
			progress_json = EXCLUDED.progress_json,
			updated_at = EXCLUDED.updated_at`),
		string(progress.EntityType), string(progressJSON), toMillis(s.now()))
	if err != nil {
		return fmt.Errorf("failed to save resync progress: %w", err)
	}
	return nil
}
