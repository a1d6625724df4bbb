package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/propsync/internal/config"
	"github.com/Kamar-Folarin/propsync/internal/models"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// QueueStore is the durable queue of pending mutations
type QueueStore interface {
	Enqueue(ctx context.Context, intent *models.Intent) (string, error)
	GetQueueItem(ctx context.Context, id string) (*models.QueueItem, error)
	ListPending(ctx context.Context, now time.Time) ([]*models.QueueItem, error)
	CountPending(ctx context.Context, now time.Time) (int, error)
	CountForRecord(ctx context.Context, entityType models.EntityType, recordKey string) (int, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id string) error
	MarkRetry(ctx context.Context, id string, attempts int, nextRetryAt time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error
	RewriteRecordID(ctx context.Context, entityType models.EntityType, placeholder, recordID string) error
}

// RecordStore is the local read model the UI renders from
type RecordStore interface {
	GetRecord(ctx context.Context, entityType models.EntityType, id string) (*models.LocalRecord, error)
	ListRecords(ctx context.Context, entityType models.EntityType) ([]*models.LocalRecord, error)
	UpsertRecord(ctx context.Context, record *models.LocalRecord) error
	UpsertRecords(ctx context.Context, records []*models.LocalRecord) error
	DeleteRecord(ctx context.Context, entityType models.EntityType, id string) error
	ReplaceRecordID(ctx context.Context, entityType models.EntityType, oldID string, record *models.LocalRecord) error
	PruneRecords(ctx context.Context, entityType models.EntityType, keep []string) (int, error)
}

// Store defines the interface for database operations
type Store interface {
	QueueStore
	RecordStore

	// Dead-letter and maintenance operations
	ListFailed(ctx context.Context) ([]*models.QueueItem, error)
	DiscardFailed(ctx context.Context, id string) error
	ResetStaleProcessing(ctx context.Context) (int64, error)
	QueueStats(ctx context.Context, now time.Time) (models.QueueStats, error)

	// Status operations
	GetSyncStatus(ctx context.Context, name string) (*models.SyncStatus, error)
	UpdateSyncStatus(ctx context.Context, status *models.SyncStatus) error
	GetResyncProgress(ctx context.Context, entityType models.EntityType) (*models.ResyncProgress, error)
	SaveResyncProgress(ctx context.Context, progress *models.ResyncProgress) error

	Migrate() error
	Close() error
}

// SQLStore implements Store over database/sql for SQLite and PostgreSQL
type SQLStore struct {
	db      *sql.DB
	dialect string
	logger  *logrus.Logger
	now     func() time.Time
}

// Option configures a SQLStore
type Option func(*SQLStore)

// WithNowFunc overrides the clock used for created_at and updated_at
func WithNowFunc(now func() time.Time) Option {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for migrations and maintenance messages
func WithLogger(logger *logrus.Logger) Option {
	return func(s *SQLStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens a store for the given driver name
func Open(driver, dsn string, opts ...Option) (*SQLStore, error) {
	switch driver {
	case config.DriverSQLite:
		return NewSQLiteStore(dsn, opts...)
	case config.DriverPostgres:
		return NewPostgresStore(dsn, opts...)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func newSQLStore(conn *sql.DB, dialect string, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:      conn,
		dialect: dialect,
		logger:  logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying connection pool
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Migrate applies all pending schema migrations for the store's dialect
func (s *SQLStore) Migrate() error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(s.logger)

	dir := "migrations/sqlite"
	gooseDialect := "sqlite3"
	if s.dialect == config.DriverPostgres {
		dir = "migrations/postgres"
		gooseDialect = "postgres"
	}

	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}

	if err := goose.Up(s.db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close releases the connection pool
func (s *SQLStore) Close() error {
	if s.dialect == config.DriverSQLite {
		// fold the WAL back into the main file so the database is self-contained
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			s.logger.WithError(err).Warn("Failed to checkpoint WAL")
		}
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.dialect != config.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
