package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Kamar-Folarin/propsync/internal/config"
)

// NewPostgresStore opens a PostgreSQL-backed store, used when the queue is
// hosted on a shared server rather than on the device
func NewPostgresStore(connectionString string, opts ...Option) (*SQLStore, error) {
	conn, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return newSQLStore(conn, config.DriverPostgres, opts...), nil
}
