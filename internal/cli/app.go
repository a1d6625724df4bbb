package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/propsync/internal/adapter"
	"github.com/Kamar-Folarin/propsync/internal/alert"
	"github.com/Kamar-Folarin/propsync/internal/config"
	"github.com/Kamar-Folarin/propsync/internal/connectivity"
	"github.com/Kamar-Folarin/propsync/internal/db"
	"github.com/Kamar-Folarin/propsync/internal/engine"
	"github.com/Kamar-Folarin/propsync/internal/remote"
)

// connectivityPoll re-checks the connectivity signal in case a file event is missed
const connectivityPoll = 30 * time.Second

// signalSource is a connectivity source that also announces changes
type signalSource interface {
	connectivity.Source
	connectivity.Notifier
}

// app holds the process-wide dependencies shared by every command
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	store  *db.SQLStore
	source signalSource
	stop   func()
}

// bootstrap loads configuration, initializes logging and opens the store
func bootstrap() (*app, error) {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	store, err := db.Open(cfg.DBDriver, cfg.DBConnectionString, db.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run migrations with retry logic
	if err := retry(3, 5*time.Second, store.Migrate); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations after retries: %w", err)
	}

	return &app{cfg: cfg, logger: logger, store: store, stop: func() {}}, nil
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("log_level", level).Warn("Unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// newService recovers items interrupted by a previous run and wires the
// engine to the remote API. The connectivity source is the signal file when
// one is configured, otherwise the device is assumed online.
func (a *app) newService(ctx context.Context, alerts alert.Sink) (*engine.Service, error) {
	if a.cfg.Remote.BaseURL == "" {
		return nil, fmt.Errorf("missing required configuration (REMOTE_API_URL must be set)")
	}

	n, err := a.store.ResetStaleProcessing(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reset interrupted queue items: %w", err)
	}
	if n > 0 {
		a.logger.WithField("count", n).Warn("Returned interrupted queue items to pending")
	}

	client, err := remote.NewClient(a.cfg.Remote, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote client: %w", err)
	}

	if a.cfg.SignalFile != "" {
		fs := connectivity.NewFileSource(a.cfg.SignalFile, a.logger)
		if err := fs.Start(); err != nil {
			return nil, fmt.Errorf("failed to watch connectivity signal: %w", err)
		}
		a.source = fs
		a.stop = func() {
			if err := fs.Stop(); err != nil {
				a.logger.WithError(err).Warn("Failed to stop connectivity watcher")
			}
		}
	} else {
		a.source = connectivity.Online()
	}

	return engine.NewService(engine.ServiceDeps{
		Store:    a.store,
		Adapters: adapter.NewRegistry(client),
		Probe:    connectivity.NewProbe(a.source, a.logger),
		Alerts:   alerts,
	}, a.cfg.Sync, a.logger), nil
}

func (a *app) Close() {
	a.stop()
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Error("Failed to close database")
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
