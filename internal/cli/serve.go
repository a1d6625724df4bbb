package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/propsync/internal/alert"
	"github.com/Kamar-Folarin/propsync/internal/api"
	"github.com/Kamar-Folarin/propsync/internal/connectivity"
	"github.com/Kamar-Folarin/propsync/internal/engine"
)

func newServeCmd() *cobra.Command {
	var alertBuffer int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sync scheduler and the local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(alertBuffer)
		},
	}

	cmd.Flags().IntVar(&alertBuffer, "alert-buffer", 100, "Number of recent alerts kept for the alerts endpoint")

	return cmd
}

func (a *app) serve(alertBuffer int) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recent := alert.NewMemorySink(alertBuffer)
	service, err := a.newService(ctx, alert.MultiSink{alert.NewLogSink(a.logger), recent})
	if err != nil {
		return err
	}

	probe := connectivity.NewProbe(a.source, a.logger)
	monitor := connectivity.NewMonitor(probe, a.source, connectivityPoll, a.logger)
	scheduler := engine.NewScheduler(service.Processor(), a.cfg.Sync.Interval, a.cfg.Sync.PassTimeout, monitor.Regained(), a.logger)

	go monitor.Run(ctx)
	go scheduler.Run(ctx)

	router := api.SetupRouter(api.NewHandler(service, recent, a.logger), a.logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("Server starting on port %s", a.cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		a.logger.WithError(err).Error("Server failed")
		return err
	}

	a.logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Errorf("Server shutdown failed: %v", err)
		return err
	}
	a.logger.Info("Server exited properly")
	return nil
}
