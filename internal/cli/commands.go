package cli

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/propsync/internal/alert"
	"github.com/Kamar-Folarin/propsync/internal/engine"
	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			// bootstrap migrates
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()
			a.logger.Info("Migrations applied")
			return nil
		},
	}
}

func newDrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Run one drain pass over the queue and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			service, err := a.newService(ctx, alert.NewLogSink(a.logger))
			if err != nil {
				return err
			}

			summary := service.RunSync(ctx, engine.TriggerManual)
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			return summaryError("drain", summary)
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the sync status and queue breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			tracker := engine.NewStatusTracker(a.store, a.logger)
			status, err := tracker.GetStatus(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
}

func newResyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync <entity|all>",
		Short: "Rebuild the local read model from the server",
		Args:  cobra.ExactArgs(1),
		ValidArgs: append([]string{"all"}, func() []string {
			var names []string
			for _, t := range models.AllEntityTypes() {
				names = append(names, string(t))
			}
			return names
		}()...),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entityType models.EntityType
			if args[0] != "all" {
				t, err := models.ParseEntityType(args[0])
				if err != nil {
					return err
				}
				entityType = t
			}

			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			service, err := a.newService(ctx, alert.NewLogSink(a.logger))
			if err != nil {
				return err
			}
			resync := service.ResyncService()

			if entityType == "" {
				results := resync.SyncAll(ctx)
				if err := printJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
				for _, t := range models.AllEntityTypes() {
					if err := summaryError("resync "+string(t), results[t]); err != nil {
						return err
					}
				}
				return nil
			}

			logger := a.logger.WithField("entity_type", entityType)
			summary := resync.Sync(ctx, entityType, func(done, total int) {
				logger.WithFields(logrus.Fields{"done": done, "total": total}).Debug("Resync progress")
			})
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			return summaryError("resync "+string(entityType), summary)
		},
	}
}

// summaryError turns an unsuccessful summary into a command error so the
// process exits non-zero
func summaryError(operation string, summary *models.SyncSummary) error {
	if summary == nil || summary.Success {
		return nil
	}
	if len(summary.Errors) > 0 && summary.Errors[0] == apperrors.SyncInProgressMessage {
		return apperrors.NewSyncInProgressError(operation)
	}
	return fmt.Errorf("%s failed: %s", operation, strings.Join(summary.Errors, "; "))
}
