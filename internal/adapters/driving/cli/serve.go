package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run sync and reconciliation on a schedule",
	Long: `Runs in the foreground and starts the sync and reconciliation passes
whenever they are due, as set by [schedule] in the config. Task state
survives restarts. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx := cmd.Context()
	cmd.Println("Scheduler running. Press Ctrl-C to stop.")

	err = svc.Scheduler.Start(ctx)
	if stopErr := svc.Scheduler.Stop(); stopErr != nil {
		slog.ErrorContext(ctx, "scheduler stop failed", "error", stopErr)
	}
	if errors.Is(err, context.Canceled) {
		cmd.Println("Scheduler stopped.")
		return nil
	}
	return err
}
