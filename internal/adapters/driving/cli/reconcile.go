package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Mark indexed issues that moved away as transferred",
	Long: `Runs one reconciliation sweep.
Open documents that have not been updated for stale_after_days are probed
at their recorded location. Documents whose issue answers with one of the
relocated_statuses are marked transferred.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Reconciler == nil {
		return errors.New("reconciler not configured")
	}

	report, err := svc.Reconciler.Sweep(cmd.Context())
	cmd.Printf("Reviewed %d stale documents: %d transferred, %d unchanged, %d failed.\n",
		report.Candidates, report.Transferred, report.Unchanged, report.Failed)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}
	return nil
}
