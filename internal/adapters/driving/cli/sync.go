package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync [owner/repo...]",
	Short: "Synchronise issues into the index",
	Long: `Runs one synchronisation pass.
If repositories are given as owner/repo, only those are synchronised.
Otherwise, every configured repository is synchronised.

Repositories run concurrently; a failing repository does not stop the
others. The command exits non-zero when any repository failed.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Sync == nil {
		return errors.New("sync service not configured")
	}
	ctx := cmd.Context()

	var report *domain.RunReport
	if len(args) > 0 {
		repos, err := selectRepositories(svc, args)
		if err != nil {
			return err
		}
		cmd.Printf("Synchronising %d repositories...\n", len(repos))
		report, err = svc.Sync.Sync(ctx, repos)
		printRunReport(cmd, report)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
	} else {
		cmd.Println("Synchronising all repositories...")
		report, err = svc.Sync.SyncAll(ctx)
		printRunReport(cmd, report)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
	}

	cmd.Printf("Synchronised %d documents.\n", report.Documents())
	return nil
}

// selectRepositories maps owner/repo arguments onto repositories. Entries
// found in the configuration keep its visibility; the rest are looked up
// by their own repository run.
func selectRepositories(svc *Services, args []string) ([]domain.Repository, error) {
	configured := make(map[string]domain.Repository, len(svc.Configured))
	for _, r := range svc.Configured {
		configured[r.FullName()] = r
	}

	repos := make([]domain.Repository, 0, len(args))
	for _, arg := range args {
		repo, err := domain.ParseRepository(arg)
		if err != nil {
			return nil, err
		}
		if known, ok := configured[repo.FullName()]; ok {
			repo = known
		} else {
			repo.Unresolved = true
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

func printRunReport(cmd *cobra.Command, report *domain.RunReport) {
	if report == nil {
		return
	}
	for _, res := range report.Results {
		if res.OK() {
			cmd.Printf("  %-40s %d pages (%d unchanged), %d documents, %d rejected\n",
				res.Repo.FullName(), res.Pages, res.Unchanged, res.Documents, res.FailedItems)
			continue
		}
		cmd.Printf("  %-40s FAILED: %v\n", res.Repo.FullName(), res.Err)
	}
}
