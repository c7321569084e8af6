package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List repositories the credentials can read",
	Long: `Lists the repositories with issues enabled that the configured GitHub
credentials can read. Archived repositories and forks are skipped. The
output can be pasted into the [[repositories]] section of the config.`,
	Args: cobra.NoArgs,
	RunE: runRepos,
}

func init() {
	rootCmd.AddCommand(reposCmd)
}

func runRepos(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Repos == nil {
		return errors.New("repository service not configured")
	}

	repos, err := svc.Repos.Accessible(cmd.Context())
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		cmd.Println("No repositories found.")
		return nil
	}
	for _, r := range repos {
		visibility := "public"
		if r.Private {
			visibility = "private"
		}
		cmd.Printf("%-50s %s\n", r.FullName(), visibility)
	}
	return nil
}
