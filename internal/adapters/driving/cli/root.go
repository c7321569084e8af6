// Package cli implements the issuesync command line.
//
// Commands are package-level cobra commands registered on rootCmd in their
// init functions. The core services are built lazily by a Bootstrap hook
// installed by main, so commands that need no services (version) never
// touch the configuration.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/issuesync/internal/core/domain"
	"github.com/custodia-labs/issuesync/internal/core/ports/driving"
	"github.com/custodia-labs/issuesync/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Global flags.
var (
	configPath string
	verbose    bool
)

// Services are the core services the commands drive.
type Services struct {
	Sync       driving.SyncOrchestrator
	Reconciler driving.Reconciler
	Watermarks driving.WatermarkService
	Repos      driving.RepositoryService
	Scheduler  driving.Scheduler

	// Configured is the repository set from the configuration. Entries
	// without a configured visibility are marked Unresolved.
	Configured []domain.Repository

	// Close releases the stores and exporters behind the services.
	Close func() error
}

// Options are the global flag values handed to a Bootstrap.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// Bootstrap builds the services from the global options.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var (
	bootstrap Bootstrap
	services  *Services
)

var rootCmd = &cobra.Command{
	Use:   "issuesync",
	Short: "Incrementally synchronise GitHub issues into a search index",
	Long: `issuesync pages through the issues of the configured repositories,
normalises them into search documents and writes them to Typesense.
Progress is recorded per repository so each run only fetches what changed.

Settings are read from ~/.issuesync/config.toml (see --config). Credentials
come from the environment: GITHUB_TOKEN, or GITHUB_APP_ID,
GITHUB_APP_PRIVATE_KEY and GITHUB_APP_INSTALLATION_ID, plus
TYPESENSE_API_KEY.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.issuesync/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the hook that builds the services.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs already built services.
func SetServices(s *Services) {
	services = s
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Shutdown releases the services if they were built.
func Shutdown() error {
	if services == nil || services.Close == nil {
		return nil
	}
	return services.Close()
}

// loadServices returns the services, building them on first use.
func loadServices(cmd *cobra.Command) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if bootstrap == nil {
		return nil, errors.New("services not configured")
	}
	s, err := bootstrap(cmd.Context(), Options{ConfigPath: configPath, Verbose: verbose})
	if err != nil {
		return nil, err
	}
	services = s
	return s, nil
}
