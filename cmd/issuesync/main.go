// Command issuesync incrementally synchronises GitHub issues into a
// search index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/issuesync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/issuesync/internal/adapters/driving/cli"
	"github.com/custodia-labs/issuesync/internal/logger"
	"github.com/custodia-labs/issuesync/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := file.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	telCfg := telemetry.FromEnv(version)
	tel, err := telemetry.Setup(ctx, telCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	logger.Setup(logger.Options{
		Format:      logger.FormatText,
		OTel:        tel != nil,
		ServiceName: telCfg.ServiceName,
	})

	cli.SetVersion(version)
	cli.SetBootstrap(func(ctx context.Context, opts cli.Options) (*cli.Services, error) {
		return bootstrap(ctx, opts, tel != nil, telCfg.ServiceName)
	})

	code := 0
	if err := cli.Execute(ctx); err != nil {
		code = 1
	}

	if err := cli.Shutdown(); err != nil {
		slog.Error("closing services", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintln(os.Stderr, "telemetry shutdown:", err)
	}
	return code
}
