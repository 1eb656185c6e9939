package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zatekoja/carefinder/internal/bootstrap"
	"github.com/zatekoja/carefinder/internal/infrastructure/observability"
	"github.com/zatekoja/carefinder/pkg/config"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "carefinder",
		Short:         "Find nearby GP surgeries, walk-in centres, urgent treatment centres and A&E departments",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (%s)", Version, CommitSHA),
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newGeocodeCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and sets up logging for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	observability.InitLoggerTo(os.Stderr, cfg.OTEL.ServiceName, cfg.Server.Env)
	return cfg, nil
}

// closeApp releases app resources, ignoring errors on the way out.
func closeApp(app *bootstrap.App) {
	_ = app.Close()
}
