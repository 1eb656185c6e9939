package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/carefinder/internal/bootstrap"
	"github.com/zatekoja/carefinder/internal/infrastructure/observability"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
				shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
				if err != nil {
					log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
				} else {
					defer func() {
						ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
						defer cancel()
						_ = shutdown(ctx)
					}()
				}
			}

			app, err := bootstrap.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeApp(app)

			return app.Serve(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 3001, "listen port (overrides PORT)")
	return cmd
}
