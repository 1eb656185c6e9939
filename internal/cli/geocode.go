package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zatekoja/carefinder/internal/bootstrap"
)

func newGeocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <postcode>",
		Short: "Resolve a postcode to coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.RequestTimeout)
			defer cancel()

			app, err := bootstrap.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeApp(app)

			c, err := app.Service.Geocode(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.6f\t%.6f\n", args[0], c.Lat, c.Lon)
			return nil
		},
	}
}
