package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zatekoja/carefinder/internal/bootstrap"
	"github.com/zatekoja/carefinder/internal/domain/entities"
)

type searchFlags struct {
	postcode string
	lat      float64
	lon      float64
	category string
	radius   float64
	openNow  bool
	features []string
	sort     string
	asJSON   bool
}

func newSearchCmd() *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search [postcode]",
		Short: "Search facilities near a postcode or coordinate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.postcode = args[0]
			}
			query, err := f.query(cmd)
			if err != nil {
				return err
			}

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

			resp, err := app.Service.Search(ctx, query)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp.Results)
			}
			return printResults(out, resp)
		},
	}

	cmd.Flags().StringVar(&f.postcode, "postcode", "", "UK postcode or outward code")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "origin latitude")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "origin longitude")
	cmd.Flags().StringVar(&f.category, "type", "", "facility type: gp, walk-in, utc or ae")
	cmd.Flags().Float64Var(&f.radius, "radius", 0, "search radius in km (default from SEARCH_DEFAULT_RADIUS_KM)")
	cmd.Flags().BoolVar(&f.openNow, "open", false, "only facilities open now")
	cmd.Flags().StringSliceVar(&f.features, "feature", nil, "required features: wheelchair, parking, xray")
	cmd.Flags().StringVar(&f.sort, "sort", "", "ordering: nearest, open, closing or wait")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print results as JSON")
	cmd.MarkFlagsRequiredTogether("lat", "lon")

	return cmd
}

func (f *searchFlags) query(cmd *cobra.Command) (entities.SearchQuery, error) {
	q := entities.SearchQuery{
		OriginText: strings.TrimSpace(f.postcode),
		RadiusKm:   f.radius,
		OpenNow:    f.openNow,
		Features:   f.features,
		Sort:       entities.SortKey(strings.ToLower(f.sort)),
	}

	if cmd.Flags().Changed("lat") {
		if q.OriginText != "" {
			return q, fmt.Errorf("give either a postcode or --lat/--lon, not both")
		}
		q.OriginCoord = &entities.Coordinate{Lat: f.lat, Lon: f.lon}
	}
	if q.OriginText == "" && q.OriginCoord == nil {
		return q, fmt.Errorf("a postcode or --lat/--lon is required")
	}

	if f.category != "" {
		c, err := entities.ParseCategory(f.category)
		if err != nil {
			return q, err
		}
		q.Category = c
	}
	return q, nil
}

func printResults(out io.Writer, resp *entities.SearchResponse) error {
	fmt.Fprintf(out, "Origin %.5f,%.5f  radius %gkm  %d result(s)\n\n", resp.Origin.Lat, resp.Origin.Lon, resp.RadiusKm, resp.Count)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DISTANCE\tTYPE\tNAME\tSTATUS")
	for _, r := range resp.Results {
		fmt.Fprintf(tw, "%.1f km\t%s\t%s\t%s\n", float64(r.DistanceMeters)/1000, r.Category, r.Name, describeStatus(r.Status))
	}
	return tw.Flush()
}

func describeStatus(s entities.OpenStatus) string {
	if !s.Open {
		return "closed"
	}
	if s.ClosesInMinutes != nil {
		return fmt.Sprintf("open, closes in %d min", *s.ClosesInMinutes)
	}
	return "open"
}
