package main

import (
	"coldcall-api/internal/app"
	"coldcall-api/internal/config"
	"coldcall-api/internal/logger"
	"coldcall-api/internal/metrics"
	"coldcall-api/internal/models"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// cliIdentity keys the usage gate for command line runs.
const cliIdentity = "cli"

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for businesses and export them as CSV",
		Long: `Search runs one business search and writes the shown rows as CSV.

Examples:
  # Plumbers within 10 km of Austin, written to stdout
  coldcall search -l "Austin, TX" -c plumber -r 10

  # Only businesses with a live website, with scripts, to a file
  coldcall search -l Denver -c dentist --live-only \
    --service "Website redesign and local SEO" -o dentists.csv`,
		Args: cobra.NoArgs,
		RunE: runSearchCmd,
	}

	cmd.Flags().StringP("location", "l", "", "City, address or region to search around")
	cmd.Flags().StringP("category", "c", "", "Business type, for example plumber")
	cmd.Flags().IntP("radius", "r", 5, "Search radius in km (1-50)")
	cmd.Flags().Float64("min-rating", 0, "Drop businesses rated below this")
	cmd.Flags().Bool("require-website", false, "Only keep businesses that list a website")
	cmd.Flags().Bool("live-only", false, "Only keep businesses whose website answers")
	cmd.Flags().Bool("verify", false, "Check every listed website and report its status")
	cmd.Flags().StringP("service", "s", "", "Service you offer; generates a script per business")
	cmd.Flags().StringP("out", "o", "", "CSV output file (default stdout)")

	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

type searchOptions struct {
	params  models.SearchParams
	service string
	out     string
}

func parseSearchFlags(cmd *cobra.Command) (searchOptions, error) {
	var opts searchOptions
	var err error
	flags := cmd.Flags()

	if opts.params.Location, err = flags.GetString("location"); err != nil {
		return opts, err
	}
	if opts.params.Category, err = flags.GetString("category"); err != nil {
		return opts, err
	}
	if opts.params.RadiusKm, err = flags.GetInt("radius"); err != nil {
		return opts, err
	}
	if opts.params.Filters.MinRating, err = flags.GetFloat64("min-rating"); err != nil {
		return opts, err
	}
	if opts.params.Filters.RequireWebsite, err = flags.GetBool("require-website"); err != nil {
		return opts, err
	}
	if opts.params.Filters.LiveWebsiteOnly, err = flags.GetBool("live-only"); err != nil {
		return opts, err
	}
	if opts.params.VerifyWebsites, err = flags.GetBool("verify"); err != nil {
		return opts, err
	}
	if opts.service, err = flags.GetString("service"); err != nil {
		return opts, err
	}
	if opts.out, err = flags.GetString("out"); err != nil {
		return opts, err
	}
	return opts, nil
}

func runSearchCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseSearchFlags(cmd)
	if err != nil {
		return err
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := cmd.Flags().GetString("log-level")
	if err := logger.Configure(level, "text", ""); err != nil {
		return err
	}
	logger.Logger.SetOutput(cmd.ErrOrStderr())

	ctx := cmd.Context()
	application, err := app.New(ctx, cfg, metrics.New(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	defer application.Close()

	outreach := application.Outreach
	result, err := outreach.Search(ctx, cliIdentity, opts.params)
	if err != nil {
		return err
	}

	if opts.service != "" {
		if _, err := outreach.SetServiceDescription(cliIdentity, opts.service); err != nil {
			return err
		}
		for _, row := range result.Rows {
			if _, err := outreach.GenerateScript(ctx, cliIdentity, row.Business.PlaceID); err != nil {
				logger.LogEvent(logrus.WarnLevel, "Script generation failed", logrus.Fields{
					"place_id": row.Business.PlaceID,
					"error":    err.Error(),
				})
			}
		}
	}

	data, _, err := outreach.Export(cliIdentity)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), opts.out, data); err != nil {
		return err
	}

	summary := fmt.Sprintf("%d of %d businesses exported", result.Shown, result.Total)
	if result.Truncated {
		summary += " (daily contact limit reached)"
	}
	if result.Demo {
		summary += " [demo data]"
	}
	fmt.Fprintln(cmd.ErrOrStderr(), summary)
	return nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
