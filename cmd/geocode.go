package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/UnknownOlympus/geoplot/internal/config"
	"github.com/UnknownOlympus/geoplot/internal/geocoding"
	"github.com/UnknownOlympus/geoplot/internal/metrics"
	"github.com/UnknownOlympus/geoplot/internal/models"
	"github.com/UnknownOlympus/geoplot/internal/pipeline"
	"github.com/UnknownOlympus/geoplot/internal/present"
	"github.com/UnknownOlympus/geoplot/internal/repository"
	"github.com/UnknownOlympus/geoplot/internal/service"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type geocodeOptions struct {
	in       string
	out      string
	apiKey   string
	encoding string
	progress bool
}

// runner is the part of the geocoding service the CLI needs.
type runner interface {
	Geocode(ctx context.Context, req models.GeocodeRequest) (*models.Run, error)
}

var geocodeOpts geocodeOptions

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "geocode a file and write the annotated CSV",
	Example: `  geoplot geocode --in addresses.csv --out geocoded_data.csv --api-key $HERE_KEY
  GEOPLOT_PROVIDER_TYPE=nominatim geoplot geocode --in addresses.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.MustLoad()
		logger := setupLogger(cfg.Env, os.Stderr)

		if geocodeOpts.apiKey == "" {
			geocodeOpts.apiKey = cfg.Provider.APIKey
		}
		geocodeOpts.progress = isatty.IsTerminal(os.Stderr.Fd())

		svc := service.NewGeocodingService(
			logger,
			repository.NewMemoryRepository(),
			metrics.NewMetrics(prometheus.NewRegistry()),
			service.Options{
				ProviderType:  geocoding.ProviderType(cfg.Provider.Type),
				RateLimit:     cfg.Provider.RateLimit,
				Region:        cfg.Provider.Region,
				AddressPrefix: cfg.AddrPrefix,
			},
		)

		return runGeocode(cmd.Context(), svc, geocodeOpts, cmd.OutOrStdout())
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeOpts.in, "in", "", "input file (.csv or .xlsx)")
	geocodeCmd.Flags().StringVar(&geocodeOpts.out, "out", present.DownloadFilename, "output CSV path")
	geocodeCmd.Flags().StringVar(&geocodeOpts.apiKey, "api-key", "",
		"provider API key (defaults to GEOPLOT_PROVIDER_KEY)")
	geocodeCmd.Flags().StringVar(&geocodeOpts.encoding, "encoding", "utf-8", "character encoding of a CSV input")
	_ = geocodeCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(geocodeCmd)
}

func runGeocode(ctx context.Context, svc runner, opts geocodeOptions, stdout io.Writer) error {
	raw, err := os.ReadFile(opts.in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var bar *progressbar.ProgressBar
	onProgress := func(done, total int) {
		if !opts.progress {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Geocoding "+filepath.Base(opts.in)),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}

	run, err := svc.Geocode(ctx, models.GeocodeRequest{
		Filename:   filepath.Base(opts.in),
		Raw:        raw,
		Encoding:   opts.encoding,
		Credential: opts.apiKey,
		OnProgress: onProgress,
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		fmt.Fprintln(stdout, pipeline.UserMessage(err))
		return fmt.Errorf("%w: %w", errReported, err)
	}

	data, err := present.EncodeCSV(run.Results)
	if err != nil {
		return err
	}
	if err = os.WriteFile(opts.out, data, 0o600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Fprintln(stdout, pipeline.CountMessage(run.Results.Count()))

	return nil
}
