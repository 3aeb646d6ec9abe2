// fxforward scrapes FX forward-rate curves and forecasts the mid curve.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/fxforward/api"
	"github.com/seenimoa/fxforward/internal/config"
	"github.com/seenimoa/fxforward/internal/forecast"
	"github.com/seenimoa/fxforward/internal/infra"
	"github.com/seenimoa/fxforward/internal/metrics"
	"github.com/seenimoa/fxforward/internal/pipeline"
	"github.com/seenimoa/fxforward/internal/scrape"
	"github.com/seenimoa/fxforward/internal/source"
	"github.com/seenimoa/fxforward/internal/tenor"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by PersistentPreRunE.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fxforward",
	Short: "fxforward: FX forward-rate curves and forecasts",
	Long: `fxforward fetches the forward-rate table for a currency pair from a
public quote page, turns it into a clean curve ordered by tenor and
extends the mid-rate curve with a forecasting model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger = infra.NewLogger(cfg.Logging, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(pairsCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(curveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// newPipeline wires the fetcher, registry and cache from the loaded config.
func newPipeline(m *metrics.Metrics) (*pipeline.Pipeline, error) {
	policy, err := tenor.ParsePolicy(cfg.Source.TenorPolicy)
	if err != nil {
		return nil, err
	}
	model, err := forecast.ParseKind(cfg.Forecast.Model)
	if err != nil {
		return nil, err
	}

	reg := source.NewDefaultRegistry()
	if err := reg.SetDefault(cfg.Source.Default); err != nil {
		return nil, err
	}

	fetcher := scrape.NewFetcher(scrape.FetcherConfig{
		Timeout:       cfg.Fetch.Timeout(),
		UserAgent:     cfg.Fetch.UserAgent,
		RatePerSecond: cfg.Fetch.RatePerSec,
	})

	return pipeline.New(pipeline.Options{
		Registry:          reg,
		Fetcher:           fetcher,
		Metrics:           m,
		Logger:            logger,
		TenorPolicy:       policy,
		DefaultModel:      model,
		Forecast:          forecast.Options{ProphetOrigin: cfg.Forecast.Origin()},
		ConcurrentFetches: cfg.Pipeline.ConcurrentFetches,
	}), nil
}

// forecastFlags reads --model and --horizon, falling back to config.
func forecastFlags(cmd *cobra.Command) (forecast.Kind, int, error) {
	name, _ := cmd.Flags().GetString("model")
	if name == "" {
		name = cfg.Forecast.Model
	}
	kind, err := forecast.ParseKind(name)
	if err != nil {
		return "", 0, err
	}
	horizon, _ := cmd.Flags().GetInt("horizon")
	if !cmd.Flags().Changed("horizon") {
		horizon = cfg.Forecast.Horizon
	}
	if horizon < 0 || horizon > api.MaxHorizon {
		return "", 0, fmt.Errorf("horizon must be between 0 and %d", api.MaxHorizon)
	}
	return kind, horizon, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fxforward %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Listing Commands ---

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "List the supported currency pairs",
	Run: func(cmd *cobra.Command, args []string) {
		renderPairs(cmd.OutOrStdout(), source.Pairs)
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the forward-rate sources",
	Run: func(cmd *cobra.Command, args []string) {
		reg := source.NewDefaultRegistry()
		if err := reg.SetDefault(cfg.Source.Default); err != nil {
			logger.Warn("configured default source is not registered", slog.String("source", cfg.Source.Default))
		}
		renderSources(cmd.OutOrStdout(), reg.List())
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the forecast models",
	Run: func(cmd *cobra.Command, args []string) {
		def, _ := forecast.ParseKind(cfg.Forecast.Model)
		renderModels(cmd.OutOrStdout(), def)
	},
}

// --- Curve Command ---

var curveCmd = &cobra.Command{
	Use:   "curve [pair]",
	Short: "Fetch one pair's forward curve and forecast it",
	Long: `Fetch the forward-rate table for a currency pair, print the curve in
tenor order and the forecast that follows it.

Examples:
  fxforward curve USD/MXN
  fxforward curve eur-usd --model holt --horizon 6
  fxforward curve usdjpy --source investing --model prophet`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pair, err := source.LookupPair(args[0])
		if err != nil {
			return err
		}
		kind, horizon, err := forecastFlags(cmd)
		if err != nil {
			return err
		}
		srcName, _ := cmd.Flags().GetString("source")

		pipe, err := newPipeline(metrics.New())
		if err != nil {
			return err
		}
		res := pipe.Run(cmd.Context(), pipeline.Request{
			Source:  srcName,
			Pair:    pair,
			Model:   kind,
			Horizon: horizon,
		})
		renderResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	curveCmd.Flags().String("source", "", "forward-rate source (default from config)")
	curveCmd.Flags().String("model", "", "forecast model: linear, holt, arima, prophet")
	curveCmd.Flags().Int("horizon", 3, "number of steps to forecast")
}

// --- Scan Command ---

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Fetch and forecast every supported pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, horizon, err := forecastFlags(cmd)
		if err != nil {
			return err
		}
		srcName, _ := cmd.Flags().GetString("source")

		pipe, err := newPipeline(metrics.New())
		if err != nil {
			return err
		}
		started := time.Now()
		results := pipe.RunAll(cmd.Context(), srcName, source.Pairs, kind, horizon)
		renderScan(cmd.OutOrStdout(), results)
		logger.Info("scan finished", slog.Int("pairs", len(results)), slog.Duration("elapsed", time.Since(started)))
		return nil
	},
}

func init() {
	scanCmd.Flags().String("source", "", "forward-rate source (default from config)")
	scanCmd.Flags().String("model", "", "forecast model: linear, holt, arima, prophet")
	scanCmd.Flags().Int("horizon", 3, "number of steps to forecast")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		m := metrics.New()
		pipe, err := newPipeline(m)
		if err != nil {
			return err
		}
		api.Version = version
		srv := api.NewServer(cfg, pipe, m, logger)
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Fprintf(cmd.OutOrStdout(), "Starting fxforward API server on %s\n", addr)
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		line := strings.Repeat("═", 39)
		fmt.Fprintln(out, line)
		fmt.Fprintln(out, "  fxforward: Status")
		fmt.Fprintln(out, line)
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Configuration:")
		fmt.Fprintf(out, "    Source:        %s (unknown tenors: %s)\n", cfg.Source.Default, cfg.Source.TenorPolicy)
		fmt.Fprintf(out, "    Forecast:      %s, %d steps\n", cfg.Forecast.Model, cfg.Forecast.Horizon)
		fmt.Fprintf(out, "    Fetch:         timeout %s, %.2f req/s\n", cfg.Fetch.Timeout(), cfg.Fetch.RatePerSec)
		fmt.Fprintf(out, "    Concurrency:   %d\n", cfg.Pipeline.ConcurrentFetches)
		fmt.Fprintf(out, "    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Fprintf(out, "    Logging:       %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Headers:")
		for _, h := range config.CheckHeaders(cfg) {
			fmt.Fprintf(out, "    %-25s %s (%s)\n", h.Name+":", h.Value, h.Source)
		}
		fmt.Fprintln(out, line)
		return nil
	},
}
