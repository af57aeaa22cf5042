package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChromeCAB/lighthouse/internal/collector"
	"github.com/ChromeCAB/lighthouse/internal/config"
	"github.com/ChromeCAB/lighthouse/internal/localcapture"
	"github.com/ChromeCAB/lighthouse/internal/logging"
	"github.com/ChromeCAB/lighthouse/internal/manifest"
	"github.com/ChromeCAB/lighthouse/internal/progress"
	"github.com/ChromeCAB/lighthouse/internal/progress/sinks"
	"github.com/ChromeCAB/lighthouse/internal/retry"
	"github.com/ChromeCAB/lighthouse/internal/wpt"
)

// newCollectCmd creates and configures the 'collect' subcommand, which
// runs the full collection pass over the configured URL list.
func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Runs the trace collection pass",
		Long: `Collects the configured number of trace samples per URL from both
backends, resuming from the manifest when a previous run was interrupted.`,
		RunE: runCollectCommand,
	}
}

func runCollectCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	hub, err := buildProgressHub(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := hub.Close(closeCtx); cerr != nil {
			logger.Warn("Failed to close progress hub", zap.Error(cerr))
		}
	}()

	engine, err := buildEngine(cfg, hub, logger)
	if err != nil {
		return err
	}

	if err := engine.Run(cmd.Context()); err != nil {
		return fmt.Errorf("run collection: %w", err)
	}
	logger.Info("Collection finished.")
	return nil
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

func buildProgressHub(cfg config.Config, logger *zap.Logger) (*progress.Hub, error) {
	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	if cfg.Metrics.Listen != "" {
		go serveMetrics(cfg.Metrics.Listen, logger)
	}

	hub := progress.NewHub(
		progress.Config{Logger: logger},
		sinks.NewLogSink(logger),
		promSink,
		sinks.NewTerminalSink(os.Stderr, 500*time.Millisecond),
	)
	return hub, nil
}

func serveMetrics(listen string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("Serving metrics", zap.String("addr", listen))
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Warn("Metrics listener stopped", zap.Error(err))
	}
}

func buildEngine(cfg config.Config, hub *progress.Hub, logger *zap.Logger) (*collector.Engine, error) {
	sink, err := collector.NewFileSystemSink(cfg.Collect.OutputDir, logger)
	if err != nil {
		return nil, fmt.Errorf("init trace sink: %w", err)
	}
	runner, err := localcapture.NewRunner(cfg.Local.Command, cfg.Local.ArtifactsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("init local runner: %w", err)
	}
	client := wpt.NewClient(wpt.Config{
		BaseURL:      cfg.WPT.BaseURL,
		APIKey:       cfg.WPT.Key,
		Location:     cfg.WPT.Location,
		PollFallback: cfg.PollFallback(),
	}, logger)
	store := manifest.NewStore(cfg.Collect.Manifest, logger)
	policy := retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Backoff: cfg.Retry.Backoff}

	return collector.NewEngine(
		collector.Config{
			URLs:        cfg.Collect.URLs,
			Samples:     cfg.Collect.Samples,
			ArchivePath: cfg.ArchivePath(),
		},
		client,
		runner,
		store,
		sink,
		policy,
		hub,
		logger,
	)
}
