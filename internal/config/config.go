// Package config loads and validates collector configuration via Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Collect CollectConfig `mapstructure:"collect"`
	WPT     WPTConfig     `mapstructure:"wpt"`
	Local   LocalConfig   `mapstructure:"local"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CollectConfig governs the orchestration loop.
type CollectConfig struct {
	URLs      []string `mapstructure:"urls"`
	Samples   int      `mapstructure:"samples"`
	OutputDir string   `mapstructure:"output_dir"`
	Manifest  string   `mapstructure:"manifest"`
	Archive   bool     `mapstructure:"archive"`
}

// WPTConfig configures the remote performance-testing service client.
type WPTConfig struct {
	Key                 string `mapstructure:"key"`
	BaseURL             string `mapstructure:"base_url"`
	Location            string `mapstructure:"location"`
	PollFallbackSeconds int    `mapstructure:"poll_fallback_seconds"`
}

// LocalConfig configures the local analyzer subprocess.
type LocalConfig struct {
	Command      string `mapstructure:"command"`
	ArtifactsDir string `mapstructure:"artifacts_dir"`
}

// RetryConfig exposes the sample-level retry policy. MaxAttempts 0 keeps
// the default unbounded retry used for supervised collection runs.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// LoggingConfig toggles zap development mode and the optional rotating
// run-log file.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// MetricsConfig optionally exposes the Prometheus registry over HTTP for
// scraping during long runs. Empty disables the listener.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COLLECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The bare WPT_KEY form is what operators of the remote service
	// already have exported.
	if err := v.BindEnv("wpt.key", "COLLECT_WPT_KEY", "WPT_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind wpt key env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Collect.Manifest == "" {
		cfg.Collect.Manifest = filepath.Join(cfg.Collect.OutputDir, "summary.json")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("collect.samples", 9)
	v.SetDefault("collect.output_dir", "data/traces")
	v.SetDefault("collect.archive", true)
	v.SetDefault("wpt.base_url", "https://www.webpagetest.org")
	v.SetDefault("wpt.location", "Dulles_MotoG4:Motorola G (gen 4) - Chrome.3G")
	v.SetDefault("wpt.poll_fallback_seconds", 5)
	v.SetDefault("local.command", "lighthouse")
	v.SetDefault("local.artifacts_dir", filepath.Join(os.TempDir(), "collect-artifacts"))
	v.SetDefault("retry.max_attempts", 0)
	v.SetDefault("retry.backoff", "0s")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values. A missing API key or URL list is a
// fatal startup error; nothing runs without them.
func (c Config) Validate() error {
	if len(c.Collect.URLs) == 0 {
		return fmt.Errorf("collect.urls must include at least one URL")
	}
	if c.Collect.Samples <= 0 {
		return fmt.Errorf("collect.samples must be > 0")
	}
	if c.Collect.OutputDir == "" {
		return fmt.Errorf("collect.output_dir must be set")
	}
	if c.WPT.Key == "" {
		return fmt.Errorf("wpt.key must be set (WPT_KEY env var)")
	}
	if c.WPT.BaseURL == "" {
		return fmt.Errorf("wpt.base_url must be set")
	}
	if c.WPT.PollFallbackSeconds <= 0 {
		return fmt.Errorf("wpt.poll_fallback_seconds must be > 0")
	}
	if c.Local.Command == "" {
		return fmt.Errorf("local.command must be set")
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must be >= 0")
	}
	return nil
}

// ArchivePath is where the zipped output directory lands, or empty when
// archiving is disabled.
func (c Config) ArchivePath() string {
	if !c.Collect.Archive {
		return ""
	}
	return strings.TrimSuffix(c.Collect.OutputDir, string(os.PathSeparator)) + ".zip"
}

// PollFallback converts the configured seconds into a duration.
func (c Config) PollFallback() time.Duration {
	return time.Duration(c.WPT.PollFallbackSeconds) * time.Second
}
