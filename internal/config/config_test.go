package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WPT_KEY", "abc123")
	path := writeConfig(t, `
collect:
  urls:
    - https://example.com
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com"}, cfg.Collect.URLs)
	require.Equal(t, 9, cfg.Collect.Samples)
	require.Equal(t, "abc123", cfg.WPT.Key)
	require.Equal(t, "https://www.webpagetest.org", cfg.WPT.BaseURL)
	require.Equal(t, 5*time.Second, cfg.PollFallback())
	require.Equal(t, "lighthouse", cfg.Local.Command)
	require.Equal(t, 0, cfg.Retry.MaxAttempts)
	require.Equal(t, filepath.Join("data", "traces", "summary.json"), cfg.Collect.Manifest)
	require.Equal(t, filepath.Join("data", "traces")+".zip", cfg.ArchivePath())
}

func TestLoad_MissingAPIKeyIsFatal(t *testing.T) {
	t.Setenv("WPT_KEY", "")
	t.Setenv("COLLECT_WPT_KEY", "")
	path := writeConfig(t, `
collect:
  urls:
    - https://example.com
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "wpt.key")
}

func TestLoad_MissingURLsIsFatal(t *testing.T) {
	t.Setenv("WPT_KEY", "abc123")
	path := writeConfig(t, `
collect:
  samples: 2
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "collect.urls")
}

func TestLoad_ExplicitValues(t *testing.T) {
	t.Setenv("WPT_KEY", "abc123")
	path := writeConfig(t, `
collect:
  urls:
    - https://example.com
    - https://other.example
  samples: 2
  output_dir: /tmp/out
  archive: false
wpt:
  location: "ec2-us-east-1:Chrome.4G"
  poll_fallback_seconds: 10
local:
  command: /usr/local/bin/analyzer
retry:
  max_attempts: 5
  backoff: 2s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Collect.URLs, 2)
	require.Equal(t, 2, cfg.Collect.Samples)
	require.Empty(t, cfg.ArchivePath())
	require.Equal(t, "ec2-us-east-1:Chrome.4G", cfg.WPT.Location)
	require.Equal(t, 10*time.Second, cfg.PollFallback())
	require.Equal(t, "/usr/local/bin/analyzer", cfg.Local.Command)
	require.Equal(t, 5, cfg.Retry.MaxAttempts)
	require.Equal(t, 2*time.Second, cfg.Retry.Backoff)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("WPT_KEY", "from-bare-env")
	t.Setenv("COLLECT_COLLECT_SAMPLES", "3")
	path := writeConfig(t, `
collect:
  urls:
    - https://example.com
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-bare-env", cfg.WPT.Key)
	require.Equal(t, 3, cfg.Collect.Samples)
}
