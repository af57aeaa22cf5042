package localcapture

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChromeCAB/lighthouse/internal/trace"
)

// writeStub writes an executable shell script standing in for the analyzer.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs are not portable to windows")
	}
	path := filepath.Join(t.TempDir(), "analyzer.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700))
	return path
}

func TestCapture_ReadsArtifact(t *testing.T) {
	t.Parallel()
	artifacts := t.TempDir()
	// The stub mimics the analyzer: second arg is -G=<dir>, where it
	// drops the fixed-name trace file.
	stub := writeStub(t, `dir="${2#-G=}"
printf '{"traceEvents":[]}' > "$dir/defaultPass.trace.json"
`)

	runner, err := NewRunner(stub, artifacts, zap.NewNop())
	require.NoError(t, err)

	blob, err := runner.Capture(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.JSONEq(t, `{"traceEvents":[]}`, string(blob))
}

func TestCapture_NonZeroExit(t *testing.T) {
	t.Parallel()
	stub := writeStub(t, `echo "chrome launch failed" >&2
exit 7
`)

	runner, err := NewRunner(stub, t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = runner.Capture(context.Background(), "https://example.com")
	var subErr *trace.SubprocessError
	require.ErrorAs(t, err, &subErr)
	require.Contains(t, subErr.Stderr, "chrome launch failed")
}

func TestCapture_MissingArtifact(t *testing.T) {
	t.Parallel()
	stub := writeStub(t, "exit 0\n")

	runner, err := NewRunner(stub, t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = runner.Capture(context.Background(), "https://example.com")
	var subErr *trace.SubprocessError
	require.ErrorAs(t, err, &subErr)
}

func TestCapture_OverwritesSharedArtifact(t *testing.T) {
	t.Parallel()
	stub := writeStub(t, `dir="${2#-G=}"
printf '%s' "$1" > "$dir/defaultPass.trace.json"
`)

	runner, err := NewRunner(stub, t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	first, err := runner.Capture(context.Background(), "https://a.example")
	require.NoError(t, err)
	second, err := runner.Capture(context.Background(), "https://b.example")
	require.NoError(t, err)
	require.Equal(t, "https://a.example", string(first))
	require.Equal(t, "https://b.example", string(second))
}

func TestNewRunner_RequiresCommand(t *testing.T) {
	t.Parallel()
	_, err := NewRunner("", t.TempDir(), zap.NewNop())
	require.Error(t, err)
}
