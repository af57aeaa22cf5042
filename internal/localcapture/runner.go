// Package localcapture runs the local page-load analyzer as a subprocess
// and collects the trace artifact it writes.
package localcapture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ChromeCAB/lighthouse/internal/trace"
)

// ArtifactName is the fixed filename the analyzer writes into the
// artifacts directory on every run.
const ArtifactName = "defaultPass.trace.json"

// Runner invokes the analyzer binary once per Capture call. The artifacts
// directory is shared across invocations and the output filename is not
// unique per call, so callers must not run Capture concurrently.
type Runner struct {
	command      string
	artifactsDir string
	logger       *zap.Logger
}

// NewRunner builds a Runner for the given analyzer command and creates the
// shared artifacts directory.
func NewRunner(command, artifactsDir string, logger *zap.Logger) (*Runner, error) {
	if command == "" {
		return nil, fmt.Errorf("analyzer command must be set")
	}
	if err := os.MkdirAll(artifactsDir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifacts dir %s: %w", artifactsDir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		command:      command,
		artifactsDir: artifactsDir,
		logger:       logger,
	}, nil
}

// Capture runs one unthrottled trace capture for target and returns the raw
// trace blob read from the artifacts directory.
func (r *Runner) Capture(ctx context.Context, target string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.command, target, "-G="+r.artifactsDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("running local capture",
		zap.String("url", target),
		zap.Strings("command", cmd.Args),
	)
	if err := cmd.Run(); err != nil {
		return nil, &trace.SubprocessError{
			Command: r.command,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}

	artifact := filepath.Join(r.artifactsDir, ArtifactName)
	blob, err := os.ReadFile(artifact)
	if err != nil {
		return nil, &trace.SubprocessError{
			Command: r.command,
			Err:     fmt.Errorf("read trace artifact %s: %w", artifact, err),
		}
	}
	return blob, nil
}
