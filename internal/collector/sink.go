package collector

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ChromeCAB/lighthouse/internal/trace"
)

// FileSystemSink writes trace blobs into the output directory using the
// deterministic per-sample naming scheme.
type FileSystemSink struct {
	root   string
	logger *zap.Logger
}

// NewFileSystemSink returns a sink rooted at dir, creating it if needed.
func NewFileSystemSink(root string, logger *zap.Logger) (*FileSystemSink, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", root, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystemSink{root: root, logger: logger}, nil
}

// SaveTrace persists one sample and returns the filename recorded in the
// manifest. Index is 1-based.
func (s *FileSystemSink) SaveTrace(rawURL string, source trace.Source, index int, blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", fmt.Errorf("empty trace blob for %s sample %d of %s", source, index, rawURL)
	}
	name := trace.Filename(rawURL, source, index)
	target := filepath.Join(s.root, name)
	if err := os.WriteFile(target, blob, 0o600); err != nil {
		return "", fmt.Errorf("write trace %s: %w", target, err)
	}
	s.logger.Debug("trace written",
		zap.String("file", name),
		zap.Int("bytes", len(blob)),
	)
	return name, nil
}

// Root returns the output directory the sink writes into.
func (s *FileSystemSink) Root() string {
	return s.root
}
