// Package manifest persists the resumption checkpoint for a collection run.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ChromeCAB/lighthouse/internal/trace"
)

// Store reads and writes the manifest file. Every Save is a full snapshot
// of the in-memory entries; there are no incremental writes.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore returns a store backed by the JSON file at path.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Load reads the persisted entries, dropping any whose URL is not in urls.
// A missing file is not an error and yields no entries; a malformed file is
// a fatal parse failure surfaced to the caller.
func (s *Store) Load(urls []string) ([]trace.Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest %s: %w", s.path, err)
	}
	var entries []trace.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", s.path, err)
	}

	keep := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		keep[u] = struct{}{}
	}
	filtered := make([]trace.Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := keep[e.URL]; !ok {
			s.logger.Info("dropping manifest entry for removed URL", zap.String("url", e.URL))
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered, nil
}

// Save overwrites the manifest with the full current entries. The write is
// atomic: a temp file in the same directory renamed over the target.
func (s *Store) Save(entries []trace.Entry) error {
	if entries == nil {
		entries = []trace.Entry{}
	}
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	payload = append(payload, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create manifest dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("create manifest temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write manifest temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close manifest temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename manifest into place: %w", err)
	}
	return nil
}
