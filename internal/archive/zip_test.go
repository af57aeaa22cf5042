package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZipDir(t *testing.T) {
	t.Parallel()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "example.com-wpt-1.trace.json"), []byte("A"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "summary.json"), []byte("[]"), 0o600))

	dest := filepath.Join(t.TempDir(), "traces.zip")
	require.NoError(t, ZipDir(src, dest))

	r, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, r.Close())
	}()

	names := make([]string, 0, len(r.File))
	contents := make(map[string]string, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		contents[f.Name] = string(data)
	}
	sort.Strings(names)
	require.Equal(t, []string{"example.com-wpt-1.trace.json", "summary.json"}, names)
	require.Equal(t, "A", contents["example.com-wpt-1.trace.json"])
}

func TestZipDir_MissingSource(t *testing.T) {
	t.Parallel()
	dest := filepath.Join(t.TempDir(), "traces.zip")
	require.Error(t, ZipDir(filepath.Join(t.TempDir(), "nope"), dest))
}
