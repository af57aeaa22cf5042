// Package archive compresses the finished output directory into a single
// artifact.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ZipDir writes every regular file under srcDir into a zip at dest,
// preserving paths relative to srcDir. dest must lie outside srcDir.
func ZipDir(srcDir, dest string) (err error) {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", dest, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close archive %s: %w", dest, cerr)
		}
	}()

	zw := zip.NewWriter(out)
	defer func() {
		if cerr := zw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("finalize archive %s: %w", dest, cerr)
		}
	}()

	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("add %s to archive: %w", rel, err)
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer func() {
			_ = f.Close()
		}()
		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("copy %s into archive: %w", rel, err)
		}
		return nil
	})
}
