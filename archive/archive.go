// Package archive bundles a session's output directory into a single
// downloadable zip.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Build streams every regular file under srcDir into a compressed archive
// at destZip. Entries sit at the archive root with no directory prefix.
// The archive is assembled next to its final path and renamed into place so
// a concurrent download never observes a half-written file.
func Build(srcDir, destZip string) error {
	tmp, err := os.CreateTemp(filepath.Dir(destZip), ".zip-*")
	if err != nil {
		return fmt.Errorf("create archive temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		_ = os.Remove(tmpName)
	}

	zw := zip.NewWriter(tmp)
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// Dot-prefixed entries are scratch files, never payload.
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		cleanup()
		return fmt.Errorf("archive %s: %w", srcDir, err)
	}
	if err := zw.Close(); err != nil {
		cleanup()
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpName, destZip); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
