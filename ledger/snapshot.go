// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Export writes a point-in-time copy of the store's on-disk files to
// destPath as a zip archive, the transferable form spec.md §4.7/§6
// calls a snapshot.
func (s *Store) Export(destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.path)
	if err != nil {
		return fmt.Errorf("ledger: read db dir %s: %w", s.path, err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("ledger: create snapshot %s: %w", destPath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := addFileToZip(zw, filepath.Join(s.path, e.Name()), e.Name()); err != nil {
			zw.Close()
			return fmt.Errorf("ledger: add %s to snapshot: %w", e.Name(), err)
		}
	}
	return zw.Close()
}

func addFileToZip(zw *zip.Writer, srcPath, name string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

// ImportSnapshot replaces the database at dbPath with the contents of
// snapshotPath, using a unique scratch directory and an atomic rename
// into place so concurrent syncs never race (spec.md §9). It returns a
// freshly opened Store over the imported database; the caller is
// responsible for closing the prior Store first.
func ImportSnapshot(snapshotPath, dbPath string) (*Store, error) {
	scratchDir := dbPath + "." + uuid.NewString() + ".importing"
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create import scratch dir: %w", err)
	}

	if err := extractZip(snapshotPath, scratchDir); err != nil {
		os.RemoveAll(scratchDir)
		return nil, fmt.Errorf("ledger: extract snapshot %s: %w", snapshotPath, err)
	}

	if err := os.RemoveAll(dbPath); err != nil {
		os.RemoveAll(scratchDir)
		return nil, fmt.Errorf("ledger: remove stale db %s: %w", dbPath, err)
	}
	if err := os.Rename(scratchDir, dbPath); err != nil {
		os.RemoveAll(scratchDir)
		return nil, fmt.Errorf("ledger: rename import into place: %w", err)
	}

	return Open(dbPath)
}

func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractZipEntry(f, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, destDir string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	destPath := filepath.Join(destDir, filepath.Base(f.Name))
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
