// SPDX-License-Identifier: MPL-2.0

// Package archive creates and extracts the zip artifacts of a release.
//
// Archives are laid out with paths relative to the source directory root
// (no enclosing wrapper directory) so that extracting an artifact into an
// empty directory reproduces the component's file tree exactly. Entries
// are compressed with deflate at the strongest level.
package archive

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Create compresses the directory tree rooted at srcDir into a zip file
// at destPath. Entry names are forward-slash paths relative to srcDir.
// Completion is signaled only after the output stream is flushed and
// closed; on any failure the partial output file is removed and an error
// is returned, so a non-nil error means destPath does not exist.
func Create(srcDir, destPath string) (err error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("stat source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", srcDir)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(destPath)
		}
	}()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	err = filepath.WalkDir(srcDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		relPath, relErr := filepath.Rel(srcDir, path)
		if relErr != nil {
			return fmt.Errorf("resolving relative path: %w", relErr)
		}
		if relPath == "." {
			return nil
		}
		entryName := filepath.ToSlash(relPath)

		if d.IsDir() {
			if _, dirErr := zw.Create(entryName + "/"); dirErr != nil {
				return fmt.Errorf("creating directory entry %s: %w", entryName, dirErr)
			}
			return nil
		}

		fileInfo, infoErr := d.Info()
		if infoErr != nil {
			return fmt.Errorf("reading file info for %s: %w", path, infoErr)
		}

		header, hdrErr := zip.FileInfoHeader(fileInfo)
		if hdrErr != nil {
			return fmt.Errorf("creating header for %s: %w", entryName, hdrErr)
		}
		header.Name = entryName
		header.Method = zip.Deflate

		w, entryErr := zw.CreateHeader(header)
		if entryErr != nil {
			return fmt.Errorf("creating entry %s: %w", entryName, entryErr)
		}

		src, openErr := os.Open(path)
		if openErr != nil {
			return fmt.Errorf("opening %s: %w", path, openErr)
		}
		_, copyErr := io.Copy(w, src)
		src.Close()
		if copyErr != nil {
			return fmt.Errorf("writing entry %s: %w", entryName, copyErr)
		}

		return nil
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("archiving %s: %w", srcDir, err)
	}

	if err = zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("closing archive file: %w", err)
	}

	return nil
}

// Extract unpacks the zip at zipPath into destDir, creating it if needed.
// Entry paths are validated against directory traversal before any write.
func Extract(zipPath, destDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolving destination: %w", err)
	}
	if err := os.MkdirAll(absDest, 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	for _, f := range zr.File {
		destPath := filepath.Join(absDest, filepath.FromSlash(f.Name))

		// Reject entries that would escape the destination.
		relPath, relErr := filepath.Rel(absDest, destPath)
		if relErr != nil || strings.HasPrefix(relPath, "..") {
			return fmt.Errorf("invalid path in archive: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, f.Mode()); err != nil {
				return fmt.Errorf("creating directory %s: %w", relPath, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return fmt.Errorf("creating parent directory for %s: %w", relPath, err)
		}
		if err := extractFile(f, destPath); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}

	return nil
}

// extractFile writes a single archive entry to destPath.
func extractFile(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(dest, rc); err != nil {
		dest.Close()
		return err
	}
	return dest.Close()
}
