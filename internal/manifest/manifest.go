// SPDX-License-Identifier: MPL-2.0

// Package manifest builds and verifies the release manifest (info.json).
//
// The manifest is the single source of truth for what a release run
// produced: the version, each artifact with its SHA-512 digest and size,
// and the release timestamp. It trusts its inputs — artifact integrity is
// the digest package's concern.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"distpack/internal/digest"
)

// FileName is the manifest's on-disk name inside a version directory.
const FileName = "info.json"

// ErrDigestMismatch indicates a manifest entry no longer matches the
// artifact on disk.
var ErrDigestMismatch = errors.New("digest mismatch")

type (
	// File describes one artifact listed in the manifest.
	File struct {
		// URL is the artifact filename relative to the manifest, e.g. "core.zip".
		URL string `json:"url"`
		// SHA512 is the padded base64 SHA-512 digest of the artifact.
		SHA512 string `json:"sha512"`
		// Size is the artifact length in bytes.
		Size int64 `json:"size"`
	}

	// Manifest is the JSON document written as info.json.
	Manifest struct {
		Version     string `json:"version"`
		Files       []File `json:"files"`
		ReleaseDate string `json:"releaseDate"`
	}

	// MismatchError reports a single verification failure. It wraps
	// ErrDigestMismatch so callers can classify with errors.Is.
	MismatchError struct {
		URL      string
		Expected string
		Got      string
	}
)

// Error returns a human-readable description of the mismatch.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("digest mismatch for %s\nExpected: %s\nGot:      %s", e.URL, e.Expected, e.Got)
}

// Unwrap returns ErrDigestMismatch so callers can use errors.Is.
func (e *MismatchError) Unwrap() error { return ErrDigestMismatch }

// Build assembles a manifest from the version, the ordered artifact list,
// and a capture of now. The release date is recorded as RFC 3339 UTC.
func Build(version string, files []File, now time.Time) *Manifest {
	return &Manifest{
		Version:     version,
		Files:       files,
		ReleaseDate: now.UTC().Format(time.RFC3339),
	}
}

// Write serializes the manifest as indented JSON at path.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Load reads and decodes a manifest from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// VerifyDir recomputes the digest and size of every listed artifact under
// dir and compares them against the manifest. It returns the first
// discrepancy found: a missing artifact, a size difference, or a
// *MismatchError for differing hashes.
func (m *Manifest) VerifyDir(dir string) error {
	for _, f := range m.Files {
		d, err := digest.File(filepath.Join(dir, f.URL))
		if err != nil {
			return fmt.Errorf("verifying %s: %w", f.URL, err)
		}
		if d.Size != f.Size {
			return fmt.Errorf("verifying %s: size %d on disk, manifest records %d", f.URL, d.Size, f.Size)
		}
		if d.SHA512 != f.SHA512 {
			return &MismatchError{URL: f.URL, Expected: f.SHA512, Got: d.SHA512}
		}
	}
	return nil
}
