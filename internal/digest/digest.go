// SPDX-License-Identifier: MPL-2.0

// Package digest computes integrity metadata for release artifacts.
//
// A Digest pairs a base64-encoded SHA-512 hash with the file's size in
// bytes. It is reporting metadata for downstream consumers of the release
// manifest; distpack never compares digests against prior releases.
package digest

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

// EncodedLength is the length of a padded base64 SHA-512 digest string.
const EncodedLength = 88

// Digest holds the integrity metadata recorded for one artifact.
type Digest struct {
	// SHA512 is the standard-base64 (padded) encoding of the file's SHA-512 hash.
	SHA512 string
	// Size is the file length in bytes.
	Size int64
}

// File computes the SHA-512 digest and byte size of the file at path.
// It streams the file through the hash function to avoid loading the
// entire artifact into memory.
func File(path string) (*Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening artifact: %w", err)
	}
	defer func() {
		// Read-only file handle; close errors are exotic (NFS edge cases).
		_ = f.Close()
	}()

	h := sha512.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}

	return &Digest{
		SHA512: base64.StdEncoding.EncodeToString(h.Sum(nil)),
		Size:   n,
	}, nil
}

// Sum computes the base64-encoded SHA-512 digest of in-memory data.
func Sum(data []byte) string {
	sum := sha512.Sum512(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}
