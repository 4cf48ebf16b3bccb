// Package upload drives the per-file upload pipeline: content hashing,
// registration, chunked transfer, completion, and validation polling.
package upload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// hashBlockSize is the read block size for streaming digests. Files can be
// many gigabytes, so they are never read into memory whole.
const hashBlockSize = 8 * 1024

// Digest streams a file and returns its SHA-256 content digest as a
// lowercase hex string. Stable and reproducible for identical bytes
// regardless of file size.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("upload: opening %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()

	buf := make([]byte, hashBlockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("upload: hashing %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
