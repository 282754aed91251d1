// Package hashing computes content-integrity digests for managed files.
// Digest equality is treated as content equality everywhere in the
// reconciliation engine; no byte-level diffing happens beyond it.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/centy-io/centy-daemon/pkg/errors"
)

// Digest returns the SHA-256 digest of the given bytes as lowercase hex.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestString returns the SHA-256 digest of a string's bytes.
func DigestString(content string) string {
	return Digest([]byte(content))
}

// DigestFile returns the SHA-256 digest of a file's current on-disk
// content. Bodies are hashed as opaque byte streams.
func DigestFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WrapIO("read", path, err)
	}
	return Digest(data), nil
}
