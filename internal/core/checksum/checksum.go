// Package checksum verifies file digests against expected hex values.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

var (
	// ErrIntegrity is returned when a computed digest does not match the
	// expected value.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrUnsupported is returned for digest algorithms outside the
	// supported set.
	ErrUnsupported = errors.New("unsupported hash algorithm")
)

// Algorithms lists the supported digest algorithms in priority order. The
// order matters: the artifact cache URL rewriting picks the first algorithm
// from this list that an artifact declares a sum for.
var Algorithms = []string{"sha256", "sha1", "md5"}

// chunkSize bounds memory use when digesting large artifacts.
const chunkSize = 64 * 1024

func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "sha256":
		return sha256.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "md5":
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, algorithm)
	}
}

// Supported reports whether the given algorithm name is in the supported set.
func Supported(algorithm string) bool {
	for _, alg := range Algorithms {
		if alg == algorithm {
			return true
		}
	}
	return false
}

// Compute returns the hex digest of the file at path using the given
// algorithm. The file is read in fixed-size chunks, never loaded whole.
func Compute(path, algorithm string) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for digesting: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("failed to read %s while digesting: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify computes the digest of the file at path and compares it against the
// expected hex value. Comparison is case-insensitive. A mismatch is reported
// as ErrIntegrity; the file is left in place for inspection.
func Verify(path, algorithm, expected string) error {
	actual, err := Compute(path, algorithm)
	if err != nil {
		return err
	}

	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w: %s digest of %s is %s, expected %s", ErrIntegrity, algorithm, path, actual, expected)
	}

	return nil
}
