// Package checksum_test contains tests for the checksum package.
package checksum_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfmoonlabs/imagen/internal/core/checksum"
)

// Digests of "imagen test artifact\n", precomputed with coreutils.
const (
	testContent = "imagen test artifact\n"
	testMD5     = "1b6916279030d54f7f333d78b35a0c0b"
	testSHA1    = "954d65e7339b99a972f628f5a746b327dcaac947"
	testSHA256  = "da498d9af0d491452d8e589bc3524084d7db2acc83e6f02c1899a5f168d25acc"
)

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.bin")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVerify_AllAlgorithms(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, testContent)

	require.NoError(t, checksum.Verify(path, "md5", testMD5))
	require.NoError(t, checksum.Verify(path, "sha1", testSHA1))
	require.NoError(t, checksum.Verify(path, "sha256", testSHA256))
}

func TestVerify_CaseInsensitiveHex(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, testContent)

	require.NoError(t, checksum.Verify(path, "sha256", strings.ToUpper(testSHA256)))
}

func TestVerify_Mismatch(t *testing.T) {
	t.Parallel()
	// One byte of content flipped relative to the precomputed digests.
	path := writeTestFile(t, "imagen test artifacT\n")

	err := checksum.Verify(path, "sha256", testSHA256)
	require.Error(t, err)
	assert.ErrorIs(t, err, checksum.ErrIntegrity)
	assert.Contains(t, err.Error(), testSHA256, "error should carry the expected digest")

	// The mismatched file stays on disk for inspection.
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestVerify_UnsupportedAlgorithm(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, testContent)

	err := checksum.Verify(path, "crc32", "deadbeef")
	require.Error(t, err)
	assert.ErrorIs(t, err, checksum.ErrUnsupported)
}

func TestVerify_MissingFile(t *testing.T) {
	t.Parallel()
	err := checksum.Verify(filepath.Join(t.TempDir(), "nope.bin"), "sha256", testSHA256)
	require.Error(t, err)
	assert.NotErrorIs(t, err, checksum.ErrIntegrity, "a read failure is not an integrity mismatch")
}

func TestCompute_EmptyFile(t *testing.T) {
	t.Parallel()
	path := writeTestFile(t, "")

	digest, err := checksum.Compute(path, "sha256")
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", digest)
}

func TestSupported(t *testing.T) {
	t.Parallel()
	assert.True(t, checksum.Supported("sha256"))
	assert.True(t, checksum.Supported("sha1"))
	assert.True(t, checksum.Supported("md5"))
	assert.False(t, checksum.Supported("sha512"))
}
