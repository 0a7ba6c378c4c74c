// Package fetcher downloads build artifacts and verifies their integrity.
package fetcher

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/halfmoonlabs/imagen/internal/core/checksum"
	"github.com/halfmoonlabs/imagen/internal/core/descriptor"
)

// ErrFetch covers transport failures: non-success responses and files that
// are still missing after a fetch.
var ErrFetch = errors.New("fetch failed")

// EnvArtifactCache names the environment variable holding the artifact cache
// URL pattern. The pattern may contain #filename#, #algorithm# and #hash#
// markers, each substituted literally to build the effective fetch URL.
const EnvArtifactCache = "IMAGEN_ARTIFACT_CACHE"

// copyChunkSize bounds memory use while streaming a download to disk.
const copyChunkSize = 32 * 1024

// defaultTimeout bounds every artifact download. The original behavior had no
// timeout at all; a generous cap is a deliberate hardening deviation.
const defaultTimeout = 10 * time.Minute

// IsURL reports whether ref is a remote http(s) reference rather than a
// local path.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Options configures a Fetcher. All knobs are explicit values fixed at
// construction so that two fetchers in one process never share state.
type Options struct {
	// TargetDir receives fetched artifacts, each under its declared name.
	TargetDir string
	// CachePattern, when non-empty, rewrites artifact URLs through an
	// artifact cache. Typically sourced from EnvArtifactCache by the CLI.
	CachePattern string
	// SkipTLSVerify disables certificate verification for all downloads.
	SkipTLSVerify bool
	// Timeout caps a single download; zero means the default.
	Timeout time.Duration
}

// Fetcher resolves, downloads and verifies artifacts into a target directory.
type Fetcher struct {
	opts   Options
	client *http.Client
}

// New builds a Fetcher from the given options.
func New(opts Options) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}

	transport := http.DefaultTransport
	if opts.SkipTLSVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- explicit operator opt-out
		}
	}

	return &Fetcher{
		opts:   opts,
		client: &http.Client{Transport: transport, Timeout: opts.Timeout},
	}
}

// ResolveURL returns the URL an artifact will actually be fetched from. With
// a cache pattern configured and at least one declared checksum, the pattern
// is instantiated with the artifact's filename and its highest-priority
// algorithm and digest; otherwise the declared source URL is used verbatim.
func (f *Fetcher) ResolveURL(a descriptor.Artifact) string {
	if f.opts.CachePattern == "" || len(a.Sums) == 0 {
		return a.Source
	}

	for _, alg := range checksum.Algorithms {
		sum, ok := a.Sums[alg]
		if !ok {
			continue
		}
		url := strings.ReplaceAll(f.opts.CachePattern, "#filename#", a.Name)
		url = strings.ReplaceAll(url, "#algorithm#", alg)
		url = strings.ReplaceAll(url, "#hash#", sum)
		return url
	}

	return a.Source
}

// Fetch downloads an artifact into the target directory and verifies every
// checksum it declares. When the destination file already exists the fetch
// returns immediately with no network traffic and no re-verification:
// presence implies trust. That fast path is a documented design choice, not
// an oversight.
func (f *Fetcher) Fetch(a descriptor.Artifact) (string, error) {
	destination := filepath.Join(f.opts.TargetDir, a.Name)
	if _, err := os.Stat(destination); err == nil {
		return destination, nil
	}

	if err := f.download(f.ResolveURL(a), destination); err != nil {
		return "", err
	}

	for _, alg := range checksum.Algorithms {
		sum, ok := a.Sums[alg]
		if !ok {
			continue
		}
		if err := checksum.Verify(destination, alg, sum); err != nil {
			return "", err
		}
	}

	return destination, nil
}

// FetchURL downloads an arbitrary file, such as a custom template or an
// additional script. An empty destination means a fresh temporary file. The
// local path is returned.
func (f *Fetcher) FetchURL(url, destination string) (string, error) {
	if destination == "" {
		tmp, err := os.CreateTemp("", "imagen-*")
		if err != nil {
			return "", fmt.Errorf("failed to create temporary file: %w", err)
		}
		destination = tmp.Name()
		_ = tmp.Close()
	}

	if err := f.download(url, destination); err != nil {
		return "", err
	}
	return destination, nil
}

// download streams a GET response to disk in fixed-size chunks.
func (f *Fetcher) download(url, destination string) error {
	resp, err := f.client.Get(url)
	if err != nil {
		return fmt.Errorf("%w: could not download %s: %v", ErrFetch, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: could not download %s: status code %d", ErrFetch, url, resp.StatusCode)
	}

	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destination, err)
	}
	defer func() { _ = out.Close() }()

	buf := make([]byte, copyChunkSize)
	if _, err := io.CopyBuffer(out, resp.Body, buf); err != nil {
		return fmt.Errorf("%w: writing %s to %s: %v", ErrFetch, url, destination, err)
	}

	return out.Close()
}
