// Package descriptor loads and validates image and module descriptors.
//
// A descriptor is a YAML mapping describing a container image (or a reusable
// module fragment of one). Loading parses the file and validates it against
// the schema for its kind before anything else touches it; callers never see
// an unvalidated tree.
package descriptor

import (
	"errors"
	"fmt"
)

// ErrConfig covers missing or unreadable descriptors and schema violations.
var ErrConfig = errors.New("configuration error")

// Kind selects which schema a descriptor is validated against.
type Kind string

const (
	KindImage  Kind = "image"
	KindModule Kind = "module"
)

// Artifact is an external file required by the generated build, declared in a
// descriptor's artifacts list. Sums may be empty, in which case integrity
// checking is skipped after download.
type Artifact struct {
	Source string
	Name   string
	Sums   map[string]string
}

// supported sum keys on an artifact entry, mirroring the checksum package.
var sumKeys = []string{"sha256", "sha1", "md5"}

// artifactFromEntry builds an Artifact from one artifacts list entry.
func artifactFromEntry(entry map[string]any) (Artifact, error) {
	source, ok := entry["artifact"].(string)
	if !ok || source == "" {
		return Artifact{}, fmt.Errorf("%w: artifact entry is missing the 'artifact' URL", ErrConfig)
	}

	name, ok := entry["name"].(string)
	if !ok || name == "" {
		return Artifact{}, fmt.Errorf("%w: artifact %q is missing the 'name' field", ErrConfig, source)
	}

	a := Artifact{Source: source, Name: name, Sums: map[string]string{}}
	for _, alg := range sumKeys {
		if sum, ok := entry[alg].(string); ok && sum != "" {
			a.Sums[alg] = sum
		}
	}
	return a, nil
}

// ParseArtifacts extracts the artifacts declared by a descriptor tree. A
// missing or empty artifacts key yields an empty slice.
func ParseArtifacts(tree map[string]any) ([]Artifact, error) {
	raw, ok := tree["artifacts"].([]any)
	if !ok {
		return nil, nil
	}

	artifacts := make([]Artifact, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: artifact entries must be mappings", ErrConfig)
		}
		a, err := artifactFromEntry(entry)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

// Strings returns the string items of a list-valued descriptor field, such as
// modules or packages. Non-list or missing values yield nil.
func Strings(tree map[string]any, key string) []string {
	raw, ok := tree[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
