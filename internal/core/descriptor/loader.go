package descriptor

import (
	"context"
	"fmt"
	"os"

	goskema "github.com/reoring/goskema"
	"gopkg.in/yaml.v3"
)

// Load reads the descriptor file at path, parses it as YAML and validates it
// against the schema for the given kind. Any failure along the way (missing
// file, malformed YAML, unknown kind, schema violation) is reported as a
// single ErrConfig; raw validator issues never reach the caller directly.
func Load(path string, kind Kind) (map[string]any, error) {
	schema, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: cannot locate schema for kind %q", ErrConfig, kind)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s descriptor %q: %v", ErrConfig, kind, path, err)
	}

	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: descriptor %q is not valid YAML: %v", ErrConfig, path, err)
	}

	// The schema acts as a gate: the raw tree is what flows onward, so the
	// validated copy (with its adapter-typed values) is discarded.
	if _, err := schema.Parse(context.Background(), tree); err != nil {
		if issues, ok := goskema.AsIssues(err); ok {
			return nil, fmt.Errorf("%w: descriptor %q does not conform to the %s schema: %s", ErrConfig, path, kind, issues.Error())
		}
		return nil, fmt.Errorf("%w: descriptor %q does not conform to the %s schema: %v", ErrConfig, path, kind, err)
	}

	return tree, nil
}

// LoadOverrides reads a descriptor fragment used to override the root
// descriptor. Fragments are not schema-validated: they may be sparse and the
// merged result is what must hold together.
func LoadOverrides(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read overrides file %q: %v", ErrConfig, path, err)
	}

	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: overrides file %q is not valid YAML: %v", ErrConfig, path, err)
	}
	return tree, nil
}
