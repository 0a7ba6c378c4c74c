// Package substitute resolves {{NAME}} and {{NAME:default}} placeholders in
// descriptor string values.
//
// The grammar is deliberately narrow: a placeholder is {{NAME}} or
// {{NAME:default}} where NAME is an identifier and the default literal runs to
// the closing braces (so defaults like "rhel:7" keep their colons). Override
// parameters always win over inline defaults; a placeholder with neither
// fails the run.
package substitute

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrSubstitution is returned for a required placeholder with no override
// parameter and no inline default.
var ErrSubstitution = errors.New("unresolved placeholder")

var placeholder = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)(:[^{}]*)?\}\}`)

// Resolve substitutes every placeholder in s using the override parameters.
// A value that contained at least one placeholder and resolves to a fully
// numeric string is coerced to int or float64, matching how schema-typed
// fields such as version and user consume substituted values.
func Resolve(s string, params map[string]string) (any, error) {
	matches := placeholder.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		last = m[1]

		name := s[m[2]:m[3]]
		if value, ok := params[name]; ok {
			b.WriteString(value)
			continue
		}
		if m[4] >= 0 {
			// Inline default, with the leading colon stripped.
			b.WriteString(s[m[4]+1 : m[5]])
			continue
		}
		return nil, fmt.Errorf("%w: %q has no override parameter and no default", ErrSubstitution, name)
	}
	b.WriteString(s[last:])

	return coerce(b.String()), nil
}

// ResolveTree applies Resolve to every string value in a descriptor tree,
// descending into nested mappings and sequences. Non-string leaves pass
// through untouched. The tree is returned rewritten in place.
func ResolveTree(tree map[string]any, params map[string]string) (map[string]any, error) {
	for key, value := range tree {
		resolved, err := resolveValue(value, params)
		if err != nil {
			return nil, err
		}
		tree[key] = resolved
	}
	return tree, nil
}

func resolveValue(value any, params map[string]string) (any, error) {
	switch v := value.(type) {
	case string:
		return Resolve(v, params)
	case map[string]any:
		return ResolveTree(v, params)
	case []any:
		for i, item := range v {
			resolved, err := resolveValue(item, params)
			if err != nil {
				return nil, err
			}
			v[i] = resolved
		}
		return v, nil
	default:
		return value, nil
	}
}

// coerce converts a fully numeric resolved string to its numeric type.
func coerce(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
