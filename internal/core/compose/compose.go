// Package compose merges a root image descriptor with its module descriptors
// into one effective configuration.
package compose

import (
	"maps"
)

// Fields that accumulate across the root and all modules instead of being
// overridden: artifact and repository-style references are unioned in
// declaration order.
var unionFields = map[string]bool{
	"artifacts": true,
	"packages":  true,
	"scripts":   true,
	"volumes":   true,
}

// Fields holding nested mappings whose entries merge key by key.
var mapFields = map[string]bool{
	"envs":   true,
	"labels": true,
}

// Compose merges the root descriptor with zero or more module descriptors,
// applied in the order the root declared them. Precedence is total: the root
// always wins over any module, and a later module wins over an earlier one.
// Union fields are appended rather than replaced. The inputs are not
// mutated; the result is a fresh tree owned by the caller.
func Compose(root map[string]any, modules []map[string]any) map[string]any {
	effective := map[string]any{}

	for _, module := range modules {
		applyLayer(effective, module)
	}
	applyLayer(effective, root)

	return effective
}

// applyLayer merges layer into effective, letting layer win scalar and list
// conflicts while unioning accumulating fields and merging nested maps.
func applyLayer(effective, layer map[string]any) {
	for key, value := range layer {
		switch {
		case unionFields[key]:
			existing, _ := effective[key].([]any)
			incoming, _ := value.([]any)
			merged := make([]any, 0, len(existing)+len(incoming))
			merged = append(merged, existing...)
			merged = append(merged, incoming...)
			effective[key] = merged
		case mapFields[key]:
			existing, _ := effective[key].(map[string]any)
			incoming, _ := value.(map[string]any)
			merged := make(map[string]any, len(existing)+len(incoming))
			maps.Copy(merged, existing)
			maps.Copy(merged, incoming)
			effective[key] = merged
		default:
			effective[key] = value
		}
	}
}

// Override merges an overrides fragment on top of a descriptor with plain
// last-writer-wins semantics, used for the --overrides file. Returns root
// rewritten in place.
func Override(root, overrides map[string]any) map[string]any {
	maps.Copy(root, overrides)
	return root
}
