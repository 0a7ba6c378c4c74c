package substitute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfmoonlabs/imagen/internal/core/substitute"
)

func TestResolvePlainStringPassesThrough(t *testing.T) {
	t.Parallel()
	// No placeholder means no coercion either: "1" stays a string.
	got, err := substitute.Resolve("1", nil)
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}

func TestResolveParameterWinsOverDefault(t *testing.T) {
	t.Parallel()
	got, err := substitute.Resolve("{{FROM:rhel:7}}", map[string]string{"FROM": "centos:7"})
	require.NoError(t, err)
	assert.Equal(t, "centos:7", got)
}

func TestResolveDefaultKeepsColons(t *testing.T) {
	t.Parallel()
	got, err := substitute.Resolve("{{FROM:rhel:7}}", nil)
	require.NoError(t, err)
	assert.Equal(t, "rhel:7", got)
}

func TestResolveEmptyDefault(t *testing.T) {
	t.Parallel()
	got, err := substitute.Resolve("{{SUFFIX:}}", nil)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestResolveMissingParameterFails(t *testing.T) {
	t.Parallel()
	_, err := substitute.Resolve("{{FROM}}", nil)
	require.ErrorIs(t, err, substitute.ErrSubstitution)
	assert.Contains(t, err.Error(), "FROM")
}

func TestResolveNumericCoercion(t *testing.T) {
	t.Parallel()
	got, err := substitute.Resolve("{{VERSION}}", map[string]string{"VERSION": "1.0"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = substitute.Resolve("{{USER}}", map[string]string{"USER": "1347"})
	require.NoError(t, err)
	assert.Equal(t, 1347, got)
}

func TestResolveMixedTextStaysString(t *testing.T) {
	t.Parallel()
	got, err := substitute.Resolve("jboss-{{VERSION}}", map[string]string{"VERSION": "7"})
	require.NoError(t, err)
	assert.Equal(t, "jboss-7", got)
}

func TestResolveMultiplePlaceholders(t *testing.T) {
	t.Parallel()
	got, err := substitute.Resolve("{{A}}-{{B:beta}}", map[string]string{"A": "alpha"})
	require.NoError(t, err)
	assert.Equal(t, "alpha-beta", got)
}

func TestResolveTreeDescendsNestedValues(t *testing.T) {
	t.Parallel()
	tree := map[string]any{
		"from": "{{FROM:rhel:7}}",
		"envs": map[string]any{
			"information": []any{
				map[string]any{"name": "VERSION", "value": "{{VERSION}}"},
			},
		},
		"cmd":     []any{"/usr/bin/date"},
		"release": 4,
	}

	got, err := substitute.ResolveTree(tree, map[string]string{"VERSION": "1.0"})
	require.NoError(t, err)

	assert.Equal(t, "rhel:7", got["from"])
	assert.Equal(t, 4, got["release"])

	entries := got["envs"].(map[string]any)["information"].([]any)
	assert.Equal(t, 1.0, entries[0].(map[string]any)["value"])
}

func TestResolveTreeSurfacesDeepFailure(t *testing.T) {
	t.Parallel()
	tree := map[string]any{
		"labels": map[string]any{"maintainer": "{{MAINTAINER}}"},
	}

	_, err := substitute.ResolveTree(tree, nil)
	assert.ErrorIs(t, err, substitute.ErrSubstitution)
}
