package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOverlayWins(t *testing.T) {
	base := map[string]any{
		"a": 1,
		"b": map[string]any{
			"c": "base",
			"d": "kept",
		},
		"e": []any{"one"},
	}
	overlay := map[string]any{
		"a": 2,
		"b": map[string]any{
			"c": "overlay",
		},
	}

	merged, err := Merge(base, overlay)
	require.NoError(t, err)

	assert.Equal(t, 2, merged["a"], "overlay scalar must win")
	b := merged["b"].(map[string]any)
	assert.Equal(t, "overlay", b["c"], "overlay nested key must win")
	assert.Equal(t, "kept", b["d"], "base key absent from overlay must fall back")
	assert.Equal(t, []any{"one"}, merged["e"])
}

func TestMergeEmptyBase(t *testing.T) {
	merged, err := Merge(nil, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, merged["a"])
}

func TestMergeEmptyOverlay(t *testing.T) {
	merged, err := Merge(map[string]any{"a": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, merged["a"])
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	base := map[string]any{"b": map[string]any{"c": "base"}}
	overlay := map[string]any{"b": map[string]any{"c": "overlay"}}

	_, err := Merge(base, overlay)
	require.NoError(t, err)

	assert.Equal(t, "base", base["b"].(map[string]any)["c"])
	assert.Equal(t, "overlay", overlay["b"].(map[string]any)["c"])
}

func TestDeepCopy(t *testing.T) {
	in := map[string]any{
		"nested": map[string]any{"k": "v"},
		"list":   []any{map[string]any{"x": 1}},
	}
	out := DeepCopy(in)

	out["nested"].(map[string]any)["k"] = "changed"
	out["list"].([]any)[0].(map[string]any)["x"] = 2

	assert.Equal(t, "v", in["nested"].(map[string]any)["k"])
	assert.Equal(t, 1, in["list"].([]any)[0].(map[string]any)["x"])
}
