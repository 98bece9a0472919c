package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesSplitsScopeAndName(t *testing.T) {
	overrides, err := ParseOverrides(`inline.maxDepth=8,escape.enabled=true`)
	require.NoError(t, err)
	require.Len(t, overrides, 2)

	assert.Equal(t, []string{"inline"}, overrides[0].ScopePath)
	assert.Equal(t, "maxDepth", overrides[0].Name)
	assert.Equal(t, "8", overrides[0].RawValue)

	assert.Equal(t, []string{"escape"}, overrides[1].ScopePath)
	assert.Equal(t, "enabled", overrides[1].Name)
	assert.Equal(t, "true", overrides[1].RawValue)
}

func TestParseOverridesHandlesUnscopedName(t *testing.T) {
	overrides, err := ParseOverrides(`verbosity=3`)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Empty(t, overrides[0].ScopePath)
	assert.Equal(t, "verbosity", overrides[0].Name)
}

func registryFixture() *Registry {
	reg := NewRegistry()
	reg.Register(Spec{Name: "maxDepth", Kind: KindInt, Default: IntValue(8)})
	reg.Register(Spec{Name: "enabled", Kind: KindBool, Default: BoolValue(false)})
	return reg
}

func TestSnapshotAppliesPrecedenceOrder(t *testing.T) {
	reg := registryFixture()

	yamlDefaults, err := LoadYAMLDefaults([]byte("maxDepth: \"5\"\n"))
	require.NoError(t, err)

	processFlags := map[string]string{"maxDepth": "6"}
	overrides := []Override{{ScopePath: []string{"inline"}, Name: "maxDepth", RawValue: "12"}}

	cfg, err := Snapshot(reg, yamlDefaults, processFlags, overrides)
	require.NoError(t, err)

	// No scope: source default overridden by process flag (6), not the
	// registered default (8) and not the scoped override (12).
	v, ok := cfg.Get(nil, "maxDepth")
	require.True(t, ok)
	assert.Equal(t, int32(6), v.Int)

	// Within the "inline" scope, the explicit override wins.
	v, ok = cfg.Get([]string{"inline"}, "maxDepth")
	require.True(t, ok)
	assert.Equal(t, int32(12), v.Int)

	// A sibling scope still sees the process-flag value.
	v, ok = cfg.Get([]string{"escape"}, "maxDepth")
	require.True(t, ok)
	assert.Equal(t, int32(6), v.Int)
}

func TestSnapshotFallsBackToRegisteredDefault(t *testing.T) {
	reg := registryFixture()
	cfg, err := Snapshot(reg, nil, nil, nil)
	require.NoError(t, err)

	v, ok := cfg.Get(nil, "enabled")
	require.True(t, ok)
	assert.False(t, v.Bool)
}

func TestSnapshotIgnoresUnknownOverrideName(t *testing.T) {
	reg := registryFixture()
	overrides := []Override{{Name: "doesNotExist", RawValue: "1"}}
	_, err := Snapshot(reg, nil, nil, overrides)
	require.NoError(t, err)
}
