package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rooms.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidFile(t *testing.T) {
	path := writeConfig(t, `{
		"devices": [
			{"key": "display-1", "uid": "uid-display", "name": "Main Display", "role": "display", "warmup_ms": 7000, "cooldown_ms": 15000},
			{"key": "stb-1", "uid": "uid-stb-1", "name": "Set Top Box 1", "role": "settopbox"}
		],
		"source_lists": {
			"main": [{"key": "stb-1", "source_key": "stb-1"}]
		},
		"rooms": [
			{"key": "room-1", "name": "Huddle 1", "display_key": "display-1", "source_list_key": "main"}
		]
	}`)

	f, err := Load(path)
	require.NoError(t, err)

	d, ok := f.Device("display-1")
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, d.WarmupTime())
	assert.Equal(t, 15*time.Second, d.CooldownTime())

	entries, ok := f.SourceList("main")
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, "stb-1", entries[0].SourceKey)

	_, ok = f.Device("missing")
	assert.False(t, ok)
	_, ok = f.SourceList("missing")
	assert.False(t, ok)
}

func TestLoadRejectsMissingUID(t *testing.T) {
	path := writeConfig(t, `{"devices": [{"key": "display-1", "name": "Main Display", "role": "display"}]}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no uid")
}

func TestLoadRejectsDuplicateUID(t *testing.T) {
	path := writeConfig(t, `{"devices": [
		{"key": "display-1", "uid": "uid-x", "name": "A", "role": "display"},
		{"key": "display-2", "uid": "uid-x", "name": "B", "role": "display"}
	]}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `share uid "uid-x"`)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
