package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingGivesDefaults(t *testing.T) {
	s := Load(t.TempDir())
	assert.True(t, s.Enabled)
	assert.True(t, s.UploadEnabled)
	assert.Empty(t, s.LogLevel)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	aiDir := t.TempDir()
	want := Settings{Enabled: false, LogLevel: "debug", UploadEnabled: true}
	require.NoError(t, Save(aiDir, want))
	assert.Equal(t, want, Load(aiDir))
}

func TestLoadCorruptGivesDefaults(t *testing.T) {
	aiDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(aiDir, SettingsFileName), []byte("{nope"), 0o600))
	assert.Equal(t, Default(), Load(aiDir))
}
