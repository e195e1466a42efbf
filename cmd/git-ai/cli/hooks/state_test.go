package hooks

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	aiDir := t.TempDir()

	state := CoreHookState{
		PendingAutostash:      &PendingAutostash{AuthorshipLogJSON: `{"x":1}`},
		PendingCommitBaseHead: "abc123",
		PendingCherryPick: &PendingCherryPick{
			OriginalHead: "h1", SourceCommit: "s1", CreatedAtMs: 42,
		},
	}
	require.NoError(t, saveState(aiDir, state))

	loaded := loadState(aiDir)
	assert.Equal(t, state, loaded)
}

func TestLoadStateMissingOrCorrupt(t *testing.T) {
	aiDir := t.TempDir()
	assert.Equal(t, CoreHookState{}, loadState(aiDir))

	require.NoError(t, os.WriteFile(filepath.Join(aiDir, coreHookStateFile), []byte("{bad"), 0o600))
	assert.Equal(t, CoreHookState{}, loadState(aiDir), "corrupt state degrades to zero state")
}

func TestSaveStateRewritesWholeFile(t *testing.T) {
	aiDir := t.TempDir()
	require.NoError(t, saveState(aiDir, CoreHookState{PendingCommitBaseHead: "first"}))
	require.NoError(t, saveState(aiDir, CoreHookState{}))

	loaded := loadState(aiDir)
	assert.Empty(t, loaded.PendingCommitBaseHead)
}

func TestExpired(t *testing.T) {
	now := nowMs()
	assert.False(t, expired(now, stateEventMaxAge))
	assert.True(t, expired(now-(10*time.Second).Milliseconds(), stateEventMaxAge))
	assert.False(t, expired(now-(1*time.Minute).Milliseconds(), pendingPullAutostashTTL))
	assert.True(t, expired(now-(10*time.Minute).Milliseconds(), pendingPullAutostashTTL))
}

func TestWriteAndRemoveHookScripts(t *testing.T) {
	hooksDir := filepath.Join(t.TempDir(), "hooks")
	require.NoError(t, WriteHookScripts(hooksDir, "/usr/local/bin/git-ai"))

	for _, hook := range InstalledHooks {
		data, err := os.ReadFile(filepath.Join(hooksDir, hook))
		require.NoError(t, err, "hook %s", hook)
		content := string(data)
		assert.Contains(t, content, "#!/bin/sh")
		assert.Contains(t, content, SkipEnvVar)
		assert.Contains(t, content, "hook "+hook)

		info, err := os.Stat(filepath.Join(hooksDir, hook))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&0o100, "hook must be executable")
	}

	// A foreign hook survives removal.
	foreign := filepath.Join(hooksDir, "pre-commit")
	require.NoError(t, os.WriteFile(foreign, []byte("#!/bin/sh\necho mine\n"), 0o755))

	require.NoError(t, RemoveHookScripts(hooksDir))
	_, err := os.Stat(foreign)
	assert.NoError(t, err, "non git-ai hook is left in place")
	_, err = os.Stat(filepath.Join(hooksDir, "post-commit"))
	assert.True(t, os.IsNotExist(err))
}

func TestDispatchSkipEnvShortCircuits(t *testing.T) {
	t.Setenv(SkipEnvVar, "1")
	assert.Equal(t, 0, Dispatch("pre-commit", nil, nil))
}
