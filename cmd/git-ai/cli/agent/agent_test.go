package agent_test

import (
	"testing"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/agent"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"

	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/claudecode"
	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/codex"
	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/cursor"
	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/droid"
	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/geminicli"
	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/opencode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHasAllAgents(t *testing.T) {
	names := agent.List()
	for _, want := range []string{"claude-code", "codex", "cursor", "droid", "gemini-cli", "opencode"} {
		assert.Contains(t, names, want)
	}
}

func TestGetUnknownAgent(t *testing.T) {
	_, err := agent.Get("no-such-agent")
	require.Error(t, err)
}

func TestGetReturnsWorkingAdapter(t *testing.T) {
	a, err := agent.Get("cursor")
	require.NoError(t, err)
	assert.Equal(t, "cursor", a.Name())

	result, err := a.ParseHookPayload([]byte(`{
		"conversation_id": "c1",
		"model": "m",
		"messages": [{"role": "user", "text": "hello"}],
		"files_changed": ["a.go"]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "c1", result.AgentID.ID)
	assert.Equal(t, []string{"a.go"}, result.ModifiedFiles)
	require.NotNil(t, result.Transcript)
	assert.Equal(t, "hello", result.Transcript.Messages[0].Content)
}

func TestNormalizeRedactsSecrets(t *testing.T) {
	secret := "p4Xw9ZvK2nQr7mBt5cYd8hLf3sGj6eAu"
	result := agent.Normalize(&agent.Result{
		Transcript: &authorship.Transcript{Messages: []authorship.Message{
			authorship.UserMessage("use token " + secret + " please"),
		}},
	})
	assert.NotContains(t, result.Transcript.Messages[0].Content, secret)
}

func TestNormalizeNil(t *testing.T) {
	assert.Nil(t, agent.Normalize(nil))
	result := &agent.Result{}
	assert.Equal(t, result, agent.Normalize(result))
}
