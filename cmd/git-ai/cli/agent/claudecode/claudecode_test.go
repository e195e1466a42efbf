package claudecode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTranscript = `{"type":"user","message":{"role":"user","content":"add a parser"}}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"Done, see parser.go"},{"type":"tool_use","name":"Edit"}]}}
{"type":"progress","other":"ignored"}
not json at all
{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","name":"Bash"}]}}
`

func TestParseHookPayload(t *testing.T) {
	transcriptPath := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(transcriptPath, []byte(sampleTranscript), 0o600))

	payload := `{
		"session_id": "sess-42",
		"transcript_path": "` + transcriptPath + `",
		"model": "some-model",
		"hook_event_name": "PostToolUse",
		"tool_input": {"file_path": "parser.go"}
	}`

	c := &Claude{}
	result, err := c.ParseHookPayload([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, "claude-code", result.AgentID.Tool)
	assert.Equal(t, "sess-42", result.AgentID.ID)
	assert.Equal(t, "some-model", result.AgentID.Model)
	assert.Equal(t, []string{"parser.go"}, result.ModifiedFiles)
	assert.Equal(t, "PostToolUse", result.Metadata["hook_event_name"])

	require.NotNil(t, result.Transcript)
	require.Len(t, result.Transcript.Messages, 2, "tool-only records carry no text")
	assert.Equal(t, "user", result.Transcript.Messages[0].Role)
	assert.Equal(t, "add a parser", result.Transcript.Messages[0].Content)
	assert.Equal(t, "Done, see parser.go", result.Transcript.Messages[1].Content)
}

func TestParseHookPayloadMissingTranscript(t *testing.T) {
	payload := `{"session_id": "s1", "transcript_path": "/nonexistent/x.jsonl"}`
	result, err := (&Claude{}).ParseHookPayload([]byte(payload))
	require.NoError(t, err, "a missing transcript is not fatal")
	assert.Nil(t, result.Transcript)
}

func TestParseHookPayloadRejectsEmptySession(t *testing.T) {
	_, err := (&Claude{}).ParseHookPayload([]byte(`{}`))
	require.Error(t, err)

	_, err = (&Claude{}).ParseHookPayload([]byte(`not json`))
	require.Error(t, err)
}

func TestContentText(t *testing.T) {
	assert.Equal(t, "plain", contentText([]byte(`"plain"`)))
	assert.Equal(t, "a\nb", contentText([]byte(`[{"type":"text","text":"a"},{"type":"text","text":"b"}]`)))
	assert.Empty(t, contentText([]byte(`[{"type":"tool_use"}]`)))
	assert.Empty(t, contentText(nil))
	assert.Empty(t, contentText([]byte(`42`)))
}
