// Package claudecode adapts Claude Code hook payloads. The hook delivers a
// session id plus the path of the session's JSONL transcript; the transcript
// is dereferenced to recover the message history.
package claudecode

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/agent"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
)

// AgentName is the registry key for Claude Code.
const AgentName = "claude-code"

func init() {
	agent.Register(AgentName, func() agent.Adapter { return &Claude{} })
}

// Claude parses Claude Code hook callbacks.
type Claude struct{}

// Name implements agent.Adapter.
func (c *Claude) Name() string { return AgentName }

type hookPayload struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Model          string `json:"model"`
	HookEventName  string `json:"hook_event_name"`
	ToolInput      struct {
		FilePath string `json:"file_path"`
	} `json:"tool_input"`
}

// ParseHookPayload implements agent.Adapter.
func (c *Claude) ParseHookPayload(payload []byte) (*agent.Result, error) {
	var p hookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parsing claude hook payload: %w", err)
	}
	if p.SessionID == "" {
		return nil, fmt.Errorf("claude hook payload has no session_id")
	}

	result := &agent.Result{
		AgentID: authorship.AgentId{Tool: AgentName, ID: p.SessionID, Model: p.Model},
		Metadata: map[string]string{
			"hook_event_name": p.HookEventName,
		},
	}
	if p.ToolInput.FilePath != "" {
		result.ModifiedFiles = append(result.ModifiedFiles, p.ToolInput.FilePath)
	}

	if p.TranscriptPath != "" {
		if messages, err := readTranscript(p.TranscriptPath); err == nil && len(messages) > 0 {
			result.Transcript = &authorship.Transcript{Messages: messages}
		}
	}
	return agent.Normalize(result), nil
}

// transcriptLine is one JSONL record of a Claude Code session transcript.
type transcriptLine struct {
	Type    string `json:"type"`
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// readTranscript extracts user and assistant text messages from a Claude
// JSONL transcript. Unparseable lines are skipped rather than failing the
// whole read.
func readTranscript(path string) ([]authorship.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var messages []authorship.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec transcriptLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.Type != "user" && rec.Type != "assistant" {
			continue
		}
		text := contentText(rec.Message.Content)
		if text == "" {
			continue
		}
		messages = append(messages, authorship.Message{Role: rec.Message.Role, Content: text})
	}
	return messages, scanner.Err()
}

// contentText flattens Claude's content field, which is either a plain
// string or a list of typed blocks.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, block := range blocks {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}
