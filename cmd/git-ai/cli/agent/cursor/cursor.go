// Package cursor adapts Cursor hook payloads, which carry the conversation
// inline rather than pointing at an on-disk transcript.
package cursor

import (
	"encoding/json"
	"fmt"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/agent"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
)

// AgentName is the registry key for Cursor.
const AgentName = "cursor"

func init() {
	agent.Register(AgentName, func() agent.Adapter { return &Cursor{} })
}

// Cursor parses Cursor hook callbacks.
type Cursor struct{}

// Name implements agent.Adapter.
func (c *Cursor) Name() string { return AgentName }

type hookPayload struct {
	ConversationID string `json:"conversation_id"`
	Model          string `json:"model"`
	Messages       []struct {
		Role string `json:"role"`
		Text string `json:"text"`
	} `json:"messages"`
	FilesChanged []string `json:"files_changed"`
}

// ParseHookPayload implements agent.Adapter.
func (c *Cursor) ParseHookPayload(payload []byte) (*agent.Result, error) {
	var p hookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parsing cursor hook payload: %w", err)
	}
	if p.ConversationID == "" {
		return nil, fmt.Errorf("cursor hook payload has no conversation_id")
	}

	result := &agent.Result{
		AgentID:       authorship.AgentId{Tool: AgentName, ID: p.ConversationID, Model: p.Model},
		ModifiedFiles: p.FilesChanged,
	}
	if len(p.Messages) > 0 {
		transcript := &authorship.Transcript{}
		for _, m := range p.Messages {
			transcript.Messages = append(transcript.Messages, authorship.Message{Role: m.Role, Content: m.Text})
		}
		result.Transcript = transcript
	}
	return agent.Normalize(result), nil
}
