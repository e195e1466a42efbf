// Package codex adapts Codex notify payloads (agent-turn-complete events).
package codex

import (
	"encoding/json"
	"fmt"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/agent"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
)

// AgentName is the registry key for Codex.
const AgentName = "codex"

func init() {
	agent.Register(AgentName, func() agent.Adapter { return &Codex{} })
}

// Codex parses Codex notify callbacks.
type Codex struct{}

// Name implements agent.Adapter.
func (c *Codex) Name() string { return AgentName }

type notifyPayload struct {
	Type             string   `json:"type"`
	SessionID        string   `json:"session_id"`
	TurnID           string   `json:"turn-id"`
	Model            string   `json:"model"`
	InputMessages    []string `json:"input_messages"`
	LastAgentMessage string   `json:"last-agent-message"`
}

// ParseHookPayload implements agent.Adapter.
func (c *Codex) ParseHookPayload(payload []byte) (*agent.Result, error) {
	var p notifyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parsing codex notify payload: %w", err)
	}
	sessionID := p.SessionID
	if sessionID == "" {
		sessionID = p.TurnID
	}
	if sessionID == "" {
		return nil, fmt.Errorf("codex notify payload has no session id")
	}

	result := &agent.Result{
		AgentID:  authorship.AgentId{Tool: AgentName, ID: sessionID, Model: p.Model},
		Metadata: map[string]string{"notify_type": p.Type},
	}

	var messages []authorship.Message
	for _, input := range p.InputMessages {
		messages = append(messages, authorship.UserMessage(input))
	}
	if p.LastAgentMessage != "" {
		messages = append(messages, authorship.AssistantMessage(p.LastAgentMessage))
	}
	if len(messages) > 0 {
		result.Transcript = &authorship.Transcript{Messages: messages}
	}
	return agent.Normalize(result), nil
}
