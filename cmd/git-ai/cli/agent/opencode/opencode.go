// Package opencode adapts OpenCode hook payloads, which use part-based
// message bodies.
package opencode

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/agent"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
)

// AgentName is the registry key for OpenCode.
const AgentName = "opencode"

func init() {
	agent.Register(AgentName, func() agent.Adapter { return &OpenCode{} })
}

// OpenCode parses OpenCode hook callbacks.
type OpenCode struct{}

// Name implements agent.Adapter.
func (o *OpenCode) Name() string { return AgentName }

type hookPayload struct {
	SessionID string `json:"sessionID"`
	Model     string `json:"model"`
	Messages  []struct {
		Role  string `json:"role"`
		Parts []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"messages"`
}

// ParseHookPayload implements agent.Adapter.
func (o *OpenCode) ParseHookPayload(payload []byte) (*agent.Result, error) {
	var p hookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parsing opencode hook payload: %w", err)
	}
	if p.SessionID == "" {
		return nil, fmt.Errorf("opencode hook payload has no sessionID")
	}

	result := &agent.Result{
		AgentID: authorship.AgentId{Tool: AgentName, ID: p.SessionID, Model: p.Model},
	}

	var messages []authorship.Message
	for _, m := range p.Messages {
		var texts []string
		for _, part := range m.Parts {
			if part.Type == "text" && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
		if len(texts) == 0 {
			continue
		}
		messages = append(messages, authorship.Message{Role: m.Role, Content: strings.Join(texts, "\n")})
	}
	if len(messages) > 0 {
		result.Transcript = &authorship.Transcript{Messages: messages}
	}
	return agent.Normalize(result), nil
}
