// Package geminicli adapts Gemini CLI hook payloads. Gemini stores session
// chats as a single JSON document of role/parts messages.
package geminicli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/agent"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
)

// AgentName is the registry key for Gemini CLI.
const AgentName = "gemini-cli"

func init() {
	agent.Register(AgentName, func() agent.Adapter { return &Gemini{} })
}

// Gemini parses Gemini CLI hook callbacks.
type Gemini struct{}

// Name implements agent.Adapter.
func (g *Gemini) Name() string { return AgentName }

type hookPayload struct {
	SessionID      string `json:"session_id"`
	Model          string `json:"model"`
	TranscriptPath string `json:"transcript_path"`
}

type chatFile struct {
	Messages []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"messages"`
}

// ParseHookPayload implements agent.Adapter.
func (g *Gemini) ParseHookPayload(payload []byte) (*agent.Result, error) {
	var p hookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parsing gemini hook payload: %w", err)
	}
	if p.SessionID == "" {
		return nil, fmt.Errorf("gemini hook payload has no session_id")
	}

	result := &agent.Result{
		AgentID: authorship.AgentId{Tool: AgentName, ID: p.SessionID, Model: p.Model},
	}

	if p.TranscriptPath != "" {
		if messages, err := readChat(p.TranscriptPath); err == nil && len(messages) > 0 {
			result.Transcript = &authorship.Transcript{Messages: messages}
		}
	}
	return agent.Normalize(result), nil
}

func readChat(path string) ([]authorship.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var chat chatFile
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, err
	}

	var messages []authorship.Message
	for _, m := range chat.Messages {
		var parts []string
		for _, part := range m.Parts {
			if part.Text != "" {
				parts = append(parts, part.Text)
			}
		}
		if len(parts) == 0 {
			continue
		}
		role := m.Role
		if role == "model" {
			role = "assistant"
		}
		messages = append(messages, authorship.Message{Role: role, Content: strings.Join(parts, "\n")})
	}
	return messages, nil
}
