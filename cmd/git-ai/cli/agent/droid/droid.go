// Package droid adapts Factory Droid hook payloads, which carry the session
// messages inline.
package droid

import (
	"encoding/json"
	"fmt"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/agent"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
)

// AgentName is the registry key for Droid.
const AgentName = "droid"

func init() {
	agent.Register(AgentName, func() agent.Adapter { return &Droid{} })
}

// Droid parses Droid hook callbacks.
type Droid struct{}

// Name implements agent.Adapter.
func (d *Droid) Name() string { return AgentName }

type hookPayload struct {
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ChangedFiles []string `json:"changed_files"`
}

// ParseHookPayload implements agent.Adapter.
func (d *Droid) ParseHookPayload(payload []byte) (*agent.Result, error) {
	var p hookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parsing droid hook payload: %w", err)
	}
	if p.SessionID == "" {
		return nil, fmt.Errorf("droid hook payload has no session_id")
	}

	result := &agent.Result{
		AgentID:       authorship.AgentId{Tool: AgentName, ID: p.SessionID, Model: p.Model},
		ModifiedFiles: p.ChangedFiles,
	}
	if len(p.Messages) > 0 {
		transcript := &authorship.Transcript{}
		for _, m := range p.Messages {
			transcript.Messages = append(transcript.Messages, authorship.Message{Role: m.Role, Content: m.Content})
		}
		result.Transcript = transcript
	}
	return agent.Normalize(result), nil
}
