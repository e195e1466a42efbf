// Package agent normalizes per-agent hook payloads into checkpoint inputs.
// Each supported agent ships a small adapter that parses its native payload
// format and yields the session identity, transcript, and metadata the
// checkpoint pipeline consumes. Adapters are pure functions of their inputs.
package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/redact"
)

// Result is the normalized outcome of parsing one agent hook payload.
type Result struct {
	AgentID       authorship.AgentId
	Transcript    *authorship.Transcript
	Metadata      map[string]string
	ModifiedFiles []string
}

// Adapter parses one agent's hook payload format.
type Adapter interface {
	// Name returns the agent identifier (e.g. "claude-code").
	Name() string

	// ParseHookPayload parses a hook callback payload.
	ParseHookPayload(payload []byte) (*Result, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Adapter)
)

// Register adds an adapter factory. Called from init() in each adapter
// package.
func Register(name string, factory func() Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves an adapter by name.
func Get(name string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q (available: %v)", name, List())
	}
	return factory(), nil
}

// List returns registered agent names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize applies the shared post-processing every adapter result gets:
// transcript text is scrubbed of secrets before it can reach a note or the
// upload queue.
func Normalize(result *Result) *Result {
	if result == nil || result.Transcript == nil {
		return result
	}
	for i := range result.Transcript.Messages {
		result.Transcript.Messages[i].Content = redact.String(result.Transcript.Messages[i].Content)
	}
	return result
}
