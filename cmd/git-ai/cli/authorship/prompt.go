package authorship

// PromptRecord captures one prompt session's identity, transcript, and line
// metrics. It is stored in the prompts table of an authorship log keyed by
// the session's short hash.
type PromptRecord struct {
	AgentID        AgentId   `json:"agent_id"`
	HumanAuthor    string    `json:"human_author,omitempty"`
	Messages       []Message `json:"messages"`
	TotalAdditions uint32    `json:"total_additions"`
	TotalDeletions uint32    `json:"total_deletions"`
	AcceptedLines  uint32    `json:"accepted_lines"`
	OverridenLines uint32    `json:"overriden_lines"`
	MessagesURL    string    `json:"messages_url,omitempty"`
}

// Less orders records oldest-first by the lexicographic tuple
// (len(messages), total_additions, total_deletions).
func (p PromptRecord) Less(other PromptRecord) bool {
	if len(p.Messages) != len(other.Messages) {
		return len(p.Messages) < len(other.Messages)
	}
	if p.TotalAdditions != other.TotalAdditions {
		return p.TotalAdditions < other.TotalAdditions
	}
	return p.TotalDeletions < other.TotalDeletions
}

// NewestPromptRecord returns the newest record of a non-empty list under the
// tuple ordering.
func NewestPromptRecord(records []PromptRecord) PromptRecord {
	newest := records[0]
	for _, r := range records[1:] {
		if newest.Less(r) {
			newest = r
		}
	}
	return newest
}
