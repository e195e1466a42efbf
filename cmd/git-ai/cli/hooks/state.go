package hooks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/jsonutil"
)

const coreHookStateFile = "core_hook_state.json"

// TTLs for cross-hook snapshots. Anything older is silently discarded.
const (
	stateEventMaxAge        = 3 * time.Second
	pendingPullAutostashTTL = 5 * time.Minute
	pendingCherryPickTTL    = 5 * time.Minute
)

// CoreHookState is the tiny cross-hook state file. Each hook runs in a fresh
// process; this is the only memory between them.
type CoreHookState struct {
	PendingAutostash        *PendingAutostash     `json:"pending_autostash,omitempty"`
	PendingPullAutostash    *PendingPullAutostash `json:"pending_pull_autostash,omitempty"`
	PendingCherryPick       *PendingCherryPick    `json:"pending_cherry_pick,omitempty"`
	PendingStashApply       *PendingStashApply    `json:"pending_stash_apply,omitempty"`
	PendingPreparedOrigHead int64                 `json:"pending_prepared_orig_head_ms,omitempty"`
	PendingCommitBaseHead   string                `json:"pending_commit_base_head,omitempty"`
}

// PendingAutostash holds the dirty-worktree attributions snapshotted before
// a rebase with --autostash.
type PendingAutostash struct {
	AuthorshipLogJSON string `json:"authorship_log_json"`
}

// PendingPullAutostash is the pull --rebase --autostash variant, with a
// creation timestamp for TTL expiry.
type PendingPullAutostash struct {
	AuthorshipLogJSON string `json:"authorship_log_json"`
	CreatedAtMs       int64  `json:"created_at_ms"`
}

// PendingCherryPick remembers the source commit between the
// reference-transaction that created CHERRY_PICK_HEAD and the post-commit
// that lands the pick.
type PendingCherryPick struct {
	OriginalHead string `json:"original_head"`
	SourceCommit string `json:"source_commit"`
	CreatedAtMs  int64  `json:"created_at_ms"`
}

// PendingStashApply marks that AUTO_MERGE appeared, signalling a stash
// apply without pop whose attributions post-index-change may restore.
type PendingStashApply struct {
	CreatedAtMs int64 `json:"created_at_ms"`
}

func statePath(aiDir string) string {
	return filepath.Join(aiDir, coreHookStateFile)
}

// loadState reads the state file; a missing or corrupt file yields the zero
// state.
func loadState(aiDir string) CoreHookState {
	var state CoreHookState
	data, err := os.ReadFile(statePath(aiDir))
	if err != nil {
		return state
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return CoreHookState{}
	}
	return state
}

// saveState rewrites the whole state file.
func saveState(aiDir string, state CoreHookState) error {
	if err := os.MkdirAll(aiDir, 0o750); err != nil {
		return err
	}
	data, err := jsonutil.MarshalIndentWithNewline(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statePath(aiDir), data, 0o600)
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

func expired(createdAtMs int64, ttl time.Duration) bool {
	return nowMs()-createdAtMs > ttl.Milliseconds()
}
