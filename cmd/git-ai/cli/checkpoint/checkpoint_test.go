package checkpoint

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/tracker"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/va"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/worklog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestRepo(t *testing.T) (*gitx.Repo, *worklog.Store) {
	t.Helper()
	dir := t.TempDir()
	git := func(args ...string) string {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
		return strings.TrimSpace(string(out))
	}
	git("init", "-q", "-b", "main")
	git("config", "user.name", "Dev")
	git("config", "user.email", "dev@example")
	git("config", "commit.gpgsign", "false")

	repo, err := gitx.FindInPath(dir)
	require.NoError(t, err)
	return repo, worklog.NewStore(repo.AiDir())
}

func commitAll(t *testing.T, repo *gitx.Repo, msg string) string {
	t.Helper()
	for _, args := range [][]string{{"add", "-A"}, {"commit", "-q", "-m", msg}} {
		cmd := exec.Command("git", args...)
		cmd.Dir = repo.WorkDir()
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	head, err := repo.Head()
	require.NoError(t, err)
	return head
}

func write(t *testing.T, repo *gitx.Repo, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(repo.WorkDir(), name), []byte(content), 0o600))
}

func TestAgentCheckpointAttributesNewLines(t *testing.T) {
	repo, store := initTestRepo(t)
	write(t, repo, "a.txt", "human line\n")
	base := commitAll(t, repo, "base")

	agent := authorship.AgentId{Tool: "claude-code", ID: "s1", Model: "m"}
	write(t, repo, "a.txt", "human line\nagent line\n")

	require.NoError(t, Run(repo, store, Options{
		Kind:       worklog.KindAiAgent,
		Author:     "Dev <dev@example>",
		AgentID:    &agent,
		Transcript: &authorship.Transcript{Messages: []authorship.Message{authorship.UserMessage("add a line")}},
	}))

	checkpoints, err := store.ForBaseCommit(base).ReadAllCheckpoints()
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	cp := checkpoints[0]
	assert.Equal(t, worklog.KindAiAgent, cp.Kind)
	require.NotNil(t, cp.AgentID)
	require.Len(t, cp.Entries, 1)

	var agentLines []tracker.LineAttribution
	for _, la := range cp.Entries[0].LineAttributions {
		if la.AuthorID == agent.ShortHash() {
			agentLines = append(agentLines, la)
		}
	}
	require.Len(t, agentLines, 1)
	assert.Equal(t, uint32(2), agentLines[0].StartLine)
	assert.Equal(t, uint32(1), cp.LineStats.Additions)
}

func TestHumanCheckpointMarksOverride(t *testing.T) {
	repo, store := initTestRepo(t)
	write(t, repo, "a.txt", "one\n")
	base := commitAll(t, repo, "base")

	agent := authorship.AgentId{Tool: "claude-code", ID: "s2"}
	promptID := agent.ShortHash()

	// Agent adds a line and checkpoints it.
	write(t, repo, "a.txt", "one\nfrom agent\n")
	require.NoError(t, Run(repo, store, Options{
		Kind: worklog.KindAiAgent, Author: "Dev", AgentID: &agent,
	}))

	// Human rewrites the agent's line entirely.
	write(t, repo, "a.txt", "one\nrewritten by human entirely, nothing survives\n")
	require.NoError(t, Run(repo, store, Options{Kind: worklog.KindHuman, Author: "Dev"}))

	view, err := va.FromWorkingLog(repo, store, base, "Dev")
	require.NoError(t, err)
	lines := view.Attributions["a.txt"].Lines

	var overrode string
	for _, la := range lines {
		if la.Overrode != "" {
			overrode = la.Overrode
		}
	}
	assert.Equal(t, promptID, overrode, "human takeover records the displaced prompt")
}

func TestCheckpointNoopWhenClean(t *testing.T) {
	repo, store := initTestRepo(t)
	write(t, repo, "a.txt", "x\n")
	base := commitAll(t, repo, "base")

	require.NoError(t, Run(repo, store, Options{Kind: worklog.KindHuman, Author: "Dev"}))

	checkpoints, err := store.ForBaseCommit(base).ReadAllCheckpoints()
	require.NoError(t, err)
	assert.Empty(t, checkpoints)
}

func TestCheckpointHonorsPathspecs(t *testing.T) {
	repo, store := initTestRepo(t)
	write(t, repo, "a.txt", "x\n")
	base := commitAll(t, repo, "base")

	agent := authorship.AgentId{Tool: "codex", ID: "s3"}
	write(t, repo, "a.txt", "x\ny\n")
	write(t, repo, "other.txt", "untouched by agent\n")

	require.NoError(t, Run(repo, store, Options{
		Kind: worklog.KindAiAgent, Author: "Dev", AgentID: &agent,
		Pathspecs: []string{"a.txt"},
	}))

	checkpoints, err := store.ForBaseCommit(base).ReadAllCheckpoints()
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	require.Len(t, checkpoints[0].Entries, 1)
	assert.Equal(t, "a.txt", checkpoints[0].Entries[0].File)
}

func TestCountLineChurn(t *testing.T) {
	added, deleted := countLineChurn("a\nb\n", "a\nc\nd\n")
	assert.Equal(t, uint32(2), added)
	assert.Equal(t, uint32(1), deleted)

	added, deleted = countLineChurn("same\n", "same\n")
	assert.Zero(t, added)
	assert.Zero(t, deleted)
}
