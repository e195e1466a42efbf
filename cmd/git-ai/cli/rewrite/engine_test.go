package rewrite

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/linerange"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/rewritelog"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/tracker"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/worklog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestRepo(t *testing.T) (*gitx.Repo, *worklog.Store) {
	t.Helper()
	dir := t.TempDir()
	gitIn(t, dir, "init", "-q", "-b", "main")
	gitIn(t, dir, "config", "user.name", "Dev")
	gitIn(t, dir, "config", "user.email", "dev@example")
	gitIn(t, dir, "config", "commit.gpgsign", "false")

	repo, err := gitx.FindInPath(dir)
	require.NoError(t, err)
	return repo, worklog.NewStore(repo.AiDir())
}

func gitIn(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, repo *gitx.Repo, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(repo.WorkDir(), name), []byte(content), 0o600))
}

func commitAll(t *testing.T, repo *gitx.Repo, msg string) string {
	t.Helper()
	gitIn(t, repo.WorkDir(), "add", "-A")
	gitIn(t, repo.WorkDir(), "commit", "-q", "-m", msg)
	return gitIn(t, repo.WorkDir(), "rev-parse", "HEAD")
}

// writeNote attaches a minimal authorship log attesting ranges on a file.
func writeNote(t *testing.T, repo *gitx.Repo, sha, file, promptID string, ranges ...linerange.LineRange) string {
	t.Helper()
	log := authorship.NewLog()
	log.Metadata.BaseCommitSha = sha
	log.Metadata.Prompts[promptID] = authorship.PromptRecord{
		AgentID: authorship.AgentId{Tool: "claude-code", ID: promptID},
	}
	log.GetOrCreateFile(file).AddEntry(authorship.AttestationEntry{Hash: promptID, LineRanges: ranges})
	content, err := log.Serialize()
	require.NoError(t, err)
	require.NoError(t, repo.NotesAdd(sha, content))
	return content
}

func readNote(t *testing.T, repo *gitx.Repo, sha string) *authorship.AuthorshipLog {
	t.Helper()
	content, ok := repo.ShowNote(sha)
	require.True(t, ok, "expected a note on %s", sha)
	log, err := authorship.Deserialize(content)
	require.NoError(t, err)
	return log
}

func TestApplyCommitWritesNoteAndConsumesWorkingLog(t *testing.T) {
	repo, store := initTestRepo(t)
	writeFile(t, repo, "seed.txt", "seed\n")
	parent := commitAll(t, repo, "seed")

	agent := authorship.AgentId{Tool: "claude-code", ID: "sess-1", Model: "m"}
	promptID := agent.ShortHash()

	content := "L1\nL2\nL3\n"
	writeFile(t, repo, "a.txt", content)
	require.NoError(t, store.ForBaseCommit(parent).AppendCheckpoint(&worklog.Checkpoint{
		Kind:      worklog.KindAiAgent,
		Author:    "Dev <dev@example>",
		AgentID:   &agent,
		LineStats: worklog.LineStats{Additions: 3},
		Entries: []worklog.CheckpointEntry{{
			File:             "a.txt",
			LineAttributions: []tracker.LineAttribution{{StartLine: 1, EndLine: 3, AuthorID: promptID}},
		}},
	}))

	head := commitAll(t, repo, "agent commit")

	engine := New(repo, store)
	require.NoError(t, engine.Apply(rewritelog.NewCommit(parent, head), "Dev <dev@example>"))

	log := readNote(t, repo, head)
	require.Len(t, log.Attestations, 1)
	assert.Equal(t, "a.txt", log.Attestations[0].FilePath)
	entry, ok := log.Attestations[0].EntryFor(promptID)
	require.True(t, ok)
	assert.Equal(t, []linerange.LineRange{linerange.Range(1, 3)}, entry.LineRanges)
	assert.Contains(t, log.Metadata.Prompts, promptID)

	assert.False(t, store.Exists(parent), "consumed working log is deleted")
	assert.False(t, store.Exists(head), "nothing uncommitted, no INITIAL")
}

func TestApplyCommitFastForwardNoOp(t *testing.T) {
	repo, store := initTestRepo(t)
	writeFile(t, repo, "a.txt", "x\n")
	head := commitAll(t, repo, "base")

	engine := New(repo, store)
	require.NoError(t, engine.Apply(rewritelog.NewCommit(head, head), "Dev"))
	_, hasNote := repo.ShowNote(head)
	assert.False(t, hasNote)
}

func TestApplyCommitAmendReusesNoteBlob(t *testing.T) {
	repo, store := initTestRepo(t)
	writeFile(t, repo, "seed.txt", "seed\n")
	commitAll(t, repo, "seed")

	writeFile(t, repo, "a.txt", "L1\nL2\n")
	oldHead := commitAll(t, repo, "work")
	noteContent := writeNote(t, repo, oldHead, "a.txt", "P#abc", linerange.Range(1, 2))

	// Amend only the message: tree unchanged, first parent unchanged.
	gitIn(t, repo.WorkDir(), "commit", "-q", "--amend", "-m", "work (amended)")
	newHead := gitIn(t, repo.WorkDir(), "rev-parse", "HEAD")
	require.NotEqual(t, oldHead, newHead)

	engine := New(repo, store)
	require.NoError(t, engine.Apply(rewritelog.NewCommitAmend(oldHead, newHead), "Dev"))

	got, ok := repo.ShowNote(newHead)
	require.True(t, ok)
	assert.Equal(t, noteContent, got, "note is reattached bit-for-bit")
}

func TestApplyCherryPickReusesNoteBlob(t *testing.T) {
	repo, store := initTestRepo(t)
	writeFile(t, repo, "seed.txt", "seed\n")
	base := commitAll(t, repo, "seed")

	writeFile(t, repo, "pick.txt", "p1\n")
	source := commitAll(t, repo, "to pick")
	noteContent := writeNote(t, repo, source, "pick.txt", "P#pick", linerange.Single(1))

	gitIn(t, repo.WorkDir(), "checkout", "-q", "-b", "target", base)
	gitIn(t, repo.WorkDir(), "cherry-pick", source)
	picked := gitIn(t, repo.WorkDir(), "rev-parse", "HEAD")

	engine := New(repo, store)
	require.NoError(t, engine.Apply(rewritelog.NewCherryPickComplete(rewritelog.CherryPickCompleteEvent{
		OriginalHead:  base,
		NewHead:       picked,
		SourceCommits: []string{source},
		NewCommits:    []string{picked},
	}), "Dev"))

	got, ok := repo.ShowNote(picked)
	require.True(t, ok)
	assert.Equal(t, noteContent, got)
}

// Squashing two commits with disjoint AI line sets yields one note whose
// union covers both, re-coordinated to the squashed tree.
func TestApplyRebaseCompleteSquash(t *testing.T) {
	repo, store := initTestRepo(t)
	writeFile(t, repo, "seed.txt", "seed\n")
	base := commitAll(t, repo, "seed")

	writeFile(t, repo, "f.txt", "A1\nA2\n")
	c1 := commitAll(t, repo, "c1")
	writeNote(t, repo, c1, "f.txt", "P#one", linerange.Range(1, 2))

	writeFile(t, repo, "f.txt", "A1\nA2\nB1\nB2\n")
	c2 := commitAll(t, repo, "c2")
	writeNote(t, repo, c2, "f.txt", "P#two", linerange.Range(3, 4))

	// Simulate the squashed result: one commit from base with the final tree.
	gitIn(t, repo.WorkDir(), "checkout", "-q", "-b", "squashed", base)
	writeFile(t, repo, "f.txt", "A1\nA2\nB1\nB2\n")
	squashed := commitAll(t, repo, "c1+c2")

	engine := New(repo, store)
	require.NoError(t, engine.Apply(rewritelog.NewRebaseComplete(rewritelog.RebaseCompleteEvent{
		OriginalHead:    c2,
		NewHead:         squashed,
		IsInteractive:   true,
		OriginalCommits: []string{c1, c2},
		NewCommits:      []string{squashed},
	}), "Dev"))

	log := readNote(t, repo, squashed)
	require.Len(t, log.Attestations, 1)

	one, ok := log.Attestations[0].EntryFor("P#one")
	require.True(t, ok)
	assert.Equal(t, []linerange.LineRange{linerange.Range(1, 2)}, one.LineRanges)

	two, ok := log.Attestations[0].EntryFor("P#two")
	require.True(t, ok)
	assert.Equal(t, []linerange.LineRange{linerange.Range(3, 4)}, two.LineRanges)

	assert.Contains(t, log.Metadata.Prompts, "P#one")
	assert.Contains(t, log.Metadata.Prompts, "P#two")
}

// A 1:1 rebase pair with an identical tree reuses the source note blob.
func TestApplyRebaseCompleteIdenticalTreeReuse(t *testing.T) {
	repo, store := initTestRepo(t)
	writeFile(t, repo, "seed.txt", "seed\n")
	commitAll(t, repo, "seed")

	writeFile(t, repo, "g.txt", "x\n")
	original := commitAll(t, repo, "work")
	noteContent := writeNote(t, repo, original, "g.txt", "P#g", linerange.Single(1))

	// Same tree, different commit (message rewrite).
	gitIn(t, repo.WorkDir(), "commit", "-q", "--amend", "-m", "work reworded")
	reworded := gitIn(t, repo.WorkDir(), "rev-parse", "HEAD")

	engine := New(repo, store)
	require.NoError(t, engine.Apply(rewritelog.NewRebaseComplete(rewritelog.RebaseCompleteEvent{
		OriginalHead:    original,
		NewHead:         reworded,
		OriginalCommits: []string{original},
		NewCommits:      []string{reworded},
	}), "Dev"))

	got, ok := repo.ShowNote(reworded)
	require.True(t, ok)
	assert.Equal(t, noteContent, got)
}

func TestApplyResetHardDeletesWorkingLog(t *testing.T) {
	repo, store := initTestRepo(t)
	writeFile(t, repo, "a.txt", "x\n")
	head := commitAll(t, repo, "base")

	require.NoError(t, store.ForBaseCommit(head).WriteInitialAttributions(
		map[string][]tracker.LineAttribution{"a.txt": {{StartLine: 1, EndLine: 1, AuthorID: "p"}}}, nil))
	require.True(t, store.Exists(head))

	engine := New(repo, store)
	require.NoError(t, engine.Apply(rewritelog.NewReset(rewritelog.ResetHard, head, "whatever"), "Dev"))
	assert.False(t, store.Exists(head))
}

// A backward mixed reset reconstructs INITIAL at the target from the unwound
// commits' notes so a re-commit can re-attribute the AI lines.
func TestApplyResetMixedReconstructsInitial(t *testing.T) {
	repo, store := initTestRepo(t)
	writeFile(t, repo, "seed.txt", "seed\n")
	base := commitAll(t, repo, "seed")

	writeFile(t, repo, "r.txt", "AI1\nAI2\n")
	unwound := commitAll(t, repo, "ai work")
	writeNote(t, repo, unwound, "r.txt", "P#r", linerange.Range(1, 2))

	// Mixed reset keeps the workdir content.
	gitIn(t, repo.WorkDir(), "reset", "-q", "--mixed", base)

	engine := New(repo, store)
	require.NoError(t, engine.Apply(rewritelog.NewReset(rewritelog.ResetMixed, unwound, base), "Dev"))

	initial := store.ForBaseCommit(base).ReadInitialAttributions()
	require.Contains(t, initial.Files, "r.txt")
	require.Len(t, initial.Files["r.txt"], 1)
	assert.Equal(t, "P#r", initial.Files["r.txt"][0].AuthorID)
	assert.Equal(t, uint32(1), initial.Files["r.txt"][0].StartLine)
	assert.Equal(t, uint32(2), initial.Files["r.txt"][0].EndLine)
	assert.Contains(t, initial.Prompts, "P#r")
}

func TestApplyResetForwardIsIgnored(t *testing.T) {
	repo, store := initTestRepo(t)
	writeFile(t, repo, "a.txt", "x\n")
	older := commitAll(t, repo, "older")
	writeFile(t, repo, "a.txt", "x\ny\n")
	newer := commitAll(t, repo, "newer")

	engine := New(repo, store)
	// Reset "back" to a non-ancestor direction: to is not an ancestor of from.
	require.NoError(t, engine.Apply(rewritelog.NewReset(rewritelog.ResetMixed, older, newer), "Dev"))
	assert.False(t, store.Exists(newer))
}
