// Package va builds Virtual Attributions: the in-memory, per-base-commit
// unification of blame-recovered history, working-log checkpoints, and
// carried-forward INITIAL attributions. A VA knows how to split back into a
// committed authorship log and a new INITIAL for the next base commit.
//
// A VA borrows its repo handle for the duration of an operation; it never
// owns the adapter.
package va

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/blame"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/tracker"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/worklog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// maxConcurrent bounds the blame and note-load fan-out.
const maxConcurrent = 30

// uncommittedKey is the prompts-map commit key for prompts observed in
// uncommitted state.
const uncommittedKey = ""

// FileAttributions pairs the char- and line-level views of one file.
type FileAttributions struct {
	Chars []tracker.Attribution
	Lines []tracker.LineAttribution
}

// VirtualAttributions is the unified attribution view at one base commit.
//
// Prompts is an append log keyed prompt_id -> commit_sha -> record; when
// collapsing to an authorship log the newest record per prompt wins while
// totals accumulate.
type VirtualAttributions struct {
	BaseCommit       string
	Attributions     map[string]FileAttributions
	FileContents     map[string]string
	Prompts          map[string]map[string]authorship.PromptRecord
	TS               int64
	BlameStartCommit string
}

// New returns an empty VA for a base commit.
func New(baseCommit string, ts int64) *VirtualAttributions {
	return &VirtualAttributions{
		BaseCommit:   baseCommit,
		Attributions: make(map[string]FileAttributions),
		FileContents: make(map[string]string),
		Prompts:      make(map[string]map[string]authorship.PromptRecord),
		TS:           ts,
	}
}

// Files lists tracked file paths.
func (v *VirtualAttributions) Files() []string {
	files := make([]string, 0, len(v.Attributions))
	for file := range v.Attributions {
		files = append(files, file)
	}
	return files
}

// IsEmpty reports whether no file carries attributions.
func (v *VirtualAttributions) IsEmpty() bool {
	return len(v.Attributions) == 0
}

func (v *VirtualAttributions) addPrompt(promptID, commitSha string, record authorship.PromptRecord) {
	commits, ok := v.Prompts[promptID]
	if !ok {
		commits = make(map[string]authorship.PromptRecord)
		v.Prompts[promptID] = commits
	}
	commits[commitSha] = record
}

// FromWorkingLog builds a VA from the working log only - the fast path with
// no blame. INITIAL attributions seed each file against the current
// working-copy content, then checkpoints replay in order with later
// checkpoints overriding earlier ones per file.
func FromWorkingLog(repo *gitx.Repo, store *worklog.Store, baseCommit, humanAuthor string) (*VirtualAttributions, error) {
	wl := store.ForBaseCommit(baseCommit)
	initial := wl.ReadInitialAttributions()
	checkpoints, err := wl.ReadAllCheckpoints()
	if err != nil {
		return nil, err
	}

	v := New(baseCommit, 0)

	sessionAdditions := make(map[string]uint32)
	sessionDeletions := make(map[string]uint32)

	// Uncommitted prompts are keyed by the empty commit sha.
	for promptID, record := range initial.Prompts {
		v.addPrompt(promptID, uncommittedKey, record)
	}

	for file, lineAttrs := range initial.Files {
		content := readWorkdirFile(repo, file)
		v.FileContents[file] = content
		v.Attributions[file] = FileAttributions{
			Chars: tracker.LineAttributionsToAttributions(lineAttrs, content, 0),
			Lines: append([]tracker.LineAttribution(nil), lineAttrs...),
		}
	}

	for i := range checkpoints {
		cp := &checkpoints[i]
		if cp.AgentID != nil {
			authorID := cp.AgentID.ShortHash()
			var messages []authorship.Message
			if cp.Transcript != nil {
				messages = cp.Transcript.Messages
			}
			// Always take the latest checkpoint's record for this agent so a
			// refreshed transcript is not lost.
			v.addPrompt(authorID, uncommittedKey, authorship.PromptRecord{
				AgentID:     *cp.AgentID,
				HumanAuthor: humanAuthor,
				Messages:    messages,
			})
			sessionAdditions[authorID] += cp.LineStats.Additions
			sessionDeletions[authorID] += cp.LineStats.Deletions
		}

		for _, entry := range cp.Entries {
			// Human-only entries with no attribution data carry nothing.
			if len(entry.LineAttributions) == 0 && len(entry.Attributions) == 0 {
				continue
			}

			content := readWorkdirFile(repo, entry.File)
			v.FileContents[entry.File] = content

			lineAttrs := entry.LineAttributions
			if len(lineAttrs) == 0 {
				// Older checkpoints persisted only char attributions.
				lineAttrs = tracker.AttributionsToLineAttributions(entry.Attributions, content)
			}
			if len(lineAttrs) == 0 {
				continue
			}

			v.Attributions[entry.File] = FileAttributions{
				Chars: tracker.LineAttributionsToAttributions(lineAttrs, content, 0),
				Lines: append([]tracker.LineAttribution(nil), lineAttrs...),
			}
		}
	}

	CalculateAndUpdatePromptMetrics(v.Prompts, v.Attributions, sessionAdditions, sessionDeletions)
	return v, nil
}

// NewForBaseCommit builds a VA from per-file blame at the base commit,
// fanning pathspecs out under a permit-limited pool. After blame, author ids
// with no prompt record are recovered from history via a notes grep.
func NewForBaseCommit(ctx context.Context, repo *gitx.Repo, baseCommit string, pathspecs []string, blameStartCommit string) (*VirtualAttributions, error) {
	v := New(baseCommit, time.Now().UnixMilli())
	v.BlameStartCommit = blameStartCommit

	if len(pathspecs) > 0 {
		if err := v.addPathspecs(ctx, repo, pathspecs); err != nil {
			return nil, err
		}
	}
	if err := v.discoverForeignPrompts(ctx, repo); err != nil {
		return nil, err
	}
	return v, nil
}

type blamedFile struct {
	path    string
	content string
	chars   []tracker.Attribution
	lines   []tracker.LineAttribution
}

func (v *VirtualAttributions) addPathspecs(ctx context.Context, repo *gitx.Repo, pathspecs []string) error {
	sem := semaphore.NewWeighted(maxConcurrent)
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var results []blamedFile

	for _, pathspec := range pathspecs {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			result, ok := computeAttributionsForFile(repo, v.BaseCommit, pathspec, v.TS, v.BlameStartCommit)
			if !ok {
				return nil
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, result := range results {
		v.Attributions[result.path] = FileAttributions{Chars: result.chars, Lines: result.lines}
		v.FileContents[result.path] = result.content
	}
	return nil
}

// computeAttributionsForFile blames one file at the base commit. Files that
// cannot be blamed (absent at the commit, binary) are skipped.
func computeAttributionsForFile(repo *gitx.Repo, baseCommit, filePath string, ts int64, blameStartCommit string) (blamedFile, bool) {
	lines, content, err := blame.File(repo, filePath, blame.Options{
		NewestCommit: baseCommit,
		OldestCommit: blameStartCommit,
	})
	if err != nil {
		return blamedFile{}, false
	}

	var lineAttrs []tracker.LineAttribution
	for _, line := range lines {
		if line.Author == authorship.HumanAuthor {
			continue
		}
		lineAttrs = append(lineAttrs, tracker.LineAttribution{
			StartLine: line.Number,
			EndLine:   line.Number,
			AuthorID:  line.Author,
		})
	}

	return blamedFile{
		path:    filePath,
		content: content,
		chars:   tracker.LineAttributionsToAttributions(lineAttrs, content, ts),
		lines:   lineAttrs,
	}, true
}

// discoverForeignPrompts loads prompt records for author ids observed in
// attributions but absent from the prompts map, searching notes history for
// the newest commit carrying each.
func (v *VirtualAttributions) discoverForeignPrompts(ctx context.Context, repo *gitx.Repo) error {
	missing := make(map[string]bool)
	for _, fa := range v.Attributions {
		for _, attr := range fa.Chars {
			if attr.AuthorID == authorship.HumanAuthor {
				continue
			}
			if _, known := v.Prompts[attr.AuthorID]; !known {
				missing[attr.AuthorID] = true
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(maxConcurrent)
	g, ctx := errgroup.WithContext(ctx)

	type found struct {
		promptID  string
		commitSha string
		record    authorship.PromptRecord
	}
	var mu sync.Mutex
	var results []found

	for promptID := range missing {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			commitSha, record, ok := findPromptInHistory(repo, promptID)
			if !ok {
				return nil
			}
			mu.Lock()
			results = append(results, found{promptID: promptID, commitSha: commitSha, record: record})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, f := range results {
		v.addPrompt(f.promptID, f.commitSha, f.record)
	}
	return nil
}

// findPromptInHistory greps the notes ref for a prompt id and returns the
// newest commit's record for it.
func findPromptInHistory(repo *gitx.Repo, promptID string) (string, authorship.PromptRecord, bool) {
	shas, err := repo.GrepAiNotes(`"` + promptID + `"`)
	if err != nil || len(shas) == 0 {
		return "", authorship.PromptRecord{}, false
	}
	latest := shas[0]
	content, ok := repo.ShowNote(latest)
	if !ok {
		return "", authorship.PromptRecord{}, false
	}
	log, err := authorship.Deserialize(content)
	if err != nil {
		return "", authorship.PromptRecord{}, false
	}
	record, ok := log.Metadata.Prompts[promptID]
	if !ok {
		return "", authorship.PromptRecord{}, false
	}
	return latest, record, true
}

// FromWorkingLogForCommit composes blame and working-log views: working-copy
// attributions win conflicts, blame fills gaps.
func FromWorkingLogForCommit(ctx context.Context, repo *gitx.Repo, store *worklog.Store, baseCommit string, pathspecs []string, humanAuthor, blameStartCommit string) (*VirtualAttributions, error) {
	blameVA, err := NewForBaseCommit(ctx, repo, baseCommit, pathspecs, blameStartCommit)
	if err != nil {
		return nil, err
	}

	checkpointVA, err := FromWorkingLog(repo, store, baseCommit, humanAuthor)
	if err != nil {
		return nil, err
	}
	if checkpointVA.IsEmpty() {
		return blameVA, nil
	}

	finalState := make(map[string]string, len(checkpointVA.FileContents))
	for file, content := range checkpointVA.FileContents {
		finalState[file] = content
	}
	return MergeFavoringFirst(checkpointVA, blameVA, finalState), nil
}

// ToAuthorshipLog collapses the VA into an authorship log without splitting:
// all attributed lines are emitted as attestations. Used when snapshotting a
// dirty worktree (autostash, stash notes).
func (v *VirtualAttributions) ToAuthorshipLog() *authorship.AuthorshipLog {
	log := authorship.NewLog()
	log.Metadata.BaseCommitSha = v.BaseCommit
	log.Metadata.Prompts = FlattenPromptsNewest(v.Prompts)

	for file, fa := range v.Attributions {
		if len(fa.Lines) == 0 {
			continue
		}
		entries := groupLinesByAuthor(fa.Lines)
		for authorID, ranges := range entries {
			log.GetOrCreateFile(file).AddEntry(authorship.AttestationEntry{
				Hash:       authorID,
				LineRanges: ranges,
			})
		}
	}
	return log
}

func readWorkdirFile(repo *gitx.Repo, file string) string {
	data, err := os.ReadFile(filepath.Join(repo.WorkDir(), file))
	if err != nil {
		return ""
	}
	return string(data)
}
