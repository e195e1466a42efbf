// Package checkpoint snapshots line-level attributions of dirty files into
// the working log. Agent hooks record AI checkpoints after each edit batch;
// the pre-commit hook records a human checkpoint to flush attributions for
// lines the human touched since the last snapshot.
package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/tracker"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/worklog"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Options configure one checkpoint run.
type Options struct {
	Kind          worklog.CheckpointKind
	Author        string
	AgentID       *authorship.AgentId
	Transcript    *authorship.Transcript
	AgentMetadata map[string]string
	// Pathspecs restricts the snapshot to these files; nil means every
	// dirty file.
	Pathspecs []string
}

// Run appends one checkpoint for the current dirty state. Every dirty file
// is diffed against its baseline - the last checkpoint snapshot, the INITIAL
// attributions, or the base commit content - and interim edits are claimed
// by the checkpoint's author. It is a no-op when nothing relevant is dirty.
func Run(repo *gitx.Repo, store *worklog.Store, opts Options) error {
	baseCommit, err := repo.Head()
	if err != nil {
		// Unborn branch: nothing to attribute against yet.
		return nil
	}

	wl := store.ForBaseCommit(baseCommit)
	baselines, err := collectBaselines(repo, wl, baseCommit)
	if err != nil {
		return err
	}

	files, err := dirtyFiles(repo, opts.Pathspecs)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	editAuthor := authorship.HumanAuthor
	if opts.Kind == worklog.KindAiAgent && opts.AgentID != nil {
		editAuthor = opts.AgentID.ShortHash()
	}

	tr := tracker.New()
	ts := time.Now().UnixMilli()
	var entries []worklog.CheckpointEntry
	var stats worklog.LineStats

	for _, file := range files {
		newContent := readWorkdirFile(repo, file)

		base := baselines[file]
		if base == nil {
			content, err := repo.FileContentAtCommit(baseCommit, file)
			if err != nil {
				content = ""
			}
			base = &baseline{content: content}
		}
		if base.content == newContent && len(base.chars) == 0 {
			continue
		}

		newAttrs := tr.UpdateAttributions(base.content, newContent, base.chars, editAuthor, ts)
		newLines := tracker.AttributionsToLineAttributions(newAttrs, newContent)

		if opts.Kind == worklog.KindHuman {
			markOverrides(base.lines, newLines)
		}

		added, deleted := countLineChurn(base.content, newContent)
		stats.Additions += added
		stats.Deletions += deleted
		stats.AdditionsSloc += added
		stats.DeletionsSloc += deleted

		// Human checkpoints only matter for files that carry or carried AI
		// attributions; everything else would bloat the journal.
		if opts.Kind == worklog.KindHuman && !hasAiClaims(newLines) && len(base.chars) == 0 {
			continue
		}

		entries = append(entries, worklog.CheckpointEntry{
			File:             file,
			Attributions:     newAttrs,
			LineAttributions: newLines,
			Content:          newContent,
		})
	}

	if len(entries) == 0 && opts.AgentID == nil {
		return nil
	}

	return wl.AppendCheckpoint(&worklog.Checkpoint{
		Kind:          opts.Kind,
		Timestamp:     ts,
		Author:        opts.Author,
		AgentID:       opts.AgentID,
		Transcript:    opts.Transcript,
		AgentMetadata: opts.AgentMetadata,
		LineStats:     stats,
		Entries:       entries,
	})
}

// baseline is the last known attribution state for one file.
type baseline struct {
	content string
	chars   []tracker.Attribution
	lines   []tracker.LineAttribution
}

// collectBaselines resolves the per-file baseline: the newest checkpoint
// entry wins; files only present in INITIAL anchor to the base commit
// content.
func collectBaselines(repo *gitx.Repo, wl *worklog.WorkingLog, baseCommit string) (map[string]*baseline, error) {
	baselines := make(map[string]*baseline)

	initial := wl.ReadInitialAttributions()
	for file, lineAttrs := range initial.Files {
		content, err := repo.FileContentAtCommit(baseCommit, file)
		if err != nil {
			content = readWorkdirFile(repo, file)
		}
		baselines[file] = &baseline{
			content: content,
			chars:   tracker.LineAttributionsToAttributions(lineAttrs, content, 0),
			lines:   lineAttrs,
		}
	}

	checkpoints, err := wl.ReadAllCheckpoints()
	if err != nil {
		return nil, err
	}
	for i := range checkpoints {
		for _, entry := range checkpoints[i].Entries {
			if len(entry.Attributions) == 0 && len(entry.LineAttributions) == 0 {
				continue
			}
			chars := entry.Attributions
			if len(chars) == 0 {
				chars = tracker.LineAttributionsToAttributions(entry.LineAttributions, entry.Content, 0)
			}
			baselines[entry.File] = &baseline{
				content: entry.Content,
				chars:   chars,
				lines:   entry.LineAttributions,
			}
		}
	}
	return baselines, nil
}

// markOverrides sets Overrode on human-claimed lines that an AI prompt owned
// in the baseline snapshot.
func markOverrides(oldLines, newLines []tracker.LineAttribution) {
	for i := range newLines {
		if newLines[i].AuthorID != authorship.HumanAuthor {
			continue
		}
		for _, old := range oldLines {
			if old.AuthorID == authorship.HumanAuthor {
				continue
			}
			if old.StartLine <= newLines[i].EndLine && newLines[i].StartLine <= old.EndLine {
				newLines[i].Overrode = old.AuthorID
				break
			}
		}
	}
}

func hasAiClaims(lines []tracker.LineAttribution) bool {
	for _, la := range lines {
		if la.AuthorID != authorship.HumanAuthor {
			return true
		}
	}
	return false
}

// countLineChurn counts added and deleted lines between two contents.
func countLineChurn(oldContent, newContent string) (added, deleted uint32) {
	if oldContent == newContent {
		return 0, 0
	}
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lineArray)
	for _, d := range diffs {
		lines := uint32(strings.Count(d.Text, "\n"))
		if lines == 0 && d.Text != "" {
			lines = 1
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += lines
		case diffmatchpatch.DiffDelete:
			deleted += lines
		}
	}
	return added, deleted
}

// dirtyFiles lists staged, unstaged, and untracked files, optionally
// restricted to pathspecs.
func dirtyFiles(repo *gitx.Repo, pathspecs []string) ([]string, error) {
	all, err := repo.StagedAndUnstagedFiles()
	if err != nil {
		return nil, err
	}
	if pathspecs == nil {
		return all, nil
	}
	allowed := make(map[string]bool, len(pathspecs))
	for _, p := range pathspecs {
		allowed[p] = true
	}
	var kept []string
	for _, file := range all {
		if allowed[file] {
			kept = append(kept, file)
		}
	}
	return kept, nil
}

func readWorkdirFile(repo *gitx.Repo, file string) string {
	data, err := os.ReadFile(filepath.Join(repo.WorkDir(), file))
	if err != nil {
		return ""
	}
	return string(data)
}
