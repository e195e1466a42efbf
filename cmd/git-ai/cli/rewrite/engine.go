// Package rewrite translates history-mutation events into the corresponding
// rewrites of authorship notes and working logs. The engine never aborts a
// chain on a single commit's failure: it logs and proceeds.
package rewrite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/logging"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/rewritelog"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/tracker"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/va"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/worklog"
)

// Engine applies rewrite events against one repository.
type Engine struct {
	repo  *gitx.Repo
	store *worklog.Store
}

// New returns an engine bound to a repo and its working-log store.
func New(repo *gitx.Repo, store *worklog.Store) *Engine {
	return &Engine{repo: repo, store: store}
}

// Record appends the event to the rewrite journal and applies its side
// effects. Journal append failures are fatal; side-effect failures are
// logged and swallowed so one bad commit cannot break a whole rebase chain.
func (e *Engine) Record(event rewritelog.Event, humanAuthor string) error {
	if err := e.store.AppendRewriteEvent(event); err != nil {
		return fmt.Errorf("appending rewrite event: %w", err)
	}
	if err := e.Apply(event, humanAuthor); err != nil {
		logging.Warn(context.Background(), "rewrite side effects failed", "error", err.Error())
	}
	return nil
}

// Apply runs the per-event rules from the rewrite table.
func (e *Engine) Apply(event rewritelog.Event, humanAuthor string) error {
	switch {
	case event.Commit != nil:
		return e.applyCommit(event.Commit, humanAuthor)
	case event.CommitAmend != nil:
		return e.applyCommitAmend(event.CommitAmend, humanAuthor)
	case event.RebaseComplete != nil:
		return e.applyRebaseComplete(event.RebaseComplete)
	case event.CherryPickComplete != nil:
		return e.applyCherryPickComplete(event.CherryPickComplete)
	case event.MergeSquash != nil:
		return e.applyMergeSquash(event.MergeSquash)
	case event.Reset != nil:
		return e.applyReset(event.Reset)
	default:
		// RebaseStart and RebaseAbort only mark the journal.
		return nil
	}
}

// applyCommit splits the pre-commit VA into the note for the new head and
// the INITIAL for the new base commit.
func (e *Engine) applyCommit(ev *rewritelog.CommitEvent, humanAuthor string) error {
	if ev.Parent == ev.Head {
		return nil
	}
	baseCommit := ev.Parent
	if baseCommit == "" {
		baseCommit = ev.Head
	}

	view, err := va.FromWorkingLog(e.repo, e.store, baseCommit, humanAuthor)
	if err != nil {
		return err
	}
	if view.IsEmpty() {
		return nil
	}

	log, initial, err := view.SplitForCommit(e.repo, ev.Parent, ev.Head, nil)
	if err != nil {
		return err
	}

	if !log.IsEmpty() {
		content, err := log.Serialize()
		if err != nil {
			return err
		}
		if err := e.repo.NotesAdd(ev.Head, content); err != nil {
			return err
		}
	}

	if !initial.IsEmpty() {
		if err := e.store.ForBaseCommit(ev.Head).WriteInitialAttributions(initial.Files, initial.Prompts); err != nil {
			return err
		}
	}

	// The parent's working log is consumed once the new INITIAL exists.
	if ev.Parent != "" {
		if err := e.store.Delete(ev.Parent); err != nil {
			logging.Warn(context.Background(), "could not delete consumed working log", "base", ev.Parent)
		}
	}
	return nil
}

// applyCommitAmend reattaches the old commit's note to the amended commit.
// The fast path reuses the existing note blob; it requires the amend to keep
// the first parent. When that invariant fails, the note is recomputed from
// the VA at the new commit.
func (e *Engine) applyCommitAmend(ev *rewritelog.CommitAmendEvent, humanAuthor string) error {
	defer func() {
		if err := e.store.Rename(ev.Old, ev.New); err != nil {
			logging.Warn(context.Background(), "could not rename working log after amend", "error", err.Error())
		}
	}()

	oldParent := e.repo.FirstParent(ev.Old)
	newParent := e.repo.FirstParent(ev.New)

	if oldParent == newParent {
		oids, err := e.repo.NoteBlobOidsForCommits([]string{ev.Old})
		if err != nil {
			return err
		}
		blobOid, hasNote := oids[ev.Old]
		if !hasNote {
			return nil
		}
		return e.repo.NotesAddBlobBatch([]gitx.NoteEntry{{CommitSha: ev.New, Content: blobOid}})
	}

	// Parent changed underneath the amend; fall back to recomputing the full
	// view (blame included) over the files the amended commit touches.
	pathspecs, err := e.repo.DiffChangedFiles(orEmptyTree(newParent), ev.New)
	if err != nil {
		return err
	}
	view, err := va.FromWorkingLogForCommit(context.Background(), e.repo, e.store, ev.Old, pathspecs, humanAuthor, "")
	if err != nil {
		return err
	}
	log, err := view.ToAuthorshipLogIndexOnly(e.repo, newParent, ev.New, nil)
	if err != nil {
		return err
	}
	if log.IsEmpty() {
		return nil
	}
	content, err := log.Serialize()
	if err != nil {
		return err
	}
	return e.repo.NotesAdd(ev.New, content)
}

// applyRebaseComplete carries notes across a rebase. Pairs whose trees are
// unchanged reuse the note blob; everything else is re-derived by
// transforming the union of source notes onto each new commit's tree and
// intersecting with the lines that commit actually added.
func (e *Engine) applyRebaseComplete(ev *rewritelog.RebaseCompleteEvent) error {
	sourceLogs := e.loadLogs(ev.OriginalCommits)
	if len(sourceLogs) == 0 {
		return nil
	}

	// Fast path per pair when the mapping is 1:1 and trees match.
	reused := make(map[string]bool)
	var blobEntries []gitx.NoteEntry
	if len(ev.OriginalCommits) == len(ev.NewCommits) {
		oids, err := e.repo.NoteBlobOidsForCommits(ev.OriginalCommits)
		if err != nil {
			return err
		}
		for i, original := range ev.OriginalCommits {
			newSha := ev.NewCommits[i]
			if original == newSha {
				reused[newSha] = true
				continue
			}
			blobOid, hasNote := oids[original]
			if !hasNote {
				reused[newSha] = true
				continue
			}
			// Identical trees mean the note can be reattached verbatim.
			oldTree, err1 := e.repo.TreeOf(original)
			newTree, err2 := e.repo.TreeOf(newSha)
			if err1 == nil && err2 == nil && oldTree == newTree {
				blobEntries = append(blobEntries, gitx.NoteEntry{CommitSha: newSha, Content: blobOid})
				reused[newSha] = true
			}
		}
	}
	if len(blobEntries) > 0 {
		if err := e.repo.NotesAddBlobBatch(blobEntries); err != nil {
			return err
		}
	}

	// General path: squash, split, drop, reorder.
	var contentEntries []gitx.NoteEntry
	for i, newSha := range ev.NewCommits {
		if reused[newSha] {
			continue
		}
		parent := e.repo.FirstParent(newSha)
		if parent == "" && i > 0 {
			parent = ev.NewCommits[i-1]
		}

		log, err := e.deriveLogForCommit(sourceLogs, parent, newSha)
		if err != nil {
			logging.Warn(context.Background(), "could not derive rebased note", "commit", newSha, "error", err.Error())
			continue
		}
		if log == nil || log.IsEmpty() {
			continue
		}
		content, err := log.Serialize()
		if err != nil {
			continue
		}
		contentEntries = append(contentEntries, gitx.NoteEntry{CommitSha: newSha, Content: content})
	}
	if len(contentEntries) > 0 {
		return e.repo.NotesAddBatch(contentEntries)
	}
	return nil
}

// applyCherryPickComplete reuses source note blobs 1:1 onto the picked
// commits.
func (e *Engine) applyCherryPickComplete(ev *rewritelog.CherryPickCompleteEvent) error {
	if len(ev.SourceCommits) != len(ev.NewCommits) {
		return fmt.Errorf("cherry-pick mapping mismatch: %d sources, %d new", len(ev.SourceCommits), len(ev.NewCommits))
	}
	oids, err := e.repo.NoteBlobOidsForCommits(ev.SourceCommits)
	if err != nil {
		return err
	}
	var entries []gitx.NoteEntry
	for i, source := range ev.SourceCommits {
		if blobOid, hasNote := oids[source]; hasNote {
			entries = append(entries, gitx.NoteEntry{CommitSha: ev.NewCommits[i], Content: blobOid})
		}
	}
	return e.repo.NotesAddBlobBatch(entries)
}

// applyMergeSquash folds the AI attributions of the squashed range into the
// base head's INITIAL, rewritten onto the current workdir content. The
// squash commit does not exist yet; the subsequent post-commit split
// materializes its note from this INITIAL.
func (e *Engine) applyMergeSquash(ev *rewritelog.MergeSquashEvent) error {
	mergeBase, err := e.repo.MergeBase(ev.BaseHead, ev.SourceHead)
	if err != nil {
		return err
	}
	commits, err := e.repo.CommitRangeChronological(mergeBase, ev.SourceHead)
	if err != nil {
		return err
	}
	return e.foldRangeIntoInitial(commits, ev.BaseHead)
}

// applyReset handles the three reset kinds. A backward soft or mixed reset
// reconstructs an INITIAL at the target so re-commits can re-attribute; a
// hard reset discards the working log of the abandoned head.
func (e *Engine) applyReset(ev *rewritelog.ResetEvent) error {
	switch ev.Kind {
	case rewritelog.ResetHard:
		return e.store.Delete(ev.From)
	case rewritelog.ResetSoft, rewritelog.ResetMixed:
		if !e.repo.IsAncestor(ev.To, ev.From) {
			return nil
		}
		commits, err := e.repo.CommitRangeChronological(ev.To, ev.From)
		if err != nil {
			return err
		}
		return e.foldRangeIntoInitial(commits, ev.To)
	}
	return nil
}

// foldRangeIntoInitial unions the notes of a commit range, rewrites their
// attributions onto the current working-copy content, and merges the result
// into the INITIAL at newBase.
func (e *Engine) foldRangeIntoInitial(commits []string, newBase string) error {
	logs := e.loadLogs(commits)
	if len(logs) == 0 {
		return nil
	}

	tr := tracker.New()
	files := make(map[string][]tracker.LineAttribution)
	prompts := make(map[string]authorship.PromptRecord)

	perFile := make(map[string][]tracker.Attribution)
	for _, withSha := range logs {
		for promptID, record := range withSha.log.Metadata.Prompts {
			if existing, ok := prompts[promptID]; !ok || existing.Less(record) {
				prompts[promptID] = record
			}
		}
		for _, attestation := range withSha.log.Attestations {
			sourceContent, err := e.repo.FileContentAtCommit(withSha.sha, attestation.FilePath)
			if err != nil || sourceContent == "" {
				continue
			}
			targetContent := readWorkdir(e.repo, attestation.FilePath)
			if targetContent == "" {
				continue
			}

			var lineAttrs []tracker.LineAttribution
			for _, entry := range attestation.Entries {
				for _, lr := range entry.LineRanges {
					lineAttrs = append(lineAttrs, tracker.LineAttribution{
						StartLine: lr.Start, EndLine: lr.End, AuthorID: entry.Hash,
					})
				}
			}
			chars := tracker.LineAttributionsToAttributions(lineAttrs, sourceContent, 0)
			transformed := tr.UpdateAttributions(sourceContent, targetContent, chars, dropAuthor, 0)

			var kept []tracker.Attribution
			for _, attr := range transformed {
				if attr.AuthorID != dropAuthor {
					kept = append(kept, attr)
				}
			}
			// Earlier commits in the range win overlaps.
			perFile[attestation.FilePath] = tracker.MergeCharAttributions(perFile[attestation.FilePath], kept, targetContent)
		}
	}

	referenced := make(map[string]bool)
	for file, chars := range perFile {
		lines := tracker.AttributionsToLineAttributions(chars, readWorkdir(e.repo, file))
		if len(lines) == 0 {
			continue
		}
		files[file] = lines
		for _, la := range lines {
			referenced[la.AuthorID] = true
		}
	}
	if len(files) == 0 {
		return nil
	}
	for promptID := range prompts {
		if !referenced[promptID] {
			delete(prompts, promptID)
		}
	}

	wl := e.store.ForBaseCommit(newBase)
	existing := wl.ReadInitialAttributions()
	for file, attrs := range files {
		existing.Files[file] = attrs
	}
	for promptID, record := range prompts {
		existing.Prompts[promptID] = record
	}
	return wl.WriteInitialAttributions(existing.Files, existing.Prompts)
}

// deriveLogForCommit rebuilds a note for one rewritten commit: source
// attributions are transformed onto the new tree and intersected with the
// lines the commit actually added.
func (e *Engine) deriveLogForCommit(sourceLogs []logWithSha, parentSha, commitSha string) (*authorship.AuthorshipLog, error) {
	added, err := e.repo.DiffAddedLines(orEmptyTree(parentSha), commitSha, nil)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return nil, nil
	}

	tr := tracker.New()
	view := va.New(commitSha, 0)

	for _, withSha := range sourceLogs {
		for promptID, record := range withSha.log.Metadata.Prompts {
			commits, ok := view.Prompts[promptID]
			if !ok {
				commits = make(map[string]authorship.PromptRecord)
				view.Prompts[promptID] = commits
			}
			commits[withSha.sha] = record
		}

		for _, attestation := range withSha.log.Attestations {
			if _, touched := added[attestation.FilePath]; !touched {
				continue
			}
			sourceContent, err := e.repo.FileContentAtCommit(withSha.sha, attestation.FilePath)
			if err != nil {
				continue
			}
			targetContent, err := e.repo.FileContentAtCommit(commitSha, attestation.FilePath)
			if err != nil || targetContent == "" {
				continue
			}

			var lineAttrs []tracker.LineAttribution
			for _, entry := range attestation.Entries {
				for _, lr := range entry.LineRanges {
					lineAttrs = append(lineAttrs, tracker.LineAttribution{
						StartLine: lr.Start, EndLine: lr.End, AuthorID: entry.Hash,
					})
				}
			}
			chars := tracker.LineAttributionsToAttributions(lineAttrs, sourceContent, 0)
			transformed := tr.UpdateAttributions(sourceContent, targetContent, chars, dropAuthor, 0)

			var kept []tracker.Attribution
			for _, attr := range transformed {
				if attr.AuthorID != dropAuthor {
					kept = append(kept, attr)
				}
			}

			fa := view.Attributions[attestation.FilePath]
			fa.Chars = tracker.MergeCharAttributions(fa.Chars, kept, targetContent)
			fa.Lines = tracker.AttributionsToLineAttributions(fa.Chars, targetContent)
			view.Attributions[attestation.FilePath] = fa
			view.FileContents[attestation.FilePath] = targetContent
		}
	}
	if view.IsEmpty() {
		return nil, nil
	}

	return view.ToAuthorshipLogIndexOnly(e.repo, parentSha, commitSha, nil)
}

// dropAuthor marks transform-introduced insertions for discarding.
const dropAuthor = "__rewrite__"

type logWithSha struct {
	sha string
	log *authorship.AuthorshipLog
}

// loadLogs parses notes for a list of commits, skipping commits without
// readable notes.
func (e *Engine) loadLogs(shas []string) []logWithSha {
	var logs []logWithSha
	for _, sha := range shas {
		content, ok := e.repo.ShowNote(sha)
		if !ok {
			continue
		}
		log, err := authorship.Deserialize(content)
		if err != nil {
			logging.Warn(context.Background(), "skipping unreadable note", "commit", sha, "error", err.Error())
			continue
		}
		log.Metadata.BaseCommitSha = sha
		logs = append(logs, logWithSha{sha: sha, log: log})
	}
	return logs
}

func orEmptyTree(sha string) string {
	if sha == "" {
		return gitx.EmptyTreeSha
	}
	return sha
}

func readWorkdir(repo *gitx.Repo, file string) string {
	data, err := os.ReadFile(filepath.Join(repo.WorkDir(), file))
	if err != nil {
		return ""
	}
	return string(data)
}
