package hooks

import (
	"context"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/logging"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/tracker"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/va"
)

// handleStashCreated snapshots the stashed files' attributions as a note on
// the stash commit, so a later pop or apply can restore them.
func (d *Dispatcher) handleStashCreated(stashSha string) error {
	head, err := d.repo.Head()
	if err != nil {
		return nil
	}
	stashFiles, err := d.repo.DiffChangedFiles(stashSha+"^", stashSha)
	if err != nil || len(stashFiles) == 0 {
		return nil
	}

	view, err := va.FromWorkingLog(d.repo, d.store, head, d.humanAuthor())
	if err != nil || view.IsEmpty() {
		return nil
	}

	stashed := make(map[string]bool, len(stashFiles))
	for _, file := range stashFiles {
		stashed[file] = true
	}
	for file := range view.Attributions {
		if !stashed[file] {
			delete(view.Attributions, file)
		}
	}
	if view.IsEmpty() {
		return nil
	}

	log := view.ToAuthorshipLog()
	if log.IsEmpty() {
		return nil
	}
	content, err := log.Serialize()
	if err != nil {
		return err
	}
	logging.Debug(context.Background(), "saving stash attribution note", "stash", stashSha)
	return d.repo.NotesAdd(stashSha, content)
}

// restoreStashAttributions folds a stash commit's attribution note back into
// the INITIAL at the current HEAD.
func (d *Dispatcher) restoreStashAttributions(stashSha string) error {
	content, ok := d.repo.ShowNote(stashSha)
	if !ok {
		return nil
	}
	log, err := authorship.Deserialize(content)
	if err != nil {
		return nil
	}
	head, err := d.repo.Head()
	if err != nil {
		return nil
	}
	logging.Debug(context.Background(), "restoring stash attributions", "stash", stashSha)
	return d.applyInitialFromAuthorshipLog(head, log)
}

func (d *Dispatcher) markPendingStashApply() {
	state := loadState(d.repo.AiDir())
	state.PendingStashApply = &PendingStashApply{CreatedAtMs: nowMs()}
	_ = saveState(d.repo.AiDir(), state)
}

func (d *Dispatcher) clearPendingStashApply() {
	state := loadState(d.repo.AiDir())
	state.PendingStashApply = nil
	_ = saveState(d.repo.AiDir(), state)
}

// maybeRestoreStashApplyWithoutPop resolves a stash apply that kept the
// stash entry alive: no refs/stash deletion fires, so the best-matching
// stash note is found by comparing its files with what just became dirty.
func (d *Dispatcher) maybeRestoreStashApplyWithoutPop() error {
	state := loadState(d.repo.AiDir())
	pending := state.PendingStashApply
	if pending == nil {
		return nil
	}
	if expired(pending.CreatedAtMs, stateEventMaxAge) {
		state.PendingStashApply = nil
		return saveState(d.repo.AiDir(), state)
	}

	candidate := d.findBestMatchingStashWithNote()
	if candidate == "" {
		return nil
	}

	if err := d.restoreStashAttributions(candidate); err != nil {
		return err
	}
	state.PendingStashApply = nil
	return saveState(d.repo.AiDir(), state)
}

// findBestMatchingStashWithNote picks the stash whose note's files overlap
// the currently changed files the most; ties break to the note with fewer
// files (the more specific stash).
func (d *Dispatcher) findBestMatchingStashWithNote() string {
	changed, err := d.repo.StagedAndUnstagedFiles()
	if err != nil || len(changed) == 0 {
		return ""
	}
	changedSet := make(map[string]bool, len(changed))
	for _, file := range changed {
		changedSet[file] = true
	}

	var bestSha string
	bestMatches, bestTotal := 0, 0

	for _, stashSha := range d.repo.StashShas() {
		content, ok := d.repo.ShowNote(stashSha)
		if !ok {
			continue
		}
		log, err := authorship.Deserialize(content)
		if err != nil {
			continue
		}
		total := len(log.Attestations)
		if total == 0 {
			continue
		}
		matches := 0
		for _, attestation := range log.Attestations {
			if changedSet[attestation.FilePath] {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		if matches > bestMatches || (matches == bestMatches && total < bestTotal) {
			bestSha, bestMatches, bestTotal = stashSha, matches, total
		}
	}
	return bestSha
}

// attestationToLineAttrs flattens an attestation's entries into line
// attributions.
func attestationToLineAttrs(attestation authorship.FileAttestation) []tracker.LineAttribution {
	var lineAttrs []tracker.LineAttribution
	for _, entry := range attestation.Entries {
		for _, lr := range entry.LineRanges {
			lineAttrs = append(lineAttrs, tracker.LineAttribution{
				StartLine: lr.Start,
				EndLine:   lr.End,
				AuthorID:  entry.Hash,
			})
		}
	}
	return lineAttrs
}
