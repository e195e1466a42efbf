package va

import (
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/linerange"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/tracker"
)

// dummyAuthor marks insertions produced while transforming attributions onto
// a final content; those spans are discarded, not claimed.
const dummyAuthor = "__transform__"

// MergeFavoringFirst merges two VAs onto finalState content. Primary wins
// every overlap; secondary fills gaps. Prompts union with the newest record
// per prompt id and accumulated totals.
func MergeFavoringFirst(primary, secondary *VirtualAttributions, finalState map[string]string) *VirtualAttributions {
	tr := tracker.New()

	merged := New(primary.BaseCommit, primary.TS)
	merged.Prompts = MergePromptsPickingNewest(primary.Prompts, secondary.Prompts)

	allFiles := make(map[string]bool)
	for file := range primary.Attributions {
		allFiles[file] = true
	}
	for file := range secondary.Attributions {
		allFiles[file] = true
	}
	for file := range finalState {
		allFiles[file] = true
	}

	for file := range allFiles {
		finalContent, ok := finalState[file]
		if !ok {
			// Files absent from the final state are gone; skip them.
			continue
		}

		transformedPrimary := transformToFinal(tr, primary, file, finalContent)
		transformedSecondary := transformToFinal(tr, secondary, file, finalContent)

		chars := tracker.MergeCharAttributions(transformedPrimary, transformedSecondary, finalContent)
		lines := tracker.AttributionsToLineAttributions(chars, finalContent)

		merged.Attributions[file] = FileAttributions{Chars: chars, Lines: lines}
		merged.FileContents[file] = finalContent
	}

	// Sum additions/deletions across both sources so squash and rebase flows
	// preserve totals, then recompute the line-derived metrics.
	savedTotals := make(map[string][2]uint32)
	for _, source := range []*VirtualAttributions{primary, secondary} {
		for promptID, commits := range source.Prompts {
			totals := savedTotals[promptID]
			for _, record := range commits {
				totals[0] += record.TotalAdditions
				totals[1] += record.TotalDeletions
			}
			savedTotals[promptID] = totals
		}
	}

	CalculateAndUpdatePromptMetrics(merged.Prompts, merged.Attributions, nil, nil)

	for promptID, commits := range merged.Prompts {
		totals, ok := savedTotals[promptID]
		if !ok {
			continue
		}
		for sha, record := range commits {
			record.TotalAdditions = totals[0]
			record.TotalDeletions = totals[1]
			commits[sha] = record
		}
	}

	return merged
}

// transformToFinal rewrites a VA file's char attributions onto finalContent.
// Insertions introduced by the transform are dropped.
func transformToFinal(tr *tracker.Tracker, source *VirtualAttributions, file, finalContent string) []tracker.Attribution {
	fa, ok := source.Attributions[file]
	if !ok || len(fa.Chars) == 0 {
		return nil
	}
	sourceContent := source.FileContents[file]

	transformed := tr.UpdateAttributions(sourceContent, finalContent, fa.Chars, dummyAuthor, source.TS)
	kept := transformed[:0]
	for _, attr := range transformed {
		if attr.AuthorID != dummyAuthor {
			kept = append(kept, attr)
		}
	}
	return kept
}

// MergePromptsPickingNewest unions prompt maps. For each prompt id the
// newest record (tuple-ordered) wins, totals accumulate across all records,
// and the commit key is preserved when any source has one (else "merged").
func MergePromptsPickingNewest(sources ...map[string]map[string]authorship.PromptRecord) map[string]map[string]authorship.PromptRecord {
	allIDs := make(map[string]bool)
	for _, source := range sources {
		for promptID := range source {
			allIDs[promptID] = true
		}
	}

	merged := make(map[string]map[string]authorship.PromptRecord, len(allIDs))
	for promptID := range allIDs {
		var records []authorship.PromptRecord
		commitSha := "merged"
		haveSha := false
		for _, source := range sources {
			commits, ok := source[promptID]
			if !ok {
				continue
			}
			for sha, record := range commits {
				records = append(records, record)
				if !haveSha && sha != "" {
					commitSha = sha
					haveSha = true
				}
			}
		}
		if len(records) == 0 {
			continue
		}

		newest := authorship.NewestPromptRecord(records)
		var additions, deletions uint32
		for _, record := range records {
			additions += record.TotalAdditions
			deletions += record.TotalDeletions
		}
		newest.TotalAdditions = additions
		newest.TotalDeletions = deletions

		merged[promptID] = map[string]authorship.PromptRecord{commitSha: newest}
	}
	return merged
}

// CalculateAndUpdatePromptMetrics recomputes accepted_lines from the final
// line attributions and overriden_lines from overrode markers, then applies
// the per-session addition/deletion counters to every record.
func CalculateAndUpdatePromptMetrics(
	prompts map[string]map[string]authorship.PromptRecord,
	attributions map[string]FileAttributions,
	sessionAdditions, sessionDeletions map[string]uint32,
) {
	acceptedLines := make(map[string]uint32)
	overriddenLines := make(map[string]uint32)

	for _, fa := range attributions {
		for _, la := range fa.Lines {
			if la.AuthorID != authorship.HumanAuthor {
				acceptedLines[la.AuthorID] += la.EndLine - la.StartLine + 1
			}
			// Human attributions participate here: a human override carries
			// author_id="human" and overrode=<ai prompt id>.
			if la.Overrode != "" {
				overriddenLines[la.Overrode] += la.EndLine - la.StartLine + 1
			}
		}
	}

	for promptID, commits := range prompts {
		for sha, record := range commits {
			record.TotalAdditions = sessionAdditions[promptID]
			record.TotalDeletions = sessionDeletions[promptID]
			record.AcceptedLines = acceptedLines[promptID]
			record.OverridenLines = overriddenLines[promptID]
			commits[sha] = record
		}
	}
}

// FilterToCommits restricts the VA to prompts observed in the given commits,
// dropping attributions whose author no longer has a prompt entry. Human
// attributions always survive; they were never in the prompts map.
func (v *VirtualAttributions) FilterToCommits(commitShas map[string]bool) {
	originalPromptIDs := make(map[string]bool, len(v.Prompts))
	for promptID := range v.Prompts {
		originalPromptIDs[promptID] = true
	}

	filtered := make(map[string]map[string]authorship.PromptRecord)
	for promptID, commits := range v.Prompts {
		kept := make(map[string]authorship.PromptRecord)
		for sha, record := range commits {
			if commitShas[sha] {
				kept[sha] = record
			}
		}
		if len(kept) > 0 {
			filtered[promptID] = kept
		}
	}
	v.Prompts = filtered

	for file, fa := range v.Attributions {
		keptChars := fa.Chars[:0]
		for _, attr := range fa.Chars {
			if !originalPromptIDs[attr.AuthorID] {
				keptChars = append(keptChars, attr)
				continue
			}
			if _, stillValid := v.Prompts[attr.AuthorID]; stillValid {
				keptChars = append(keptChars, attr)
			}
		}
		fa.Chars = keptChars
		fa.Lines = tracker.AttributionsToLineAttributions(fa.Chars, v.FileContents[file])
		v.Attributions[file] = fa
	}
}

// FlattenPromptsNewest collapses the nested prompts map to one record per
// prompt id, the newest winning.
func FlattenPromptsNewest(prompts map[string]map[string]authorship.PromptRecord) map[string]authorship.PromptRecord {
	flat := make(map[string]authorship.PromptRecord, len(prompts))
	for promptID, commits := range prompts {
		var records []authorship.PromptRecord
		for _, record := range commits {
			records = append(records, record)
		}
		if len(records) > 0 {
			flat[promptID] = authorship.NewestPromptRecord(records)
		}
	}
	return flat
}

// groupLinesByAuthor buckets non-human line attributions into canonical
// ranges per author.
func groupLinesByAuthor(lines []tracker.LineAttribution) map[string][]linerange.LineRange {
	grouped := make(map[string][]linerange.LineRange)
	for _, la := range lines {
		if la.AuthorID == authorship.HumanAuthor {
			continue
		}
		grouped[la.AuthorID] = append(grouped[la.AuthorID], linerange.Range(la.StartLine, la.EndLine))
	}
	for author, ranges := range grouped {
		grouped[author] = linerange.MergeIntervals(ranges)
	}
	return grouped
}
