package va

import (
	"sort"
	"strings"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/linerange"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/tracker"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/worklog"
)

// SplitForCommit divides the VA into the committed bucket (an authorship log
// for commitSha) and the uncommitted bucket (a new INITIAL).
//
// VA line numbers are working-directory coordinates. Lines added in the
// commit are tested in commit coordinates, reached by unshifting past
// unstaged insertions. A line number present in both the committed and the
// unstaged list was committed then re-modified, and counts as committed -
// unless it is also a pure insertion, in which case the overlap is
// coincidental (a new line pushed others down) and it stays unstaged.
func (v *VirtualAttributions) SplitForCommit(repo *gitx.Repo, parentSha, commitSha string, pathspecs map[string]bool) (*authorship.AuthorshipLog, worklog.InitialAttributions, error) {
	log := authorship.NewLog()
	log.Metadata.BaseCommitSha = v.BaseCommit
	log.Metadata.Prompts = FlattenPromptsNewest(v.Prompts)

	initial := worklog.EmptyInitial()
	referencedPrompts := make(map[string]bool)

	committedHunks, err := collectCommittedHunks(repo, parentSha, commitSha, pathspecs)
	if err != nil {
		return nil, initial, err
	}
	unstagedLinesByFile, pureInsertionsByFile, err := collectUnstagedLines(repo, commitSha, pathspecs)
	if err != nil {
		return nil, initial, err
	}

	// Coordinate reconciliation: drop unstaged lines that were committed,
	// keeping pure insertions.
	for file, committed := range committedHunks {
		unstaged, ok := unstagedLinesByFile[file]
		if !ok {
			continue
		}
		committedSet := make(map[uint32]bool)
		for _, r := range committed {
			for _, l := range r.Expand() {
				committedSet[l] = true
			}
		}
		pureSet := make(map[uint32]bool)
		for _, l := range pureInsertionsByFile[file] {
			pureSet[l] = true
		}

		filtered := unstaged[:0]
		for _, l := range unstaged {
			if !committedSet[l] || pureSet[l] {
				filtered = append(filtered, l)
			}
		}
		if len(filtered) == 0 {
			delete(unstagedLinesByFile, file)
		} else {
			unstagedLinesByFile[file] = filtered
		}
	}

	for file, fa := range v.Attributions {
		if len(fa.Lines) == 0 {
			continue
		}
		unstagedLines := unstagedLinesByFile[file]
		fileCommittedHunks := committedHunks[file]

		committedByAuthor := make(map[string][]uint32)
		uncommittedByAuthor := make(map[string][]uint32)

		for _, la := range fa.Lines {
			for workdirLine := la.StartLine; workdirLine <= la.EndLine; workdirLine++ {
				if containsSorted(unstagedLines, workdirLine) {
					uncommittedByAuthor[la.AuthorID] = append(uncommittedByAuthor[la.AuthorID], workdirLine)
					referencedPrompts[la.AuthorID] = true
					continue
				}

				// Unshift past unstaged insertions to reach commit coordinates.
				var adjustment uint32
				for _, l := range unstagedLines {
					if l < workdirLine {
						adjustment++
					}
				}
				commitLine := workdirLine - adjustment

				committed := false
				for _, hunk := range fileCommittedHunks {
					if hunk.Contains(commitLine) {
						committed = true
						break
					}
				}
				if committed {
					committedByAuthor[la.AuthorID] = append(committedByAuthor[la.AuthorID], commitLine)
				}
				// Lines neither unstaged nor added in the commit came from the
				// parent and are discarded.
			}
		}

		for authorID, lines := range committedByAuthor {
			if authorID == authorship.HumanAuthor {
				continue
			}
			sortedUnique := sortUnique(lines)
			if len(sortedUnique) == 0 {
				continue
			}
			log.GetOrCreateFile(file).AddEntry(authorship.AttestationEntry{
				Hash:       authorID,
				LineRanges: linerange.CompressLines(sortedUnique),
			})
		}

		var uncommittedAttrs []tracker.LineAttribution
		for authorID, lines := range uncommittedByAuthor {
			if authorID == authorship.HumanAuthor {
				continue
			}
			for _, r := range linerange.CompressLines(sortUnique(lines)) {
				uncommittedAttrs = append(uncommittedAttrs, tracker.LineAttribution{
					StartLine: r.Start,
					EndLine:   r.End,
					AuthorID:  authorID,
				})
			}
		}
		if len(uncommittedAttrs) > 0 {
			sort.Slice(uncommittedAttrs, func(i, j int) bool {
				if uncommittedAttrs[i].StartLine != uncommittedAttrs[j].StartLine {
					return uncommittedAttrs[i].StartLine < uncommittedAttrs[j].StartLine
				}
				return uncommittedAttrs[i].AuthorID < uncommittedAttrs[j].AuthorID
			})
			initial.Files[file] = uncommittedAttrs
		}
	}

	// Keep only prompts referenced by an uncommitted line.
	for promptID := range referencedPrompts {
		if promptID == authorship.HumanAuthor {
			continue
		}
		if record, ok := log.Metadata.Prompts[promptID]; ok {
			initial.Prompts[promptID] = record
		}
	}

	return log, initial, nil
}

// ToAuthorshipLogIndexOnly skips the working directory entirely: VA
// coordinates are treated as already commit-aligned and only the authorship
// log is produced. Used when retroactively attributing a commit that has
// already landed.
func (v *VirtualAttributions) ToAuthorshipLogIndexOnly(repo *gitx.Repo, parentSha, commitSha string, pathspecs map[string]bool) (*authorship.AuthorshipLog, error) {
	log := authorship.NewLog()
	log.Metadata.BaseCommitSha = v.BaseCommit
	log.Metadata.Prompts = FlattenPromptsNewest(v.Prompts)

	committedHunks, err := collectCommittedHunks(repo, parentSha, commitSha, pathspecs)
	if err != nil {
		return nil, err
	}

	for file, fa := range v.Attributions {
		hunks := committedHunks[file]
		if len(hunks) == 0 {
			continue
		}
		byAuthor := make(map[string][]uint32)
		for _, la := range fa.Lines {
			if la.AuthorID == authorship.HumanAuthor {
				continue
			}
			for line := la.StartLine; line <= la.EndLine; line++ {
				for _, hunk := range hunks {
					if hunk.Contains(line) {
						byAuthor[la.AuthorID] = append(byAuthor[la.AuthorID], line)
						break
					}
				}
			}
		}
		for authorID, lines := range byAuthor {
			log.GetOrCreateFile(file).AddEntry(authorship.AttestationEntry{
				Hash:       authorID,
				LineRanges: linerange.CompressLines(sortUnique(lines)),
			})
		}
	}
	return log, nil
}

// collectCommittedHunks diffs parent..commit and compresses added lines.
// The empty tree stands in for the parent of an initial commit.
func collectCommittedHunks(repo *gitx.Repo, parentSha, commitSha string, pathspecs map[string]bool) (map[string][]linerange.LineRange, error) {
	from := parentSha
	if from == "" {
		from = gitx.EmptyTreeSha
	}
	added, err := repo.DiffAddedLines(from, commitSha, pathspecs)
	if err != nil {
		return nil, err
	}
	hunks := make(map[string][]linerange.LineRange, len(added))
	for file, lines := range added {
		if len(lines) > 0 {
			hunks[file] = linerange.CompressLines(lines)
		}
	}
	return hunks, nil
}

// collectUnstagedLines diffs the workdir against the commit. Untracked files
// named by the pathspecs count entirely as unstaged pure insertions.
func collectUnstagedLines(repo *gitx.Repo, commitSha string, pathspecs map[string]bool) (unstaged map[string][]uint32, pureInsertions map[string][]uint32, err error) {
	unstaged, pureInsertions, err = repo.DiffWorkdirAddedLinesWithInsertions(commitSha, pathspecs)
	if err != nil {
		return nil, nil, err
	}

	for pathspec := range pathspecs {
		if _, present := unstaged[pathspec]; present {
			continue
		}
		if repo.FileExistsInCommit(commitSha, pathspec) {
			continue
		}
		content := readWorkdirFile(repo, pathspec)
		if content == "" {
			continue
		}
		lineCount := uint32(len(strings.Split(strings.TrimSuffix(content, "\n"), "\n")))
		if lineCount == 0 {
			continue
		}
		all := make([]uint32, 0, lineCount)
		for l := uint32(1); l <= lineCount; l++ {
			all = append(all, l)
		}
		unstaged[pathspec] = all
		pureInsertions[pathspec] = all
	}
	return unstaged, pureInsertions, nil
}

func containsSorted(sorted []uint32, needle uint32) bool {
	idx := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= needle })
	return idx < len(sorted) && sorted[idx] == needle
}

func sortUnique(lines []uint32) []uint32 {
	if len(lines) == 0 {
		return nil
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })
	out := lines[:1]
	for _, l := range lines[1:] {
		if l != out[len(out)-1] {
			out = append(out, l)
		}
	}
	return out
}
