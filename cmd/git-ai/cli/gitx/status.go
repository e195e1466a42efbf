package gitx

import "strings"

// StatusEntry is one line of porcelain status.
type StatusEntry struct {
	Staged   byte
	Unstaged byte
	Path     string
}

// Status returns the porcelain v1 worktree status.
func (r *Repo) Status() ([]StatusEntry, error) {
	out, err := r.Git("status", "--porcelain", "-z")
	if err != nil {
		return nil, err
	}

	var entries []StatusEntry
	chunks := strings.Split(out, "\x00")
	for i := 0; i < len(chunks); i++ {
		chunk := chunks[i]
		if len(chunk) < 4 {
			continue
		}
		entry := StatusEntry{Staged: chunk[0], Unstaged: chunk[1], Path: chunk[3:]}
		entries = append(entries, entry)
		// Renames carry the origin path in the next NUL chunk.
		if entry.Staged == 'R' || entry.Staged == 'C' {
			i++
		}
	}
	return entries, nil
}

// StagedAndUnstagedFiles returns every path with staged or unstaged changes,
// including untracked files.
func (r *Repo) StagedAndUnstagedFiles() ([]string, error) {
	entries, err := r.Status()
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		files = append(files, e.Path)
	}
	return files, nil
}

// HasUncommittedChanges reports whether any staged, unstaged, or untracked
// change exists.
func (r *Repo) HasUncommittedChanges() bool {
	files, err := r.StagedAndUnstagedFiles()
	return err == nil && len(files) > 0
}

// WorktreeSummary classifies the worktree for reset-kind detection.
type WorktreeSummary struct {
	HasStaged   bool
	HasUnstaged bool
}

// SummarizeWorktree inspects porcelain status flags. Untracked entries count
// as unstaged.
func (r *Repo) SummarizeWorktree() WorktreeSummary {
	entries, err := r.Status()
	if err != nil {
		return WorktreeSummary{}
	}
	var summary WorktreeSummary
	for _, e := range entries {
		if e.Staged == '?' {
			summary.HasUnstaged = true
			continue
		}
		if e.Staged != ' ' && e.Staged != 0 {
			summary.HasStaged = true
		}
		if e.Unstaged != ' ' && e.Unstaged != 0 {
			summary.HasUnstaged = true
		}
	}
	return summary
}

// UntrackedFiles lists untracked paths.
func (r *Repo) UntrackedFiles() ([]string, error) {
	entries, err := r.Status()
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Staged == '?' && e.Unstaged == '?' {
			files = append(files, e.Path)
		}
	}
	return files, nil
}
