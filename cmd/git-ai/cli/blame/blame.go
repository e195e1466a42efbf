// Package blame recovers per-line AI attribution from history. It runs
// git blame at a base commit and resolves each line's commit against that
// commit's authorship note: lines inside an attested range get the prompt
// hash as author, everything else is the "human" sentinel.
package blame

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"
)

// OldestAiBlameDate is the floor below which commits are never consulted for
// AI attribution. Notes did not exist before the tooling did, so blaming past
// this date only costs time.
var OldestAiBlameDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Options bound a blame run.
type Options struct {
	// NewestCommit is the commit whose file version is blamed (required).
	NewestCommit string
	// OldestCommit optionally floors the walk at a commit.
	OldestCommit string
	// OldestDate floors the walk by committer date; zero means
	// OldestAiBlameDate.
	OldestDate time.Time
}

// Line is one blamed line: the 1-indexed line number in the blamed version
// and its resolved author id (a prompt hash or the human sentinel).
type Line struct {
	Number uint32
	Author string
}

// entry is a parsed porcelain blame record for one line.
type entry struct {
	sha       string
	origLine  uint32
	finalLine uint32
	fileName  string
	boundary  bool
	commitSec int64
}

// File blames one file at opts.NewestCommit and returns per-line authors
// plus the file content at that revision.
func File(repo *gitx.Repo, filePath string, opts Options) ([]Line, string, error) {
	if opts.NewestCommit == "" {
		return nil, "", fmt.Errorf("blame requires a newest commit")
	}
	oldestDate := opts.OldestDate
	if oldestDate.IsZero() {
		oldestDate = OldestAiBlameDate
	}

	rev := opts.NewestCommit
	if opts.OldestCommit != "" {
		rev = opts.OldestCommit + ".." + opts.NewestCommit
	}

	out, err := repo.Git("blame", "--line-porcelain", rev, "--", filePath)
	if err != nil {
		return nil, "", err
	}
	entries := parsePorcelain(out)

	content, err := repo.FileContentAtCommit(opts.NewestCommit, filePath)
	if err != nil {
		return nil, "", err
	}

	logs := loadNotesForCommits(repo, entries)

	lines := make([]Line, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, Line{
			Number: e.finalLine,
			Author: resolveAuthor(e, logs, filePath, oldestDate),
		})
	}
	return lines, content, nil
}

// resolveAuthor maps one blamed line to a prompt hash or the human sentinel.
func resolveAuthor(e entry, logs map[string]*authorship.AuthorshipLog, blamedPath string, oldestDate time.Time) string {
	if e.boundary {
		return authorship.HumanAuthor
	}
	if e.commitSec > 0 && time.Unix(e.commitSec, 0).Before(oldestDate) {
		return authorship.HumanAuthor
	}
	log := logs[e.sha]
	if log == nil {
		return authorship.HumanAuthor
	}

	// Blame reports the path the line had in its commit; prefer it over the
	// path at the blamed revision so renames resolve correctly.
	path := e.fileName
	if path == "" {
		path = blamedPath
	}

	for _, attestation := range log.Attestations {
		if attestation.FilePath != path {
			continue
		}
		for _, attEntry := range attestation.Entries {
			for _, lr := range attEntry.LineRanges {
				if lr.Contains(e.origLine) {
					return attEntry.Hash
				}
			}
		}
	}
	return authorship.HumanAuthor
}

// loadNotesForCommits parses the authorship note of every distinct blamed
// commit. Corrupt or version-mismatched notes degrade to no attribution for
// that commit.
func loadNotesForCommits(repo *gitx.Repo, entries []entry) map[string]*authorship.AuthorshipLog {
	logs := make(map[string]*authorship.AuthorshipLog)
	for _, e := range entries {
		if _, seen := logs[e.sha]; seen {
			continue
		}
		logs[e.sha] = nil
		content, ok := repo.ShowNote(e.sha)
		if !ok {
			continue
		}
		log, err := authorship.Deserialize(content)
		if err != nil {
			continue
		}
		log.Metadata.BaseCommitSha = e.sha
		logs[e.sha] = log
	}
	return logs
}

// parsePorcelain parses `git blame --line-porcelain` output.
func parsePorcelain(out string) []entry {
	var entries []entry
	var current *entry

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		if line[0] == '\t' {
			// Content line terminates the record.
			if current != nil {
				entries = append(entries, *current)
				current = nil
			}
			continue
		}

		fields := strings.Fields(line)
		if current == nil {
			if len(fields) >= 3 && isSha(fields[0]) {
				orig, err1 := strconv.ParseUint(fields[1], 10, 32)
				final, err2 := strconv.ParseUint(fields[2], 10, 32)
				if err1 == nil && err2 == nil {
					current = &entry{sha: fields[0], origLine: uint32(orig), finalLine: uint32(final)}
				}
			}
			continue
		}

		switch fields[0] {
		case "filename":
			if len(fields) > 1 {
				current.fileName = strings.Join(fields[1:], " ")
			}
		case "boundary":
			current.boundary = true
		case "committer-time":
			if len(fields) > 1 {
				if sec, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
					current.commitSec = sec
				}
			}
		}
	}
	if current != nil {
		entries = append(entries, *current)
	}
	return entries
}

func isSha(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
