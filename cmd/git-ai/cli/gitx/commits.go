package gitx

import (
	"fmt"
	"strconv"
	"strings"
)

// Parent returns the i-th (0-indexed) parent of a commit.
func (r *Repo) Parent(sha string, i int) (string, error) {
	out, err := r.Git("rev-parse", "--verify", fmt.Sprintf("%s^%d", sha, i+1))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Parents returns all parents of a commit, in order.
func (r *Repo) Parents(sha string) ([]string, error) {
	out, err := r.Git("rev-list", "--no-walk", "--parents", sha)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) < 1 {
		return nil, fmt.Errorf("no rev-list output for %s", sha)
	}
	return fields[1:], nil
}

// FirstParent returns the first parent, or "" for a root commit.
func (r *Repo) FirstParent(sha string) string {
	parents, err := r.Parents(sha)
	if err != nil || len(parents) == 0 {
		return ""
	}
	return parents[0]
}

// ParentOnRefname returns the first parent of a commit that is reachable
// from the given fully-qualified ref. Errors when none is.
func (r *Repo) ParentOnRefname(sha, refName string) (string, error) {
	parents, err := r.Parents(sha)
	if err != nil {
		return "", err
	}
	for _, parent := range parents {
		if _, err := r.Git("merge-base", "--is-ancestor", parent, refName); err == nil {
			return parent, nil
		}
	}
	return "", fmt.Errorf("commit %s has no parent on %s", sha, refName)
}

// Summary returns the first line of a commit message.
func (r *Repo) Summary(sha string) (string, error) {
	out, err := r.Git("log", "-1", "--format=%s", sha)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Body returns the commit message body.
func (r *Repo) Body(sha string) (string, error) {
	out, err := r.Git("log", "-1", "--format=%b", sha)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// Author returns "Name <email>" of the commit author.
func (r *Repo) Author(sha string) (string, error) {
	out, err := r.Git("log", "-1", "--format=%an <%ae>", sha)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Committer returns "Name <email>" of the committer.
func (r *Repo) Committer(sha string) (string, error) {
	out, err := r.Git("log", "-1", "--format=%cn <%ce>", sha)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CommitTime returns the committer timestamp in unix seconds.
func (r *Repo) CommitTime(sha string) (int64, error) {
	out, err := r.Git("log", "-1", "--format=%ct", sha)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(out), 10, 64)
}

// TreeOf returns the tree OID of a commit.
func (r *Repo) TreeOf(sha string) (string, error) {
	out, err := r.Git("rev-parse", sha+"^{tree}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CommitRange walks head..base exclusive of base and returns the commits
// newest-first, following first parents.
func (r *Repo) CommitRange(base, head string) ([]string, error) {
	out, err := r.Git("rev-list", "--first-parent", head, "^"+base)
	if err != nil {
		return nil, err
	}
	return nonEmptyLines(out), nil
}

// CommitRangeChronological walks head..base and returns the commits
// oldest-first. This is the rebase mapper's ordering.
func (r *Repo) CommitRangeChronological(base, head string) ([]string, error) {
	commits, err := r.CommitRange(base, head)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}

// CommitRangeOnBranch walks the commits on refName back from its tip until
// (and excluding) base.
func (r *Repo) CommitRangeOnBranch(refName, base string) ([]string, error) {
	out, err := r.Git("rev-list", "--first-parent", refName, "^"+base)
	if err != nil {
		return nil, err
	}
	return nonEmptyLines(out), nil
}

// SortByCommitDate orders SHAs newest-first by commit date.
func (r *Repo) SortByCommitDate(shas []string) ([]string, error) {
	if len(shas) < 2 {
		return shas, nil
	}
	args := append([]string{"log", "--format=%H", "--date-order", "--no-walk"}, shas...)
	out, err := r.Git(args...)
	if err != nil {
		return nil, err
	}
	return nonEmptyLines(out), nil
}

// FileContentAtCommit reads a file's blob at a commit via tree traversal.
// Returns "" when the path does not exist in the commit.
func (r *Repo) FileContentAtCommit(sha, filePath string) (string, error) {
	blobOid, err := r.Git("rev-parse", "--verify", fmt.Sprintf("%s:%s", sha, filePath))
	if err != nil {
		if ExitCodeOf(err) == 128 {
			return "", nil
		}
		return "", err
	}
	out, err := r.Git("cat-file", "blob", strings.TrimSpace(blobOid))
	if err != nil {
		return "", err
	}
	return out, nil
}

// FileExistsInCommit reports whether a path exists in a commit's tree.
func (r *Repo) FileExistsInCommit(sha, filePath string) bool {
	_, err := r.Git("cat-file", "-e", fmt.Sprintf("%s:%s", sha, filePath))
	return err == nil
}

// ListCommitFiles lists paths present in a commit's tree.
func (r *Repo) ListCommitFiles(sha string) ([]string, error) {
	out, err := r.Git("ls-tree", "-r", "--name-only", sha)
	if err != nil {
		return nil, err
	}
	return nonEmptyLines(out), nil
}
