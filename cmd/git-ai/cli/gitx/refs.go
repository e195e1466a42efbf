package gitx

import (
	"fmt"
	"strings"
)

// Head returns the SHA that HEAD resolves to.
func (r *Repo) Head() (string, error) {
	out, err := r.Git("rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// HeadRefName returns the fully-qualified ref HEAD points at, or "HEAD" when
// detached.
func (r *Repo) HeadRefName() string {
	out, err := r.Git("symbolic-ref", "HEAD")
	if err != nil {
		return "HEAD"
	}
	return strings.TrimSpace(out)
}

// RevParse resolves a revision spec to a SHA.
func (r *Repo) RevParse(spec string) (string, error) {
	out, err := r.Git("rev-parse", "--verify", spec)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RefExists reports whether a fully-qualified ref exists.
func (r *Repo) RefExists(refName string) bool {
	_, err := r.Git("show-ref", "--verify", "--quiet", refName)
	return err == nil
}

// UpdateRef points refName at target, creating it if needed.
func (r *Repo) UpdateRef(refName, target string) error {
	_, err := r.Git("update-ref", refName, target)
	return err
}

// UpdateRefCAS points refName at target only when its current value equals
// expectedOld (compare-and-swap on the ref).
func (r *Repo) UpdateRefCAS(refName, target, expectedOld string) error {
	_, err := r.Git("update-ref", refName, target, expectedOld)
	return err
}

// DeleteRef removes a ref.
func (r *Repo) DeleteRef(refName string) error {
	_, err := r.Git("update-ref", "-d", refName)
	return err
}

// References lists fully-qualified ref names matching an optional prefix.
func (r *Repo) References(prefix string) ([]string, error) {
	args := []string{"for-each-ref", "--format=%(refname)"}
	if prefix != "" {
		args = append(args, prefix)
	}
	out, err := r.Git(args...)
	if err != nil {
		return nil, err
	}
	return nonEmptyLines(out), nil
}

// Remotes lists configured remote names.
func (r *Repo) Remotes() ([]string, error) {
	out, err := r.Git("remote")
	if err != nil {
		return nil, err
	}
	return nonEmptyLines(out), nil
}

// RemotesWithURLs lists (name, fetch URL) pairs.
func (r *Repo) RemotesWithURLs() ([][2]string, error) {
	out, err := r.Git("remote", "-v")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var remotes [][2]string
	for _, line := range nonEmptyLines(out) {
		fields := strings.Fields(line)
		if len(fields) < 2 || seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		remotes = append(remotes, [2]string{fields[0], fields[1]})
	}
	return remotes, nil
}

// UpstreamRemote returns the remote of the current branch's upstream, or ""
// when no upstream is configured.
func (r *Repo) UpstreamRemote() string {
	out, err := r.Git("rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}")
	if err != nil {
		return ""
	}
	upstream := strings.TrimSpace(out)
	if idx := strings.Index(upstream, "/"); idx > 0 {
		return upstream[:idx]
	}
	return ""
}

// DefaultRemote returns the upstream remote when set, else "origin" when it
// exists, else the first configured remote.
func (r *Repo) DefaultRemote() string {
	if remote := r.UpstreamRemote(); remote != "" {
		return remote
	}
	remotes, err := r.Remotes()
	if err != nil || len(remotes) == 0 {
		return ""
	}
	for _, remote := range remotes {
		if remote == "origin" {
			return remote
		}
	}
	return remotes[0]
}

// ReflogSubject returns the most recent reflog subject (%gs), or "".
func (r *Repo) ReflogSubject() string {
	out, err := r.Git("reflog", "-1", "--format=%gs")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (r *Repo) IsAncestor(ancestor, descendant string) bool {
	_, err := r.Git("merge-base", "--is-ancestor", ancestor, descendant)
	return err == nil
}

// MergeBase returns the best common ancestor of two commits.
func (r *Repo) MergeBase(a, b string) (string, error) {
	out, err := r.Git("merge-base", a, b)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// StashShas lists the commit SHAs of all stash entries, newest first.
func (r *Repo) StashShas() []string {
	out, err := r.Git("stash", "list", "--format=%H")
	if err != nil {
		return nil
	}
	return nonEmptyLines(out)
}

// FetchRefspec fetches a refspec from a remote.
func (r *Repo) FetchRefspec(remote, refspec string) error {
	_, err := r.Git("fetch", "--quiet", remote, refspec)
	return err
}

// PushRefspec pushes a refspec to a remote without force.
func (r *Repo) PushRefspec(remote, refspec string) error {
	_, err := r.Git("push", "--quiet", remote, refspec)
	return err
}

func nonEmptyLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ObjectType returns the type of an object (commit, tree, blob, tag).
func (r *Repo) ObjectType(oid string) (string, error) {
	out, err := r.Git("cat-file", "-t", oid)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// requireObjectType validates that oid names an object of the wanted kind.
func (r *Repo) requireObjectType(oid, want string) error {
	got, err := r.ObjectType(oid)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("object %s is a %s, want %s", oid, got, want)
	}
	return nil
}

// FindCommit validates that oid names a commit and returns it.
func (r *Repo) FindCommit(oid string) (string, error) {
	if err := r.requireObjectType(oid, "commit"); err != nil {
		return "", err
	}
	return oid, nil
}

// FindBlob validates that oid names a blob and returns it.
func (r *Repo) FindBlob(oid string) (string, error) {
	if err := r.requireObjectType(oid, "blob"); err != nil {
		return "", err
	}
	return oid, nil
}

// FindTree validates that oid names a tree and returns it.
func (r *Repo) FindTree(oid string) (string, error) {
	if err := r.requireObjectType(oid, "tree"); err != nil {
		return "", err
	}
	return oid, nil
}
