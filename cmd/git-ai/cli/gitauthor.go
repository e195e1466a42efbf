package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitAuthor is the configured git identity.
type GitAuthor struct {
	Name  string
	Email string
}

func (a GitAuthor) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// LookupGitAuthor reads user.name and user.email through go-git's config
// cascade, falling back to the git CLI for environments go-git cannot see
// (hook contexts with nonstandard HOME, includes).
func LookupGitAuthor(repo *gitx.Repo) GitAuthor {
	author := GitAuthor{Name: "Unknown", Email: "unknown@local"}

	if gogitRepo, err := git.PlainOpenWithOptions(repo.WorkDir(), &git.PlainOpenOptions{DetectDotGit: true}); err == nil {
		if cfg, err := gogitRepo.ConfigScoped(config.SystemScope); err == nil {
			if cfg.User.Name != "" {
				author.Name = cfg.User.Name
			}
			if cfg.User.Email != "" {
				author.Email = cfg.User.Email
			}
		}
	}

	if author.Name == "Unknown" {
		if out, err := repo.Git("config", "--get", "user.name"); err == nil {
			if name := strings.TrimSpace(out); name != "" {
				author.Name = name
			}
		}
	}
	if author.Email == "unknown@local" {
		if out, err := repo.Git("config", "--get", "user.email"); err == nil {
			if email := strings.TrimSpace(out); email != "" {
				author.Email = email
			}
		}
	}
	return author
}

func gitAuthorString(repo *gitx.Repo) string {
	return LookupGitAuthor(repo).String()
}

// CurrentBranch returns the short branch name, or an error when detached.
func CurrentBranch(repo *gitx.Repo) (string, error) {
	gogitRepo, err := git.PlainOpenWithOptions(repo.WorkDir(), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}
	head, err := gogitRepo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", errors.New("not on a branch (detached HEAD)")
	}
	return head.Name().Short(), nil
}

// DefaultBranch resolves the default branch from origin's HEAD, falling
// back to main/master probes.
func DefaultBranch(repo *gitx.Repo) string {
	gogitRepo, err := git.PlainOpenWithOptions(repo.WorkDir(), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}

	if ref, err := gogitRepo.Reference(plumbing.NewRemoteReferenceName("origin", "HEAD"), false); err == nil && ref != nil {
		target := ref.Target().String()
		if branch, ok := strings.CutPrefix(target, "refs/remotes/origin/"); ok {
			return branch
		}
	}
	for _, candidate := range []string{"main", "master"} {
		if _, err := gogitRepo.Reference(plumbing.NewRemoteReferenceName("origin", candidate), true); err == nil {
			return candidate
		}
	}
	return ""
}
