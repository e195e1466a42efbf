// Package gitx is a thin, typed wrapper over the git CLI: objects, refs,
// commits, diffs, and notes. All failures surface as *CliError carrying the
// argv, exit code, and stderr for diagnosis.
package gitx

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// EmptyTreeSha is git's well-known empty tree object, used to diff the
// initial commit of a repository.
const EmptyTreeSha = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// CliError is the single error kind for git CLI failures.
type CliError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CliError) Error() string {
	return fmt.Sprintf("git %s: exit %d: %s", strings.Join(e.Args, " "), e.ExitCode, strings.TrimSpace(e.Stderr))
}

// ExitCodeOf returns the git exit code when err wraps a CliError, else -1.
func ExitCodeOf(err error) int {
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		return cliErr.ExitCode
	}
	return -1
}

// Repo is a handle on one repository. Methods shell out to git with the
// repo's directory pinned, so callers do not depend on process cwd.
type Repo struct {
	gitDir  string
	workDir string
}

// GitDir returns the repository's .git directory.
func (r *Repo) GitDir() string {
	return r.gitDir
}

// WorkDir returns the repository's working tree root.
func (r *Repo) WorkDir() string {
	return r.workDir
}

// AiDir returns the repo's private git-ai directory (inside .git).
func (r *Repo) AiDir() string {
	return filepath.Join(r.gitDir, "ai")
}

// Find discovers the repository containing the current directory.
func Find() (*Repo, error) {
	return FindInPath("")
}

// FindInPath discovers the repository containing dir ("" means cwd).
func FindInPath(dir string) (*Repo, error) {
	gitDir, err := runGitIn(dir, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, err
	}
	workDir, err := runGitIn(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	return &Repo{
		gitDir:  strings.TrimSpace(gitDir),
		workDir: strings.TrimSpace(workDir),
	}, nil
}

// FindForHook discovers the repository in hook environments. Some git code
// paths invoke hooks with cwd set to .git; GIT_WORK_TREE is honored as a
// final fallback.
func FindForHook() (*Repo, error) {
	repo, err := Find()
	if err == nil {
		return repo, nil
	}

	if cwd, cwdErr := os.Getwd(); cwdErr == nil && filepath.Base(cwd) == ".git" {
		if repo, parentErr := FindInPath(filepath.Dir(cwd)); parentErr == nil {
			return repo, nil
		}
	}

	if workTree := strings.TrimSpace(os.Getenv("GIT_WORK_TREE")); workTree != "" {
		if repo, wtErr := FindInPath(workTree); wtErr == nil {
			return repo, nil
		}
	}

	return nil, err
}

// Git runs a git command in the repository and returns stdout.
func (r *Repo) Git(args ...string) (string, error) {
	return runGitIn(r.workDir, args...)
}

// GitStdin runs a git command feeding stdin and returns stdout.
func (r *Repo) GitStdin(stdin []byte, args ...string) (string, error) {
	return runGitStdinIn(r.workDir, stdin, args...)
}

func runGitIn(dir string, args ...string) (string, error) {
	return runGitStdinIn(dir, nil, args...)
}

func runGitStdinIn(dir string, stdin []byte, args ...string) (string, error) {
	full := append([]string{"--no-pager"}, args...)
	cmd := exec.Command("git", full...)
	if dir != "" {
		cmd.Dir = dir
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return "", &CliError{Args: full, ExitCode: code, Stderr: stderr.String()}
	}
	return stdout.String(), nil
}
