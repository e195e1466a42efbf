package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"
)

// WriteHookScripts writes sh shims for every managed hook into hooksDir.
// Each shim honors GIT_AI_SKIP_CORE_HOOKS and dispatches to
// `git-ai hook <name>`.
func WriteHookScripts(hooksDir, binaryPath string) error {
	if err := os.MkdirAll(hooksDir, 0o750); err != nil {
		return fmt.Errorf("creating hooks dir: %w", err)
	}

	binary := strings.ReplaceAll(binaryPath, `\`, "/")
	binary = strings.ReplaceAll(binary, `"`, `\"`)

	for _, hook := range InstalledHooks {
		script := fmt.Sprintf("#!/bin/sh\nif [ \"${%s:-}\" = \"1\" ]; then\n  exit 0\nfi\nexec \"%s\" hook %s \"$@\"\n",
			SkipEnvVar, binary, hook)
		hookPath := filepath.Join(hooksDir, hook)
		if err := os.WriteFile(hookPath, []byte(script), 0o755); err != nil { //nolint:gosec // hook shims must be executable
			return fmt.Errorf("writing hook %s: %w", hook, err)
		}
	}
	return nil
}

// RemoveHookScripts deletes the managed hook shims from hooksDir, leaving
// foreign hooks untouched.
func RemoveHookScripts(hooksDir string) error {
	for _, hook := range InstalledHooks {
		hookPath := filepath.Join(hooksDir, hook)
		data, err := os.ReadFile(hookPath)
		if err != nil {
			continue
		}
		if !strings.Contains(string(data), "git-ai") {
			continue
		}
		if err := os.Remove(hookPath); err != nil {
			return fmt.Errorf("removing hook %s: %w", hook, err)
		}
	}
	return nil
}

// RepoHooksDir returns the repository's hooks directory, honoring
// core.hooksPath when configured.
func RepoHooksDir(repo *gitx.Repo) string {
	if out, err := repo.Git("config", "--get", "core.hooksPath"); err == nil {
		if path := strings.TrimSpace(out); path != "" {
			if !filepath.IsAbs(path) {
				return filepath.Join(repo.WorkDir(), path)
			}
			return path
		}
	}
	return filepath.Join(repo.GitDir(), "hooks")
}
