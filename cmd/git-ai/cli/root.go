// Package cli wires the git-ai command surface. Hooks route through the
// dispatcher; subcommands cover installation, checkpoints, notes sync,
// status, and AI blame.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"

	"github.com/spf13/cobra"
)

// Exit codes for subcommands. Hooks always exit 0.
const (
	ExitOK        = 0
	ExitUserError = 1
	ExitGitError  = 128
)

// NewRootCmd builds the git-ai command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "git-ai",
		Short:         "Line-level AI authorship attribution for git",
		Long:          "git-ai keeps a parallel history of AI authorship attributions at line granularity, surviving commits, amends, rebases, cherry-picks, squashes, and resets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newHookCmd(),
		newInstallHooksCmd(),
		newUninstallHooksCmd(),
		newCheckpointCmd(),
		newSyncNotesCmd(),
		newStatusCmd(),
		newBlameCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "git-ai: %v\n", err)
		var cliErr *gitx.CliError
		if errors.As(err, &cliErr) {
			return ExitGitError
		}
		return ExitUserError
	}
	return ExitOK
}

// openRepo locates the enclosing repository for a subcommand.
func openRepo() (*gitx.Repo, error) {
	repo, err := gitx.Find()
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository: %w", err)
	}
	return repo, nil
}
