package cli

import (
	"os"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/hooks"

	"github.com/spf13/cobra"
)

// newHookCmd is the entry point the installed hook shims exec. It never
// fails: a broken hook must not break the user's git operation.
func newHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "hook <hook-name> [hook-args...]",
		Short:              "Dispatch a git hook invocation (called by installed shims)",
		Hidden:             true,
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			hooks.Dispatch(args[0], args[1:], os.Stdin)
			return nil
		},
	}
}
