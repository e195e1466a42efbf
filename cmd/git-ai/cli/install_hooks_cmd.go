package cli

import (
	"fmt"
	"os"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/hooks"

	"github.com/spf13/cobra"
)

func newInstallHooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install-hooks",
		Short: "Install git-ai hook shims into this repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			binaryPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locating git-ai binary: %w", err)
			}
			hooksDir := hooks.RepoHooksDir(repo)
			if err := hooks.WriteHookScripts(hooksDir, binaryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed %d hooks into %s\n", len(hooks.InstalledHooks), hooksDir)
			return nil
		},
	}
}

func newUninstallHooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall-hooks",
		Short: "Remove git-ai hook shims from this repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			hooksDir := hooks.RepoHooksDir(repo)
			if err := hooks.RemoveHookScripts(hooksDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed git-ai hooks from %s\n", hooksDir)
			return nil
		},
	}
}
