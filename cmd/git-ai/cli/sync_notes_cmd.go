package cli

import (
	"errors"
	"fmt"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/notesync"

	"github.com/spf13/cobra"
)

func newSyncNotesCmd() *cobra.Command {
	var remote string
	var push bool

	cmd := &cobra.Command{
		Use:   "sync-notes",
		Short: "Fetch (and optionally push) the refs/notes/ai namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			if remote == "" {
				remote = repo.DefaultRemote()
			}
			if remote == "" {
				return errors.New("no remote configured")
			}

			if err := notesync.Fetch(repo, remote); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched notes from %s\n", remote)

			if push {
				if err := notesync.Push(repo, remote); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pushed notes to %s\n", remote)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "remote to sync with (default: upstream or origin)")
	cmd.Flags().BoolVar(&push, "push", false, "also push local notes")
	return cmd
}
