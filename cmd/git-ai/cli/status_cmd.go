package cli

import (
	"fmt"
	"os"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/hooks"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/worklog"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show attribution state for the current repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			interactive := term.IsTerminal(int(os.Stdout.Fd()))

			header := "git-ai status"
			if interactive {
				header = "\x1b[1m" + header + "\x1b[0m"
			}
			fmt.Fprintln(out, header)

			if branch, err := CurrentBranch(repo); err == nil {
				fmt.Fprintf(out, "  branch:        %s\n", branch)
			} else {
				fmt.Fprintln(out, "  branch:        (detached)")
			}
			fmt.Fprintf(out, "  author:        %s\n", LookupGitAuthor(repo))

			hooksDir := hooks.RepoHooksDir(repo)
			fmt.Fprintf(out, "  hooks:         %s\n", describeHooks(hooksDir))

			if repo.RefExists(gitx.NotesRef) {
				notes, err := repo.NotesList()
				if err == nil {
					fmt.Fprintf(out, "  notes:         %d commits attributed\n", len(notes))
				}
			} else {
				fmt.Fprintln(out, "  notes:         none yet")
			}

			head, err := repo.Head()
			if err != nil {
				return nil
			}
			store := worklog.NewStore(repo.AiDir())
			wl := store.ForBaseCommit(head)

			checkpoints, _ := wl.ReadAllCheckpoints()
			initial := wl.ReadInitialAttributions()
			fmt.Fprintf(out, "  working log:   %d checkpoints, %d files carried forward\n",
				len(checkpoints), len(initial.Files))

			if content, ok := repo.ShowNote(head); ok {
				if log, err := authorship.Deserialize(content); err == nil {
					fmt.Fprintf(out, "  HEAD note:     %d files, %d prompts\n",
						len(log.Attestations), len(log.Metadata.Prompts))
				} else {
					fmt.Fprintln(out, "  HEAD note:     unreadable (schema mismatch or corrupt)")
				}
			} else {
				fmt.Fprintln(out, "  HEAD note:     none")
			}
			return nil
		},
	}
}

func describeHooks(hooksDir string) string {
	installed := 0
	for _, hook := range hooks.InstalledHooks {
		data, err := os.ReadFile(hooksDir + "/" + hook)
		if err == nil && len(data) > 0 {
			installed++
		}
	}
	if installed == len(hooks.InstalledHooks) {
		return "installed"
	}
	if installed == 0 {
		return "not installed (run git-ai install-hooks)"
	}
	return fmt.Sprintf("partial (%d/%d)", installed, len(hooks.InstalledHooks))
}
