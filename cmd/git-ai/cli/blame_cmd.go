package cli

import (
	"fmt"
	"strings"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/blame"

	"github.com/spf13/cobra"
)

// newBlameCmd prints per-line AI attribution for a file, resolving prompt
// hashes through the notes history.
func newBlameCmd() *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "blame <file>",
		Short: "Show per-line AI attribution for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			newest := rev
			if newest == "" {
				newest, err = repo.Head()
				if err != nil {
					return fmt.Errorf("resolving HEAD: %w", err)
				}
			}

			lines, content, err := blame.File(repo, args[0], blame.Options{NewestCommit: newest})
			if err != nil {
				return err
			}

			authors := make(map[uint32]string, len(lines))
			for _, line := range lines {
				authors[line.Number] = line.Author
			}

			out := cmd.OutOrStdout()
			for i, text := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
				lineNo := uint32(i + 1)
				author := authors[lineNo]
				if author == "" || author == authorship.HumanAuthor {
					fmt.Fprintf(out, "%-16s %4d) %s\n", authorship.HumanAuthor, lineNo, text)
					continue
				}
				fmt.Fprintf(out, "%-16s %4d) %s\n", author, lineNo, text)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "", "blame at this revision instead of HEAD")
	return cmd
}
