package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/agent"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/checkpoint"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/settings"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/uploadqueue"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/worklog"

	// Register every supported agent adapter.
	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/claudecode"
	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/codex"
	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/cursor"
	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/droid"
	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/geminicli"
	_ "github.com/gitaihq/git-ai/cmd/git-ai/cli/agent/opencode"

	"github.com/spf13/cobra"
)

// newCheckpointCmd records a checkpoint. With --agent, the payload on stdin
// is parsed by that agent's adapter; without it a human checkpoint flushes
// the dirty state.
func newCheckpointCmd() *cobra.Command {
	var agentName string

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Record an attribution checkpoint for the current dirty state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo()
			if err != nil {
				return err
			}
			store := worklog.NewStore(repo.AiDir())
			author := gitAuthorString(repo)

			if agentName == "" {
				return checkpoint.Run(repo, store, checkpoint.Options{
					Kind:   worklog.KindHuman,
					Author: author,
				})
			}

			adapter, err := agent.Get(agentName)
			if err != nil {
				return err
			}
			payload, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading hook payload: %w", err)
			}
			result, err := adapter.ParseHookPayload(payload)
			if err != nil {
				return err
			}

			opts := checkpoint.Options{
				Kind:          worklog.KindAiAgent,
				Author:        author,
				AgentID:       &result.AgentID,
				Transcript:    result.Transcript,
				AgentMetadata: result.Metadata,
			}
			if len(result.ModifiedFiles) > 0 {
				opts.Pathspecs = normalizeToRepo(repo.WorkDir(), result.ModifiedFiles)
			}
			if err := checkpoint.Run(repo, store, opts); err != nil {
				return err
			}

			enqueueTranscript(repo.AiDir(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentName, "agent", "", "agent adapter to parse the stdin payload with (e.g. claude-code)")
	return cmd
}

// enqueueTranscript pushes the session transcript onto the CAS upload queue.
// Best-effort: the attribution core never depends on the side channel.
func enqueueTranscript(aiDir string, result *agent.Result) {
	if result.Transcript == nil || len(result.Transcript.Messages) == 0 {
		return
	}
	if !settings.Load(aiDir).UploadEnabled {
		return
	}
	queue, err := uploadqueue.Open(filepath.Join(aiDir, "upload_queue.db"))
	if err != nil {
		return
	}
	defer queue.Close()
	_, _ = queue.Enqueue(map[string]any{
		"agent_id":   result.AgentID,
		"transcript": result.Transcript,
	})
}

// normalizeToRepo converts agent-reported absolute paths to repo-relative
// pathspecs, dropping anything outside the worktree.
func normalizeToRepo(workDir string, files []string) []string {
	var out []string
	for _, file := range files {
		if !filepath.IsAbs(file) {
			out = append(out, file)
			continue
		}
		rel, err := filepath.Rel(workDir, file)
		if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == "../" {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}
