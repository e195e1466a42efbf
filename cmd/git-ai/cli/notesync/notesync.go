// Package notesync fetches and pushes the refs/notes/ai namespace.
//
// Fetches land on a per-remote tracking ref (refs/notes/ai-remote/<remote>)
// and are folded into the local ref with git's "ours" notes-merge strategy;
// notes are keyed per commit, so nothing is lost on conflicts. Pushes use the
// plain refspec without force.
package notesync

import (
	"context"
	"fmt"
	"strings"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/gitx"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/logging"

	"golang.org/x/sync/errgroup"
)

// PushRefspec pushes the local notes ref as-is.
const PushRefspec = gitx.NotesRef + ":" + gitx.NotesRef

// TrackingRefForRemote returns the tracking ref for a remote's fetched
// notes. Any character outside [A-Za-z0-9-_] is replaced with '_' so the
// remote name cannot produce an invalid ref.
func TrackingRefForRemote(remote string) string {
	return "refs/notes/ai-remote/" + sanitizeRemoteName(remote)
}

func sanitizeRemoteName(remote string) string {
	var b strings.Builder
	for _, c := range remote {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Fetch pulls the remote's notes into the tracking ref and folds them into
// the local notes ref. On first sync, the local ref is created directly from
// the tracking ref.
func Fetch(repo *gitx.Repo, remote string) error {
	trackingRef := TrackingRefForRemote(remote)
	refspec := fmt.Sprintf("+%s:%s", gitx.NotesRef, trackingRef)
	if err := repo.FetchRefspec(remote, refspec); err != nil {
		return fmt.Errorf("fetching notes from %s: %w", remote, err)
	}
	if !repo.RefExists(trackingRef) {
		return nil
	}

	if !repo.RefExists(gitx.NotesRef) {
		if err := repo.UpdateRef(gitx.NotesRef, trackingRef); err != nil {
			return fmt.Errorf("creating local notes ref: %w", err)
		}
		return nil
	}
	if err := repo.MergeNotesFromRef(trackingRef); err != nil {
		return fmt.Errorf("merging notes from %s: %w", trackingRef, err)
	}
	return nil
}

// Push publishes the local notes ref to a remote. A missing local ref is a
// no-op.
func Push(repo *gitx.Repo, remote string) error {
	if !repo.RefExists(gitx.NotesRef) {
		return nil
	}
	if err := repo.PushRefspec(remote, PushRefspec); err != nil {
		return fmt.Errorf("pushing notes to %s: %w", remote, err)
	}
	return nil
}

// Background runs a sync operation on a goroutine. The handle must be joined
// in the matching post-hook so no goroutine outlives its hook process.
type Background struct {
	group *errgroup.Group
}

// StartFetch begins fetching notes in the background.
func StartFetch(repo *gitx.Repo, remote string) *Background {
	return start(func() error { return Fetch(repo, remote) })
}

// StartPush begins pushing notes in the background.
func StartPush(repo *gitx.Repo, remote string) *Background {
	return start(func() error { return Push(repo, remote) })
}

func start(op func() error) *Background {
	g := new(errgroup.Group)
	g.Go(op)
	return &Background{group: g}
}

// Join waits for the background sync. Failures are logged, never fatal: a
// failed sync leaves the underlying git operation untouched.
func (b *Background) Join() {
	if b == nil {
		return
	}
	if err := b.group.Wait(); err != nil {
		logging.Warn(context.Background(), "notes sync failed", "error", err.Error())
	}
}
