package hooks

import (
	"bufio"
	"io"
	"strings"
)

// parseRewriteMappings reads the "<old> <new>" pairs post-rewrite feeds on
// stdin.
func parseRewriteMappings(stdin io.Reader) [][2]string {
	if stdin == nil {
		return nil
	}
	var mappings [][2]string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 {
			mappings = append(mappings, [2]string{fields[0], fields[1]})
		}
	}
	return mappings
}

// refUpdate is one "<old> <new> <ref>" line from reference-transaction.
type refUpdate struct {
	old string
	new string
	ref string
}

func parseRefTransactionLines(stdin io.Reader) []refUpdate {
	if stdin == nil {
		return nil
	}
	var updates []refUpdate
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 3 {
			updates = append(updates, refUpdate{old: fields[0], new: fields[1], ref: fields[2]})
		}
	}
	return updates
}

// refObservations distills one reference transaction into the signals the
// dispatcher acts on.
type refObservations struct {
	sawOrigHeadUpdate     bool
	remotesToSync         map[string]bool
	movedBranchRef        *[2]string
	movedHeadRef          *[2]string
	movedMainRef          *[2]string
	createdStashSha       string
	deletedStashSha       string
	createdCherryPickHead string
	deletedCherryPickHead string
	createdAutoMerge      bool
}

func observeRefUpdates(updates []refUpdate) refObservations {
	obs := refObservations{remotesToSync: make(map[string]bool)}

	for _, u := range updates {
		changed := u.old != u.new

		if u.ref == "ORIG_HEAD" && changed {
			obs.sawOrigHeadUpdate = true
		}

		if changed && strings.HasPrefix(u.ref, "refs/remotes/") {
			rest := strings.TrimPrefix(u.ref, "refs/remotes/")
			if remote, _, ok := strings.Cut(rest, "/"); ok && remote != "" {
				obs.remotesToSync[remote] = true
			}
		}

		if changed && strings.HasPrefix(u.ref, "refs/heads/") {
			pair := [2]string{u.old, u.new}
			obs.movedBranchRef = &pair
		}
		if changed && u.ref == "HEAD" {
			pair := [2]string{u.old, u.new}
			obs.movedHeadRef = &pair
		}

		if u.ref == "refs/stash" {
			switch {
			case isZeroOid(u.old) && !isZeroOid(u.new):
				obs.createdStashSha = u.new
			case !isZeroOid(u.old) && isZeroOid(u.new):
				obs.deletedStashSha = u.old
			}
		}

		if u.ref == "CHERRY_PICK_HEAD" {
			switch {
			case isZeroOid(u.old) && !isZeroOid(u.new):
				obs.createdCherryPickHead = u.new
			case !isZeroOid(u.old) && isZeroOid(u.new):
				obs.deletedCherryPickHead = u.old
			}
		}

		if u.ref == "AUTO_MERGE" && isZeroOid(u.old) && !isZeroOid(u.new) {
			obs.createdAutoMerge = true
		}
	}

	// Prefer concrete branch moves; fall back to detached-HEAD moves.
	obs.movedMainRef = obs.movedBranchRef
	if obs.movedMainRef == nil {
		obs.movedMainRef = obs.movedHeadRef
	}
	return obs
}

func isZeroOid(oid string) bool {
	if oid == "" {
		return false
	}
	for _, c := range oid {
		if c != '0' {
			return false
		}
	}
	return true
}

// parseMergeSourceRefFromReflogAction extracts the merged ref from a
// GIT_REFLOG_ACTION like "merge feature-x --squash": the last token that is
// neither a flag nor the word "merge".
func parseMergeSourceRefFromReflogAction(action string) string {
	tokens := strings.Fields(action)
	if len(tokens) == 0 || tokens[0] != "merge" {
		return ""
	}
	for i := len(tokens) - 1; i >= 1; i-- {
		if !strings.HasPrefix(tokens[i], "-") && tokens[i] != "merge" {
			return tokens[i]
		}
	}
	return ""
}
