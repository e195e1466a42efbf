package gitx

import (
	"fmt"
	"strings"
	"time"
)

// NotesRef is the local notes namespace holding authorship logs.
const NotesRef = "refs/notes/ai"

// notesPathForObject returns the fan-out tree path for a commit's note
// (<aa>/<rest>).
func notesPathForObject(oid string) string {
	if len(oid) <= 2 {
		return oid
	}
	return oid[:2] + "/" + oid[2:]
}

// NotesAdd writes (force-overwrites) the note for one commit. The content is
// fed through stdin to avoid argv length limits.
func (r *Repo) NotesAdd(commitSha, content string) error {
	_, err := r.GitStdin([]byte(content),
		"notes", "--ref=ai", "add", "-f", "-F", "-", commitSha)
	return err
}

// ShowNote returns the note content for a commit, or ("", false) when the
// commit has no note.
func (r *Repo) ShowNote(commitSha string) (string, bool) {
	out, err := r.Git("notes", "--ref=ai", "show", commitSha)
	if err != nil {
		return "", false
	}
	content := strings.TrimSpace(out)
	return content, content != ""
}

// NotesList returns every (commit, note blob) pair in the notes ref.
func (r *Repo) NotesList() (map[string]string, error) {
	out, err := r.Git("notes", "--ref=ai", "list")
	if err != nil {
		if ExitCodeOf(err) == 1 {
			return map[string]string{}, nil
		}
		return nil, err
	}
	notes := make(map[string]string)
	for _, line := range nonEmptyLines(out) {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			notes[fields[1]] = fields[0]
		}
	}
	return notes, nil
}

// NoteBlobOidsForCommits resolves note blob OIDs for a set of commits with
// one batched cat-file call, probing both flat and fan-out paths inside the
// notes tree.
func (r *Repo) NoteBlobOidsForCommits(commitShas []string) (map[string]string, error) {
	if len(commitShas) == 0 {
		return map[string]string{}, nil
	}

	var stdin strings.Builder
	for _, sha := range commitShas {
		fmt.Fprintf(&stdin, "%s:%s\n", NotesRef, sha)
		fmt.Fprintf(&stdin, "%s:%s\n", NotesRef, notesPathForObject(sha))
	}

	out, err := r.GitStdin([]byte(stdin.String()), "cat-file", "--batch-check")
	if err != nil {
		return nil, err
	}

	lines := strings.Split(out, "\n")
	result := make(map[string]string)
	for i, sha := range commitShas {
		flatIdx, fanoutIdx := 2*i, 2*i+1
		if flatIdx >= len(lines) {
			break
		}
		oid := parseBatchCheckBlobOid(lines[flatIdx])
		if oid == "" && fanoutIdx < len(lines) {
			oid = parseBatchCheckBlobOid(lines[fanoutIdx])
		}
		if oid != "" {
			result[sha] = oid
		}
	}
	return result, nil
}

// CommitsWithNotes returns the subset of shas currently carrying a note.
func (r *Repo) CommitsWithNotes(shas []string) (map[string]bool, error) {
	oids, err := r.NoteBlobOidsForCommits(shas)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(oids))
	for sha := range oids {
		present[sha] = true
	}
	return present, nil
}

// parseBatchCheckBlobOid extracts a blob OID from one cat-file --batch-check
// output line, accepting SHA-1 and SHA-256 object names.
func parseBatchCheckBlobOid(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[1] != "blob" {
		return ""
	}
	oid := fields[0]
	if len(oid) != 40 && len(oid) != 64 {
		return ""
	}
	for _, c := range oid {
		if !isHexDigit(byte(c)) {
			return ""
		}
	}
	return oid
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// NoteEntry pairs a commit with either inline note content or an existing
// blob OID to link.
type NoteEntry struct {
	CommitSha string
	Content   string
}

// NotesAddBatch writes many notes atomically as one fast-import commit on
// the notes ref: either the entire batch becomes the new tip or nothing does.
func (r *Repo) NotesAddBatch(entries []NoteEntry) error {
	if len(entries) == 0 {
		return nil
	}
	script := buildFastImportScript(r.notesTip(), dedupeNoteEntries(entries), false, time.Now().Unix())
	_, err := r.GitStdin(script, "fast-import", "--quiet")
	return err
}

// NotesAddBlobBatch attaches existing note blobs to commits without
// rewriting blob contents. Entry Content carries the blob OID.
func (r *Repo) NotesAddBlobBatch(entries []NoteEntry) error {
	if len(entries) == 0 {
		return nil
	}
	script := buildFastImportScript(r.notesTip(), dedupeNoteEntries(entries), true, time.Now().Unix())
	_, err := r.GitStdin(script, "fast-import", "--quiet")
	return err
}

// notesTip returns the current notes ref tip, or "" when the ref is absent.
func (r *Repo) notesTip() string {
	out, err := r.Git("rev-parse", "--verify", NotesRef)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// dedupeNoteEntries keeps the last entry per commit, preserving order.
func dedupeNoteEntries(entries []NoteEntry) []NoteEntry {
	seen := make(map[string]bool, len(entries))
	var reversed []NoteEntry
	for i := len(entries) - 1; i >= 0; i-- {
		if seen[entries[i].CommitSha] {
			continue
		}
		seen[entries[i].CommitSha] = true
		reversed = append(reversed, entries[i])
	}
	deduped := make([]NoteEntry, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		deduped = append(deduped, reversed[i])
	}
	return deduped
}

// buildFastImportScript emits one notes-ref commit. For content mode, blobs
// are emitted first with marks; for blobReuse mode, Content is an existing
// blob OID linked directly. Prior flat and fan-out paths are deleted before
// linking the new blob at its fan-out path.
func buildFastImportScript(existingTip string, entries []NoteEntry, blobReuse bool, now int64) []byte {
	var script strings.Builder

	if !blobReuse {
		for idx, entry := range entries {
			script.WriteString("blob\n")
			fmt.Fprintf(&script, "mark :%d\n", idx+1)
			fmt.Fprintf(&script, "data %d\n", len(entry.Content))
			script.WriteString(entry.Content)
			script.WriteString("\n")
		}
	}

	fmt.Fprintf(&script, "commit %s\n", NotesRef)
	fmt.Fprintf(&script, "committer git-ai <git-ai@local> %d +0000\n", now)
	script.WriteString("data 0\n")
	if existingTip != "" {
		fmt.Fprintf(&script, "from %s\n", existingTip)
	}

	for idx, entry := range entries {
		fanoutPath := notesPathForObject(entry.CommitSha)
		if entry.CommitSha != fanoutPath {
			fmt.Fprintf(&script, "D %s\n", entry.CommitSha)
		}
		fmt.Fprintf(&script, "D %s\n", fanoutPath)
		if blobReuse {
			fmt.Fprintf(&script, "M 100644 %s %s\n", entry.Content, fanoutPath)
		} else {
			fmt.Fprintf(&script, "M 100644 :%d %s\n", idx+1, fanoutPath)
		}
	}
	script.WriteString("\n")
	return []byte(script.String())
}

// MergeNotesFromRef merges a source notes ref into refs/notes/ai with the
// "ours" strategy. Notes are keyed per commit, so no data is lost on
// conflicts.
func (r *Repo) MergeNotesFromRef(sourceRef string) error {
	_, err := r.Git("notes", "--ref=ai", "merge", "-s", "ours", "--quiet", sourceRef)
	return err
}

// GrepAiNotes searches the notes ref for a pattern and returns matching
// commit SHAs ordered by commit date, newest first.
func (r *Repo) GrepAiNotes(pattern string) ([]string, error) {
	out, err := r.Git("grep", "-nI", pattern, NotesRef)
	if err != nil {
		if ExitCodeOf(err) == 1 {
			return nil, nil
		}
		return nil, err
	}

	shaSet := make(map[string]bool)
	for _, line := range nonEmptyLines(out) {
		rest, found := strings.CutPrefix(line, NotesRef+":")
		if !found {
			continue
		}
		pathEnd := strings.Index(rest, ":")
		if pathEnd < 0 {
			continue
		}
		shaSet[strings.ReplaceAll(rest[:pathEnd], "/", "")] = true
	}

	shas := make([]string, 0, len(shaSet))
	for sha := range shaSet {
		shas = append(shas, sha)
	}
	if len(shas) < 2 {
		return shas, nil
	}
	return r.SortByCommitDate(shas)
}
