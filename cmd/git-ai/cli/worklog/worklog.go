// Package worklog implements the on-disk working log: a per-base-commit
// directory of checkpoint and rewrite-event journals plus the INITIAL
// attributions file, all written crash-safe.
//
// Layout, inside the repo's private ai directory:
//
//	working_logs/<base-commit>/checkpoints   length-prefixed checkpoint journal
//	working_logs/<base-commit>/initial       InitialAttributions (atomic replace)
//	rewrite_log                              length-prefixed rewrite-event journal
//
// The rewrite-event journal is repo-wide rather than per-base-commit because
// a rebase moves HEAD across base commits while the scan for its RebaseStart
// event must still succeed.
package worklog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/jsonutil"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/logging"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/rewritelog"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/tracker"
)

// CheckpointKind distinguishes agent-triggered from human checkpoints.
type CheckpointKind string

const (
	KindAiAgent CheckpointKind = "ai_agent"
	KindHuman   CheckpointKind = "human"
)

const (
	checkpointsFile = "checkpoints"
	initialFile     = "initial"
	rewriteLogFile  = "rewrite_log"
	workingLogsDir  = "working_logs"
)

// LineStats counts the line churn a checkpoint observed.
type LineStats struct {
	Additions     uint32 `json:"additions"`
	Deletions     uint32 `json:"deletions"`
	AdditionsSloc uint32 `json:"additions_sloc"`
	DeletionsSloc uint32 `json:"deletions_sloc"`
}

// CheckpointEntry is the attribution snapshot for one file. Content is the
// file text the attributions were computed against; the next checkpoint
// diffs against it to attribute interim edits.
type CheckpointEntry struct {
	File             string                    `json:"file"`
	Attributions     []tracker.Attribution     `json:"attributions"`
	LineAttributions []tracker.LineAttribution `json:"line_attributions"`
	Content          string                    `json:"content,omitempty"`
}

// Checkpoint is one append-only journal record: a snapshot of dirty-file
// attributions at a moment, usually triggered by an agent hook.
type Checkpoint struct {
	Kind          CheckpointKind         `json:"kind"`
	Timestamp     int64                  `json:"timestamp"`
	Author        string                 `json:"author"`
	AgentID       *authorship.AgentId    `json:"agent_id,omitempty"`
	Transcript    *authorship.Transcript `json:"transcript,omitempty"`
	AgentMetadata map[string]string      `json:"agent_metadata,omitempty"`
	LineStats     LineStats              `json:"line_stats"`
	Entries       []CheckpointEntry      `json:"entries"`
}

// InitialAttributions carries uncommitted AI lines from one base commit to
// the next. Only prompts referenced by at least one line are kept.
type InitialAttributions struct {
	Files   map[string][]tracker.LineAttribution `json:"files"`
	Prompts map[string]authorship.PromptRecord   `json:"prompts"`
}

// EmptyInitial returns an InitialAttributions with allocated maps.
func EmptyInitial() InitialAttributions {
	return InitialAttributions{
		Files:   make(map[string][]tracker.LineAttribution),
		Prompts: make(map[string]authorship.PromptRecord),
	}
}

// IsEmpty reports whether nothing is carried forward.
func (i InitialAttributions) IsEmpty() bool {
	return len(i.Files) == 0 && len(i.Prompts) == 0
}

// Store manages working logs under the repo's private ai directory
// (typically .git/ai).
type Store struct {
	aiDir string
}

// NewStore returns a store rooted at aiDir.
func NewStore(aiDir string) *Store {
	return &Store{aiDir: aiDir}
}

// AiDir exposes the store root (used for the hook state file).
func (s *Store) AiDir() string {
	return s.aiDir
}

// WorkingLog is a handle to one base commit's directory.
type WorkingLog struct {
	dir string
}

// ForBaseCommit returns the working log handle for a base commit. The
// directory is created lazily on first write.
func (s *Store) ForBaseCommit(sha string) *WorkingLog {
	return &WorkingLog{dir: filepath.Join(s.aiDir, workingLogsDir, sha)}
}

// Exists reports whether a working log directory exists for the base commit.
func (s *Store) Exists(sha string) bool {
	info, err := os.Stat(filepath.Join(s.aiDir, workingLogsDir, sha))
	return err == nil && info.IsDir()
}

// Rename moves a working log from one base commit to another, replacing any
// existing destination. Used on branch switch and fast-forward.
func (s *Store) Rename(oldSha, newSha string) error {
	if oldSha == newSha {
		return nil
	}
	oldDir := filepath.Join(s.aiDir, workingLogsDir, oldSha)
	if _, err := os.Stat(oldDir); err != nil {
		return nil
	}
	newDir := filepath.Join(s.aiDir, workingLogsDir, newSha)
	if err := os.MkdirAll(filepath.Dir(newDir), 0o750); err != nil {
		return fmt.Errorf("creating working_logs dir: %w", err)
	}
	if err := os.RemoveAll(newDir); err != nil {
		return fmt.Errorf("clearing destination working log: %w", err)
	}
	if err := os.Rename(oldDir, newDir); err != nil {
		return fmt.Errorf("renaming working log %s -> %s: %w", oldSha, newSha, err)
	}
	return nil
}

// Delete removes the working log for a base commit.
func (s *Store) Delete(sha string) error {
	return os.RemoveAll(filepath.Join(s.aiDir, workingLogsDir, sha))
}

// AppendRewriteEvent appends an event to the repo-wide rewrite journal.
func (s *Store) AppendRewriteEvent(event rewritelog.Event) error {
	if err := os.MkdirAll(s.aiDir, 0o750); err != nil {
		return fmt.Errorf("creating ai dir: %w", err)
	}
	return appendJournalRecord(filepath.Join(s.aiDir, rewriteLogFile), event)
}

// ReadRewriteEvents returns all rewrite events newest-first.
func (s *Store) ReadRewriteEvents() ([]rewritelog.Event, error) {
	var events []rewritelog.Event
	err := readJournal(filepath.Join(s.aiDir, rewriteLogFile), func(data []byte) error {
		var event rewritelog.Event
		if err := json.Unmarshal(data, &event); err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Stored oldest-first; readers see newest-first.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// AppendCheckpoint appends a checkpoint to the journal.
func (w *WorkingLog) AppendCheckpoint(cp *Checkpoint) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("creating working log dir: %w", err)
	}
	return appendJournalRecord(filepath.Join(w.dir, checkpointsFile), cp)
}

// ReadAllCheckpoints returns checkpoints in append (FIFO) order. A corrupt or
// truncated tail is discarded with a warning; everything before it is kept.
func (w *WorkingLog) ReadAllCheckpoints() ([]Checkpoint, error) {
	var checkpoints []Checkpoint
	err := readJournal(filepath.Join(w.dir, checkpointsFile), func(data []byte) error {
		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			return err
		}
		checkpoints = append(checkpoints, cp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return checkpoints, nil
}

// WriteAllCheckpoints atomically replaces the checkpoint journal. Used when
// trimming a working log to the currently dirty files.
func (w *WorkingLog) WriteAllCheckpoints(checkpoints []Checkpoint) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("creating working log dir: %w", err)
	}
	var buf []byte
	for i := range checkpoints {
		record, err := json.Marshal(&checkpoints[i])
		if err != nil {
			return fmt.Errorf("encoding checkpoint: %w", err)
		}
		buf = append(buf, encodeRecord(record)...)
	}
	return writeFileAtomic(filepath.Join(w.dir, checkpointsFile), buf)
}

// WriteInitialAttributions atomically replaces the INITIAL file.
func (w *WorkingLog) WriteInitialAttributions(files map[string][]tracker.LineAttribution, prompts map[string]authorship.PromptRecord) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("creating working log dir: %w", err)
	}
	initial := InitialAttributions{Files: files, Prompts: prompts}
	if initial.Files == nil {
		initial.Files = make(map[string][]tracker.LineAttribution)
	}
	if initial.Prompts == nil {
		initial.Prompts = make(map[string]authorship.PromptRecord)
	}
	data, err := jsonutil.MarshalCanonical(initial)
	if err != nil {
		return fmt.Errorf("encoding initial attributions: %w", err)
	}
	return writeFileAtomic(filepath.Join(w.dir, initialFile), data)
}

// ReadInitialAttributions returns the INITIAL contents, or an empty value
// when the file is absent or corrupt.
func (w *WorkingLog) ReadInitialAttributions() InitialAttributions {
	data, err := os.ReadFile(filepath.Join(w.dir, initialFile))
	if err != nil {
		return EmptyInitial()
	}
	var initial InitialAttributions
	if err := json.Unmarshal(data, &initial); err != nil {
		logging.Warn(context.Background(), "discarding corrupt INITIAL file", "dir", w.dir, "error", err.Error())
		return EmptyInitial()
	}
	if initial.Files == nil {
		initial.Files = make(map[string][]tracker.LineAttribution)
	}
	if initial.Prompts == nil {
		initial.Prompts = make(map[string]authorship.PromptRecord)
	}
	return initial
}

// IsEmpty reports whether the working log holds neither checkpoints nor
// INITIAL attributions.
func (w *WorkingLog) IsEmpty() bool {
	checkpoints, err := w.ReadAllCheckpoints()
	if err == nil && len(checkpoints) > 0 {
		return false
	}
	return w.ReadInitialAttributions().IsEmpty()
}

// encodeRecord frames a record with a 4-byte big-endian length prefix.
func encodeRecord(data []byte) []byte {
	framed := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(framed, uint32(len(data)))
	copy(framed[4:], data)
	return framed
}

// appendJournalRecord appends one framed record with a single O_APPEND write.
func appendJournalRecord(path string, v any) error {
	record, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding journal record: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(encodeRecord(record)); err != nil {
		return fmt.Errorf("appending journal record: %w", err)
	}
	return f.Sync()
}

// readJournal streams framed records. A truncated or undecodable tail stops
// the read with a warning rather than an error: a crashed writer must not
// poison the whole journal.
func readJournal(path string, visit func(data []byte) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	var header [4]byte
	for {
		if _, err := io.ReadFull(f, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			logging.Warn(context.Background(), "journal has truncated length prefix", "path", path)
			return nil
		}
		length := binary.BigEndian.Uint32(header[:])
		record := make([]byte, length)
		if _, err := io.ReadFull(f, record); err != nil {
			logging.Warn(context.Background(), "journal has truncated record", "path", path)
			return nil
		}
		if err := visit(record); err != nil {
			logging.Warn(context.Background(), "discarding corrupt journal tail", "path", path, "error", err.Error())
			return nil
		}
	}
}

// writeFileAtomic writes through a temp file in the same directory and
// renames into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
