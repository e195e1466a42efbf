package authorship

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/jsonutil"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/linerange"
)

// SchemaVersion is the authorship log schema this build reads and writes.
const SchemaVersion = 3

// ErrSchemaVersionMismatch is returned when a note carries a schema version
// other than SchemaVersion. Callers degrade to "no attribution" for that
// commit.
var ErrSchemaVersionMismatch = errors.New("unsupported authorship log schema version")

// AttestationEntry claims line ranges for one author within a file.
type AttestationEntry struct {
	Hash       string                `json:"hash"`
	LineRanges []linerange.LineRange `json:"line_ranges"`
}

// FileAttestation groups the attestation entries of one file.
type FileAttestation struct {
	FilePath string             `json:"file_path"`
	Entries  []AttestationEntry `json:"entries"`
}

// Metadata carries the log's base commit and prompts table.
type Metadata struct {
	SchemaVersion int                     `json:"schema_version"`
	BaseCommitSha string                  `json:"base_commit_sha"`
	Prompts       map[string]PromptRecord `json:"prompts"`
}

// AuthorshipLog is the canonical record of all non-human attributions for a
// single commit.
//
// Invariants: every attestation author id has a prompts entry (the human
// sentinel is never stored), and line ranges are canonical (sorted, merged,
// no degenerate ranges).
type AuthorshipLog struct {
	Metadata     Metadata          `json:"metadata"`
	Attestations []FileAttestation `json:"attestations"`
}

// NewLog returns an empty log at the current schema version.
func NewLog() *AuthorshipLog {
	return &AuthorshipLog{
		Metadata: Metadata{
			SchemaVersion: SchemaVersion,
			Prompts:       make(map[string]PromptRecord),
		},
	}
}

// GetOrCreateFile returns the attestation bucket for a file, creating it in
// path order if absent.
func (l *AuthorshipLog) GetOrCreateFile(filePath string) *FileAttestation {
	for i := range l.Attestations {
		if l.Attestations[i].FilePath == filePath {
			return &l.Attestations[i]
		}
	}
	l.Attestations = append(l.Attestations, FileAttestation{FilePath: filePath})
	sort.Slice(l.Attestations, func(i, j int) bool {
		return l.Attestations[i].FilePath < l.Attestations[j].FilePath
	})
	for i := range l.Attestations {
		if l.Attestations[i].FilePath == filePath {
			return &l.Attestations[i]
		}
	}
	return nil
}

// AddEntry appends an attestation entry after canonicalizing its ranges.
func (f *FileAttestation) AddEntry(entry AttestationEntry) {
	entry.LineRanges = linerange.MergeIntervals(entry.LineRanges)
	f.Entries = append(f.Entries, entry)
	sort.Slice(f.Entries, func(i, j int) bool {
		return f.Entries[i].Hash < f.Entries[j].Hash
	})
}

// EntryFor returns the entry for an author id, if present.
func (f *FileAttestation) EntryFor(authorID string) (AttestationEntry, bool) {
	for _, e := range f.Entries {
		if e.Hash == authorID {
			return e, true
		}
	}
	return AttestationEntry{}, false
}

// Files lists the attested file paths in order.
func (l *AuthorshipLog) Files() []string {
	files := make([]string, 0, len(l.Attestations))
	for _, a := range l.Attestations {
		files = append(files, a.FilePath)
	}
	return files
}

// IsEmpty reports whether the log attests nothing.
func (l *AuthorshipLog) IsEmpty() bool {
	return len(l.Attestations) == 0
}

// Serialize produces the canonical JSON form stored in notes.
func (l *AuthorshipLog) Serialize() (string, error) {
	if l.Metadata.Prompts == nil {
		l.Metadata.Prompts = make(map[string]PromptRecord)
	}
	data, err := jsonutil.MarshalCanonical(l)
	if err != nil {
		return "", fmt.Errorf("serializing authorship log: %w", err)
	}
	return string(data), nil
}

// Deserialize parses an authorship log, rejecting unknown schema versions.
// The stored base_commit_sha is authoritative only for prompts; callers
// overwrite it with the commit where the note was found.
func Deserialize(content string) (*AuthorshipLog, error) {
	var log AuthorshipLog
	if err := json.Unmarshal([]byte(content), &log); err != nil {
		return nil, fmt.Errorf("parsing authorship log: %w", err)
	}
	if log.Metadata.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d",
			ErrSchemaVersionMismatch, log.Metadata.SchemaVersion, SchemaVersion)
	}
	if log.Metadata.Prompts == nil {
		log.Metadata.Prompts = make(map[string]PromptRecord)
	}
	return &log, nil
}
