// Package tracker maintains character-interval attributions across edits.
//
// An Attribution claims a half-open byte span [Start, End) of a file for an
// author at a timestamp. The tracker transforms attributions from an old text
// to a new text using the edit diff: surviving bytes keep their original
// author, inserted bytes are claimed by the editing author.
package tracker

import (
	"sort"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// HumanAuthor is the sentinel author id for human-authored content. Human
// spans are tracked in memory but never persisted to authorship logs.
const HumanAuthor = "human"

// Attribution is a char-level authorship claim over [Start, End) byte offsets.
// Offsets are aligned to UTF-8 character boundaries.
type Attribution struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	AuthorID string `json:"author_id"`
	TS       int64  `json:"ts"`
}

// LineAttribution is the canonical line-level authorship claim.
// Overrode is set when a human claims a line previously authored by an AI
// prompt; the value is the prior AI author id.
type LineAttribution struct {
	StartLine uint32 `json:"start_line"`
	EndLine   uint32 `json:"end_line"`
	AuthorID  string `json:"author_id"`
	Overrode  string `json:"overrode,omitempty"`
}

// Tracker transforms attributions across content changes.
type Tracker struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// New returns a Tracker backed by a diff-match-patch instance.
func New() *Tracker {
	return &Tracker{dmp: diffmatchpatch.New()}
}

// UpdateAttributions transforms oldAttrs from oldText onto newText.
// Bytes present in both sides of the edit diff keep their original
// (author, ts); inserted bytes are attributed to newAuthor at ts. The result
// is sorted by (start, end), non-overlapping, and boundary-aligned.
func (t *Tracker) UpdateAttributions(oldText, newText string, oldAttrs []Attribution, newAuthor string, ts int64) []Attribution {
	if oldText == newText {
		return normalizeAttributions(oldAttrs, newText)
	}

	diffs := t.dmp.DiffMain(oldText, newText, false)

	var result []Attribution
	oldPos, newPos := 0, 0
	for _, d := range diffs {
		n := len(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			delta := newPos - oldPos
			for _, attr := range oldAttrs {
				start := max(attr.Start, oldPos)
				end := min(attr.End, oldPos+n)
				if start >= end {
					continue
				}
				result = append(result, Attribution{
					Start:    start + delta,
					End:      end + delta,
					AuthorID: attr.AuthorID,
					TS:       attr.TS,
				})
			}
			oldPos += n
			newPos += n
		case diffmatchpatch.DiffDelete:
			oldPos += n
		case diffmatchpatch.DiffInsert:
			result = append(result, Attribution{
				Start:    newPos,
				End:      newPos + n,
				AuthorID: newAuthor,
				TS:       ts,
			})
			newPos += n
		}
	}

	return normalizeAttributions(result, newText)
}

// normalizeAttributions clamps spans to UTF-8 boundaries, sorts by
// (start, end), and coalesces adjacent spans with identical author and ts.
func normalizeAttributions(attrs []Attribution, content string) []Attribution {
	if len(attrs) == 0 {
		return nil
	}

	clamped := make([]Attribution, 0, len(attrs))
	for _, attr := range attrs {
		start := FloorCharBoundary(content, attr.Start)
		end := CeilCharBoundary(content, attr.End)
		if start >= end {
			continue
		}
		attr.Start, attr.End = start, end
		clamped = append(clamped, attr)
	}

	sort.Slice(clamped, func(i, j int) bool {
		if clamped[i].Start != clamped[j].Start {
			return clamped[i].Start < clamped[j].Start
		}
		return clamped[i].End < clamped[j].End
	})

	var merged []Attribution
	for _, attr := range clamped {
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			if last.AuthorID == attr.AuthorID && last.TS == attr.TS && attr.Start <= last.End {
				if attr.End > last.End {
					last.End = attr.End
				}
				continue
			}
		}
		merged = append(merged, attr)
	}
	return merged
}

// FloorCharBoundary returns the largest UTF-8 boundary <= idx.
func FloorCharBoundary(content string, idx int) int {
	i := min(idx, len(content))
	for i > 0 && !utf8.RuneStart(content[i]) {
		i--
	}
	return i
}

// CeilCharBoundary returns the smallest UTF-8 boundary >= idx.
func CeilCharBoundary(content string, idx int) int {
	i := min(idx, len(content))
	for i < len(content) && !utf8.RuneStart(content[i]) {
		i++
	}
	return i
}

// lineOffsets returns the byte offset of the start of each 1-indexed line,
// with a final sentinel offset of len(content).
func lineOffsets(content string) []int {
	offsets := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	if len(content) > 0 && content[len(content)-1] == '\n' {
		// Trailing newline does not open a new line.
		offsets = offsets[:len(offsets)-1]
	}
	return append(offsets, len(content))
}

// LineAttributionsToAttributions converts line claims into char claims by
// scanning line starts of content. Lines beyond the content are dropped.
func LineAttributionsToAttributions(lineAttrs []LineAttribution, content string, ts int64) []Attribution {
	offsets := lineOffsets(content)
	lineCount := uint32(len(offsets) - 1)

	var attrs []Attribution
	for _, la := range lineAttrs {
		if la.StartLine == 0 || la.StartLine > lineCount {
			continue
		}
		endLine := min(la.EndLine, lineCount)
		start := offsets[la.StartLine-1]
		end := offsets[endLine]
		if start >= end {
			continue
		}
		attrs = append(attrs, Attribution{Start: start, End: end, AuthorID: la.AuthorID, TS: ts})
	}
	return normalizeAttributions(attrs, content)
}

// AttributionsToLineAttributions assigns each line to the author owning the
// majority of its bytes. Ties break to the earliest ts, then the
// lexicographically smallest author id. Unowned lines are skipped; runs of
// consecutive lines with the same author merge into one claim.
func AttributionsToLineAttributions(attrs []Attribution, content string) []LineAttribution {
	offsets := lineOffsets(content)
	lineCount := len(offsets) - 1
	if lineCount == 0 {
		return nil
	}

	type ownership struct {
		bytes int
		ts    int64
	}

	var result []LineAttribution
	var run *LineAttribution

	for line := 1; line <= lineCount; line++ {
		lineStart, lineEnd := offsets[line-1], offsets[line]

		owners := make(map[string]*ownership)
		for _, attr := range attrs {
			start := max(attr.Start, lineStart)
			end := min(attr.End, lineEnd)
			if start >= end {
				continue
			}
			o, ok := owners[attr.AuthorID]
			if !ok {
				o = &ownership{ts: attr.TS}
				owners[attr.AuthorID] = o
			}
			o.bytes += end - start
			if attr.TS < o.ts {
				o.ts = attr.TS
			}
		}

		var winner string
		var winning *ownership
		for author, o := range owners {
			switch {
			case winning == nil,
				o.bytes > winning.bytes,
				o.bytes == winning.bytes && o.ts < winning.ts,
				o.bytes == winning.bytes && o.ts == winning.ts && author < winner:
				winner, winning = author, o
			}
		}

		if winning == nil {
			run = nil
			continue
		}

		if run != nil && run.AuthorID == winner && run.EndLine == uint32(line-1) {
			run.EndLine = uint32(line)
			continue
		}
		result = append(result, LineAttribution{StartLine: uint32(line), EndLine: uint32(line), AuthorID: winner})
		run = &result[len(result)-1]
	}

	return result
}

// MergeCharAttributions merges two attribution sets over the same content,
// with primary winning every overlap and secondary filling gaps on character
// boundaries.
func MergeCharAttributions(primary, secondary []Attribution, content string) []Attribution {
	if len(content) == 0 {
		return append([]Attribution(nil), primary...)
	}

	covered := make([]bool, len(content))
	for _, attr := range primary {
		for i := attr.Start; i < min(attr.End, len(content)); i++ {
			covered[i] = true
		}
	}

	result := append([]Attribution(nil), primary...)

	for _, attr := range secondary {
		safeStart := FloorCharBoundary(content, attr.Start)
		safeEnd := CeilCharBoundary(content, attr.End)
		if safeStart >= safeEnd {
			continue
		}

		rangeStart := -1
		i := safeStart
		for i < safeEnd {
			_, size := utf8.DecodeRuneInString(content[i:])
			if size == 0 {
				break
			}
			charCovered := false
			for j := i; j < min(i+size, len(content)); j++ {
				if covered[j] {
					charCovered = true
					break
				}
			}
			if charCovered {
				if rangeStart >= 0 && rangeStart < i {
					result = append(result, Attribution{Start: rangeStart, End: i, AuthorID: attr.AuthorID, TS: attr.TS})
				}
				rangeStart = -1
			} else if rangeStart < 0 {
				rangeStart = i
			}
			i += size
		}
		if rangeStart >= 0 && rangeStart < safeEnd {
			result = append(result, Attribution{Start: rangeStart, End: safeEnd, AuthorID: attr.AuthorID, TS: attr.TS})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Start != result[j].Start {
			return result[i].Start < result[j].Start
		}
		return result[i].End < result[j].End
	})
	return result
}
