// Package linerange implements the ordered line-range algebra used by
// attestation entries. Lines are 1-indexed. A range is canonical when
// Start < End; a single line is represented with Start == End and serialized
// as the Single variant.
package linerange

import (
	"encoding/json"
	"fmt"
)

// LineRange is a single line or an inclusive range of lines.
// The zero value is not a valid range.
type LineRange struct {
	Start uint32
	End   uint32
}

// Single returns a canonical one-line range.
func Single(line uint32) LineRange {
	return LineRange{Start: line, End: line}
}

// Range returns a canonical range. Range(a, a) collapses to Single(a).
func Range(start, end uint32) LineRange {
	return LineRange{Start: start, End: end}
}

// IsSingle reports whether the range covers exactly one line.
func (r LineRange) IsSingle() bool {
	return r.Start == r.End
}

// Contains reports whether the range covers the given line.
func (r LineRange) Contains(line uint32) bool {
	return line >= r.Start && line <= r.End
}

// Overlaps reports whether two ranges share any line.
func (r LineRange) Overlaps(other LineRange) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// Expand returns every line covered by the range, in ascending order.
func (r LineRange) Expand() []uint32 {
	lines := make([]uint32, 0, r.End-r.Start+1)
	for l := r.Start; l <= r.End; l++ {
		lines = append(lines, l)
	}
	return lines
}

// Len returns the number of lines covered.
func (r LineRange) Len() uint32 {
	return r.End - r.Start + 1
}

// Shift moves any endpoint at or past insertionPoint by offset. It returns
// false when the shifted range would cross line zero or invert.
func (r LineRange) Shift(insertionPoint uint32, offset int32) (LineRange, bool) {
	apply := func(line uint32) (uint32, bool) {
		if line < insertionPoint {
			return line, true
		}
		shifted := int64(line) + int64(offset)
		if shifted < 0 {
			return 0, false
		}
		return uint32(shifted), true
	}

	start, ok := apply(r.Start)
	if !ok {
		return LineRange{}, false
	}
	end, ok := apply(r.End)
	if !ok {
		return LineRange{}, false
	}
	if start > end {
		return LineRange{}, false
	}
	return LineRange{Start: start, End: end}, true
}

// Remove yields the set difference r \ other as at most two sub-ranges.
func (r LineRange) Remove(other LineRange) []LineRange {
	if !r.Overlaps(other) {
		return []LineRange{r}
	}

	var out []LineRange
	if r.Start < other.Start {
		out = append(out, LineRange{Start: r.Start, End: other.Start - 1})
	}
	if r.End > other.End {
		out = append(out, LineRange{Start: other.End + 1, End: r.End})
	}
	return out
}

func (r LineRange) String() string {
	if r.IsSingle() {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// CompressLines converts a sorted, unique list of line numbers into canonical
// ranges: adjacent lines collapse into one range, isolated lines stay single.
func CompressLines(lines []uint32) []LineRange {
	if len(lines) == 0 {
		return nil
	}

	var ranges []LineRange
	start, end := lines[0], lines[0]
	for _, line := range lines[1:] {
		if line == end+1 {
			end = line
			continue
		}
		ranges = append(ranges, LineRange{Start: start, End: end})
		start, end = line, line
	}
	return append(ranges, LineRange{Start: start, End: end})
}

// MergeIntervals sorts (start, end) pairs by (start, end) and merges adjacent
// or touching intervals (start <= previous end + 1) into canonical ranges.
// This is the serialization path for attestation entries, where the same
// author may contribute several overlapping spans.
func MergeIntervals(ranges []LineRange) []LineRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]LineRange, len(ranges))
	copy(sorted, ranges)
	sortRanges(sorted)

	merged := sorted[:1]
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

func sortRanges(ranges []LineRange) {
	// Insertion sort keeps this allocation-free; attestation entries are small.
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0; j-- {
			a, b := ranges[j-1], ranges[j]
			if a.Start < b.Start || (a.Start == b.Start && a.End <= b.End) {
				break
			}
			ranges[j-1], ranges[j] = b, a
		}
	}
}

// lineRangeJSON mirrors the on-disk tagged form: {"Single":n} or {"Range":[a,b]}.
type lineRangeJSON struct {
	Single *uint32   `json:"Single,omitempty"`
	Range  *[]uint32 `json:"Range,omitempty"`
}

// MarshalJSON serializes the canonical tagged form.
func (r LineRange) MarshalJSON() ([]byte, error) {
	if r.IsSingle() {
		line := r.Start
		return json.Marshal(lineRangeJSON{Single: &line})
	}
	pair := []uint32{r.Start, r.End}
	return json.Marshal(lineRangeJSON{Range: &pair})
}

// UnmarshalJSON accepts both tagged variants and canonicalizes Range(a,a)
// back to Single(a).
func (r *LineRange) UnmarshalJSON(data []byte) error {
	var tagged lineRangeJSON
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	switch {
	case tagged.Single != nil:
		*r = Single(*tagged.Single)
	case tagged.Range != nil:
		if len(*tagged.Range) != 2 {
			return fmt.Errorf("line range must have exactly two endpoints, got %d", len(*tagged.Range))
		}
		start, end := (*tagged.Range)[0], (*tagged.Range)[1]
		if start > end {
			return fmt.Errorf("inverted line range [%d, %d]", start, end)
		}
		*r = LineRange{Start: start, End: end}
	default:
		return fmt.Errorf("line range missing Single or Range variant")
	}
	return nil
}
