package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAttributionsNoChange(t *testing.T) {
	tr := New()
	content := "line one\nline two\n"
	attrs := []Attribution{{Start: 0, End: 9, AuthorID: "P#abc", TS: 100}}

	got := tr.UpdateAttributions(content, content, attrs, "P#new", 200)
	assert.Equal(t, attrs, got)
}

func TestUpdateAttributionsPureInsertion(t *testing.T) {
	tr := New()
	oldText := "aaaa\ncccc\n"
	newText := "aaaa\nbbbb\ncccc\n"
	attrs := []Attribution{
		{Start: 0, End: 5, AuthorID: "P#a", TS: 10},
		{Start: 5, End: 10, AuthorID: "P#c", TS: 10},
	}

	got := tr.UpdateAttributions(oldText, newText, attrs, "P#b", 20)

	// The inserted span belongs to the new author; surviving spans keep their
	// authors and timestamps, with the tail shifted past the insertion.
	var total int
	for _, a := range got {
		total += a.End - a.Start
		switch a.AuthorID {
		case "P#a", "P#c":
			assert.Equal(t, int64(10), a.TS)
		case "P#b":
			assert.Equal(t, int64(20), a.TS)
		default:
			t.Fatalf("unexpected author %q", a.AuthorID)
		}
	}
	assert.Equal(t, len(newText), total)

	lines := AttributionsToLineAttributions(got, newText)
	require.Len(t, lines, 3)
	assert.Equal(t, "P#a", lines[0].AuthorID)
	assert.Equal(t, "P#b", lines[1].AuthorID)
	assert.Equal(t, uint32(2), lines[1].StartLine)
	assert.Equal(t, "P#c", lines[2].AuthorID)
	assert.Equal(t, uint32(3), lines[2].StartLine)
}

func TestUpdateAttributionsDeletionDropsSpan(t *testing.T) {
	tr := New()
	oldText := "keep\ndrop\nkeep2\n"
	newText := "keep\nkeep2\n"
	attrs := []Attribution{{Start: 5, End: 10, AuthorID: "P#gone", TS: 5}}

	got := tr.UpdateAttributions(oldText, newText, attrs, HumanAuthor, 50)
	for _, a := range got {
		assert.NotEqual(t, "P#gone", a.AuthorID)
	}
}

func TestUpdateAttributionsResultSortedNonOverlapping(t *testing.T) {
	tr := New()
	oldText := "one\ntwo\nthree\n"
	newText := "one\nTWO!\nthree\nfour\n"
	attrs := []Attribution{{Start: 0, End: len(oldText), AuthorID: "P#x", TS: 1}}

	got := tr.UpdateAttributions(oldText, newText, attrs, "P#y", 2)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].End, got[i].Start, "attributions must not overlap")
	}
}

func TestUpdateAttributionsUTF8Boundaries(t *testing.T) {
	tr := New()
	oldText := "héllo\n"
	newText := "héllo wörld\n"
	attrs := []Attribution{{Start: 0, End: 6, AuthorID: "P#u", TS: 1}}

	got := tr.UpdateAttributions(oldText, newText, attrs, "P#v", 2)
	for _, a := range got {
		assert.Equal(t, a.Start, FloorCharBoundary(newText, a.Start), "start on boundary")
		assert.Equal(t, a.End, CeilCharBoundary(newText, a.End), "end on boundary")
	}
}

func TestCharBoundaryHelpers(t *testing.T) {
	s := "aé" // 'é' occupies bytes 1..3
	assert.Equal(t, 1, FloorCharBoundary(s, 2))
	assert.Equal(t, 3, CeilCharBoundary(s, 2))
	assert.Equal(t, 3, FloorCharBoundary(s, 99))
	assert.Equal(t, 0, CeilCharBoundary(s, 0))
}

func TestLineAttributionsToAttributions(t *testing.T) {
	content := "l1\nl2\nl3\n"
	lineAttrs := []LineAttribution{
		{StartLine: 1, EndLine: 2, AuthorID: "P#a"},
		{StartLine: 3, EndLine: 3, AuthorID: "P#b"},
	}

	attrs := LineAttributionsToAttributions(lineAttrs, content, 7)
	require.Len(t, attrs, 2)
	assert.Equal(t, Attribution{Start: 0, End: 6, AuthorID: "P#a", TS: 7}, attrs[0])
	assert.Equal(t, Attribution{Start: 6, End: 9, AuthorID: "P#b", TS: 7}, attrs[1])
}

func TestLineAttributionsToAttributionsOutOfRange(t *testing.T) {
	content := "only\n"
	lineAttrs := []LineAttribution{
		{StartLine: 1, EndLine: 9, AuthorID: "P#a"},
		{StartLine: 5, EndLine: 6, AuthorID: "P#b"},
	}

	attrs := LineAttributionsToAttributions(lineAttrs, content, 1)
	require.Len(t, attrs, 1)
	assert.Equal(t, "P#a", attrs[0].AuthorID)
	assert.Equal(t, len(content), attrs[0].End, "claims clamp to the content")
}

func TestAttributionsToLineAttributionsMajority(t *testing.T) {
	content := "aaaaaaaa\n" // 9 bytes
	attrs := []Attribution{
		{Start: 0, End: 3, AuthorID: "P#minor", TS: 1},
		{Start: 3, End: 9, AuthorID: "P#major", TS: 2},
	}

	lines := AttributionsToLineAttributions(attrs, content)
	require.Len(t, lines, 1)
	assert.Equal(t, "P#major", lines[0].AuthorID)
}

func TestAttributionsToLineAttributionsTieBreak(t *testing.T) {
	content := "aaaabbbb\n" // two authors own 4 bytes each (newline unowned)
	attrs := []Attribution{
		{Start: 0, End: 4, AuthorID: "P#zzz", TS: 1},
		{Start: 4, End: 8, AuthorID: "P#aaa", TS: 2},
	}

	lines := AttributionsToLineAttributions(attrs, content)
	require.Len(t, lines, 1)
	assert.Equal(t, "P#zzz", lines[0].AuthorID, "earliest ts wins ties")

	attrs[1].TS = 1
	lines = AttributionsToLineAttributions(attrs, content)
	require.Len(t, lines, 1)
	assert.Equal(t, "P#aaa", lines[0].AuthorID, "equal ts falls back to lexicographic author")
}

func TestAttributionsToLineAttributionsMergesRuns(t *testing.T) {
	content := "l1\nl2\nl3\nl4\n"
	attrs := []Attribution{{Start: 0, End: 9, AuthorID: "P#a", TS: 1}}

	lines := AttributionsToLineAttributions(attrs, content)
	require.Len(t, lines, 1)
	assert.Equal(t, uint32(1), lines[0].StartLine)
	assert.Equal(t, uint32(3), lines[0].EndLine)
}

func TestMergeCharAttributionsPrimaryWins(t *testing.T) {
	content := "0123456789"
	primary := []Attribution{{Start: 2, End: 6, AuthorID: "P#p", TS: 1}}
	secondary := []Attribution{{Start: 0, End: 10, AuthorID: "P#s", TS: 2}}

	merged := MergeCharAttributions(primary, secondary, content)

	owners := make(map[int]string)
	for _, a := range merged {
		for i := a.Start; i < a.End; i++ {
			if _, taken := owners[i]; !taken || a.AuthorID == "P#p" {
				owners[i] = a.AuthorID
			}
		}
	}
	for i := 2; i < 6; i++ {
		assert.Equal(t, "P#p", owners[i], "byte %d", i)
	}
	for _, i := range []int{0, 1, 6, 9} {
		assert.Equal(t, "P#s", owners[i], "byte %d", i)
	}
}

func TestMergeCharAttributionsEmptyContent(t *testing.T) {
	primary := []Attribution{{Start: 0, End: 4, AuthorID: "P#p", TS: 1}}
	assert.Equal(t, primary, MergeCharAttributions(primary, nil, ""))
}

func TestLineOffsetsNoTrailingNewline(t *testing.T) {
	content := "a\nb"
	lines := AttributionsToLineAttributions([]Attribution{{Start: 0, End: 3, AuthorID: "P#a", TS: 1}}, content)
	require.Len(t, lines, 1)
	assert.Equal(t, uint32(1), lines[0].StartLine)
	assert.Equal(t, uint32(2), lines[0].EndLine)
}
