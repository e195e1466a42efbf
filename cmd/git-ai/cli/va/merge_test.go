package va

import (
	"testing"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/authorship"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/linerange"
	"github.com/gitaihq/git-ai/cmd/git-ai/cli/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(messages int, additions, deletions uint32) authorship.PromptRecord {
	msgs := make([]authorship.Message, messages)
	for i := range msgs {
		msgs[i] = authorship.UserMessage("m")
	}
	return authorship.PromptRecord{Messages: msgs, TotalAdditions: additions, TotalDeletions: deletions}
}

func TestMergePromptsPickingNewest(t *testing.T) {
	a := map[string]map[string]authorship.PromptRecord{
		"p1": {"commitA": record(1, 10, 2)},
	}
	b := map[string]map[string]authorship.PromptRecord{
		"p1": {"": record(3, 5, 1)},
		"p2": {"commitB": record(2, 7, 0)},
	}

	merged := MergePromptsPickingNewest(a, b)
	require.Contains(t, merged, "p1")
	require.Contains(t, merged, "p2")

	p1Commits := merged["p1"]
	require.Len(t, p1Commits, 1)
	// Commit key is preserved when any source has a non-empty one.
	rec, ok := p1Commits["commitA"]
	require.True(t, ok)
	// Newest record (3 messages) wins, totals accumulate across sources.
	assert.Len(t, rec.Messages, 3)
	assert.Equal(t, uint32(15), rec.TotalAdditions)
	assert.Equal(t, uint32(3), rec.TotalDeletions)
}

func TestMergePromptsUsesMergedKeyWhenNoCommit(t *testing.T) {
	a := map[string]map[string]authorship.PromptRecord{
		"p1": {"": record(1, 0, 0)},
	}
	merged := MergePromptsPickingNewest(a)
	_, ok := merged["p1"]["merged"]
	assert.True(t, ok)
}

func TestCalculateAndUpdatePromptMetrics(t *testing.T) {
	prompts := map[string]map[string]authorship.PromptRecord{
		"p1": {"": {}},
		"p2": {"": {}},
	}
	attributions := map[string]FileAttributions{
		"a.txt": {Lines: []tracker.LineAttribution{
			{StartLine: 1, EndLine: 3, AuthorID: "p1"},
			{StartLine: 4, EndLine: 4, AuthorID: authorship.HumanAuthor, Overrode: "p2"},
			{StartLine: 5, EndLine: 6, AuthorID: "p2"},
		}},
	}

	CalculateAndUpdatePromptMetrics(prompts, attributions,
		map[string]uint32{"p1": 9}, map[string]uint32{"p1": 4})

	p1 := prompts["p1"][""]
	assert.Equal(t, uint32(3), p1.AcceptedLines)
	assert.Equal(t, uint32(9), p1.TotalAdditions)
	assert.Equal(t, uint32(4), p1.TotalDeletions)
	assert.Equal(t, uint32(0), p1.OverridenLines)

	p2 := prompts["p2"][""]
	assert.Equal(t, uint32(2), p2.AcceptedLines)
	assert.Equal(t, uint32(1), p2.OverridenLines, "human override counts against the overridden prompt")
}

func TestFilterToCommits(t *testing.T) {
	v := New("base", 0)
	v.Prompts = map[string]map[string]authorship.PromptRecord{
		"pKeep": {"c1": record(1, 0, 0)},
		"pDrop": {"c2": record(1, 0, 0)},
	}
	content := "x\ny\nz\n"
	v.FileContents["a.txt"] = content
	v.Attributions["a.txt"] = FileAttributions{
		Chars: []tracker.Attribution{
			{Start: 0, End: 2, AuthorID: "pKeep", TS: 1},
			{Start: 2, End: 4, AuthorID: "pDrop", TS: 1},
			{Start: 4, End: 6, AuthorID: authorship.HumanAuthor, TS: 1},
		},
	}

	v.FilterToCommits(map[string]bool{"c1": true})

	assert.Contains(t, v.Prompts, "pKeep")
	assert.NotContains(t, v.Prompts, "pDrop")

	var authors []string
	for _, attr := range v.Attributions["a.txt"].Chars {
		authors = append(authors, attr.AuthorID)
	}
	assert.Contains(t, authors, "pKeep")
	assert.Contains(t, authors, authorship.HumanAuthor, "human attributions always survive")
	assert.NotContains(t, authors, "pDrop")
}

func TestFlattenPromptsNewest(t *testing.T) {
	prompts := map[string]map[string]authorship.PromptRecord{
		"p1": {
			"c1": record(1, 0, 0),
			"c2": record(4, 0, 0),
		},
	}
	flat := FlattenPromptsNewest(prompts)
	require.Contains(t, flat, "p1")
	assert.Len(t, flat["p1"].Messages, 4)
}

func TestMergeFavoringFirstPrimaryWins(t *testing.T) {
	content := "one\ntwo\nthree\n"

	primary := New("base", 100)
	primary.FileContents["a.txt"] = content
	primary.Attributions["a.txt"] = FileAttributions{
		Chars: []tracker.Attribution{{Start: 0, End: 4, AuthorID: "pPrimary", TS: 100}},
	}

	secondary := New("base", 50)
	secondary.FileContents["a.txt"] = content
	secondary.Attributions["a.txt"] = FileAttributions{
		Chars: []tracker.Attribution{{Start: 0, End: len(content), AuthorID: "pSecondary", TS: 50}},
	}

	merged := MergeFavoringFirst(primary, secondary, map[string]string{"a.txt": content})

	lines := merged.Attributions["a.txt"].Lines
	require.NotEmpty(t, lines)
	assert.Equal(t, "pPrimary", lines[0].AuthorID, "working-copy attribution wins line 1")

	var sawSecondary bool
	for _, la := range lines {
		if la.AuthorID == "pSecondary" {
			sawSecondary = true
		}
	}
	assert.True(t, sawSecondary, "blame fills the gap lines")
}

func TestMergeFavoringFirstSkipsFilesMissingFromFinalState(t *testing.T) {
	primary := New("base", 1)
	primary.FileContents["gone.txt"] = "x\n"
	primary.Attributions["gone.txt"] = FileAttributions{
		Chars: []tracker.Attribution{{Start: 0, End: 2, AuthorID: "p", TS: 1}},
	}
	secondary := New("base", 1)

	merged := MergeFavoringFirst(primary, secondary, map[string]string{})
	assert.Empty(t, merged.Attributions)
}

func TestGroupLinesByAuthor(t *testing.T) {
	lines := []tracker.LineAttribution{
		{StartLine: 1, EndLine: 2, AuthorID: "p1"},
		{StartLine: 3, EndLine: 3, AuthorID: "p1"},
		{StartLine: 9, EndLine: 9, AuthorID: authorship.HumanAuthor},
		{StartLine: 5, EndLine: 6, AuthorID: "p2"},
	}
	grouped := groupLinesByAuthor(lines)

	assert.Equal(t, []linerange.LineRange{linerange.Range(1, 3)}, grouped["p1"])
	assert.Equal(t, []linerange.LineRange{linerange.Range(5, 6)}, grouped["p2"])
	assert.NotContains(t, grouped, authorship.HumanAuthor)
}
