package gitx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHunkHeader(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		want     []uint32
		pure     bool
		parsable bool
	}{
		{"modification", "@@ -3,2 +3,2 @@ context", []uint32{3, 4}, false, true},
		{"pure insertion", "@@ -2,0 +3,4 @@", []uint32{3, 4, 5, 6}, true, true},
		{"missing counts default to one", "@@ -5 +7 @@", []uint32{7}, false, true},
		{"deletion only", "@@ -4,3 +4,0 @@", nil, false, true},
		{"garbage", "@@ nonsense", nil, false, false},
		{"not a hunk", "+++ b/a.txt", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, pure, ok := parseHunkHeader(tt.line)
			assert.Equal(t, tt.parsable, ok)
			assert.Equal(t, tt.want, added)
			assert.Equal(t, tt.pure, pure)
		})
	}
}

const sampleDiff = `diff --git a/a.txt b/a.txt
index 000000..111111 100644
--- a/a.txt
+++ b/a.txt
@@ -1,0 +2,2 @@
+inserted one
+inserted two
@@ -5,1 +7,1 @@
+modified
diff --git a/b.txt b/b.txt
--- a/b.txt
+++ b/b.txt
@@ -0,0 +1,3 @@
+new file line 1
+new file line 2
+new file line 3
`

func TestParseDiffAddedLines(t *testing.T) {
	all, pure := parseDiffAddedLines(sampleDiff)

	assert.Equal(t, []uint32{2, 3, 7}, all["a.txt"])
	assert.Equal(t, []uint32{2, 3}, pure["a.txt"], "only the old_count=0 hunk is a pure insertion")
	assert.Equal(t, []uint32{1, 2, 3}, all["b.txt"])
	assert.Equal(t, []uint32{1, 2, 3}, pure["b.txt"])
}

func TestParseDiffDeletedFile(t *testing.T) {
	diff := `diff --git a/gone.txt b/gone.txt
--- a/gone.txt
+++ /dev/null
@@ -1,3 +0,0 @@
`
	all, pure := parseDiffAddedLines(diff)
	assert.Empty(t, all)
	assert.Empty(t, pure)
}

func TestParseDiffWorkdirPrefix(t *testing.T) {
	diff := `diff --git i/c.txt w/c.txt
--- i/c.txt
+++ w/c.txt
@@ -1,1 +1,2 @@
+x
+y
`
	all, _ := parseDiffAddedLines(diff)
	assert.Equal(t, []uint32{1, 2}, all["c.txt"])
}

func TestParseDiffQuotedPath(t *testing.T) {
	diff := "diff --git \"a/\\344\\270\\255\\346\\226\\207.txt\" \"b/\\344\\270\\255\\346\\226\\207.txt\"\n" +
		"--- \"a/\\344\\270\\255\\346\\226\\207.txt\"\n" +
		"+++ \"b/\\344\\270\\255\\346\\226\\207.txt\"\n" +
		"@@ -0,0 +1,1 @@\n+hello\n"
	all, _ := parseDiffAddedLines(diff)
	assert.Equal(t, []uint32{1}, all["中文.txt"])
}

func TestUnescapeGitPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple.txt", "simple.txt"},
		{`"path with spaces.txt"`, "path with spaces.txt"},
		{`"\344\270\255\346\226\207.txt"`, "中文.txt"},
		{`"tab\there"`, "tab\there"},
		{`"newline\nhere"`, "newline\nhere"},
		{`"quote\"here"`, `quote"here`},
		{`"back\\slash"`, `back\slash`},
		{`"unknown\qescape"`, `unknown\qescape`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UnescapeGitPath(tt.in), "input %q", tt.in)
	}
}

func TestParseBatchCheckBlobOid(t *testing.T) {
	sha1 := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa blob 10"
	sha256 := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb blob 20"

	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", parseBatchCheckBlobOid(sha1))
	assert.Equal(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", parseBatchCheckBlobOid(sha256))
	assert.Empty(t, parseBatchCheckBlobOid("cccccccc blob 10"), "short oid rejected")
	assert.Empty(t, parseBatchCheckBlobOid("refs/notes/ai:abc missing"), "missing objects rejected")
	assert.Empty(t, parseBatchCheckBlobOid(""))
}

func TestNotesPathForObject(t *testing.T) {
	assert.Equal(t, "ab/cdef", notesPathForObject("abcdef"))
	assert.Equal(t, "ab", notesPathForObject("ab"))
}

func TestBuildFastImportScriptContentMode(t *testing.T) {
	entries := []NoteEntry{
		{CommitSha: "aabbccdd", Content: `{"note":1}`},
	}
	script := string(buildFastImportScript("tip123", entries, false, 1700000000))

	assert.Contains(t, script, "blob\nmark :1\ndata 10\n{\"note\":1}\n")
	assert.Contains(t, script, "commit refs/notes/ai\n")
	assert.Contains(t, script, "committer git-ai <git-ai@local> 1700000000 +0000\n")
	assert.Contains(t, script, "from tip123\n")
	assert.Contains(t, script, "D aabbccdd\n")
	assert.Contains(t, script, "D aa/bbccdd\n")
	assert.Contains(t, script, "M 100644 :1 aa/bbccdd\n")
}

func TestBuildFastImportScriptBlobReuse(t *testing.T) {
	entries := []NoteEntry{{CommitSha: "ffee0011", Content: "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"}}
	script := string(buildFastImportScript("", entries, true, 42))

	assert.NotContains(t, script, "mark :")
	assert.NotContains(t, script, "from ", "no parent when the notes ref does not exist yet")
	assert.Contains(t, script, "M 100644 deadbeefdeadbeefdeadbeefdeadbeefdeadbeef ff/ee0011\n")
}

func TestDedupeNoteEntriesKeepsLast(t *testing.T) {
	entries := []NoteEntry{
		{CommitSha: "c1", Content: "old"},
		{CommitSha: "c2", Content: "keep"},
		{CommitSha: "c1", Content: "new"},
	}
	deduped := dedupeNoteEntries(entries)
	require.Len(t, deduped, 2)
	assert.Equal(t, "c2", deduped[0].CommitSha)
	assert.Equal(t, "c1", deduped[1].CommitSha)
	assert.Equal(t, "new", deduped[1].Content)
}

func TestAppendPathspecs(t *testing.T) {
	args, postFilter, empty := appendPathspecs([]string{"diff"}, nil)
	assert.Equal(t, []string{"diff"}, args)
	assert.False(t, postFilter)
	assert.False(t, empty)

	_, _, empty = appendPathspecs([]string{"diff"}, map[string]bool{})
	assert.True(t, empty, "explicit empty pathspec set means no files, not full repo")

	args, postFilter, _ = appendPathspecs([]string{"diff"}, map[string]bool{"b.txt": true, "a.txt": true})
	assert.Equal(t, []string{"diff", "--", "a.txt", "b.txt"}, args)
	assert.False(t, postFilter)

	big := make(map[string]bool)
	for i := 0; i < maxPathspecArgs+1; i++ {
		big[string(rune('a'+i%26))+string(rune('0'+i%10))+"x"+string(rune('a'+i/26))] = true
	}
	// Over the threshold the diff runs unrestricted and callers post-filter.
	if len(big) > maxPathspecArgs {
		args, postFilter, _ = appendPathspecs([]string{"diff"}, big)
		assert.Equal(t, []string{"diff"}, args)
		assert.True(t, postFilter)
	}
}
