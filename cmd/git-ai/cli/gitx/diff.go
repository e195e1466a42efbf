package gitx

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxPathspecArgs bounds how many pathspecs are passed on the command line.
// Above this the diff runs unrestricted and the result is post-filtered.
const maxPathspecArgs = 100

// DiffAddedLines returns added line numbers (new-side coordinates) per file
// between two revisions.
func (r *Repo) DiffAddedLines(fromRef, toRef string, pathspecs map[string]bool) (map[string][]uint32, error) {
	args := []string{"diff", "-U0", "--no-color", fromRef, toRef}
	args, postFilter, empty := appendPathspecs(args, pathspecs)
	if empty {
		return map[string][]uint32{}, nil
	}

	out, err := r.Git(args...)
	if err != nil {
		return nil, err
	}

	added, _ := parseDiffAddedLines(out)
	if postFilter {
		retainPaths(added, pathspecs)
	}
	return added, nil
}

// DiffWorkdirAddedLinesWithInsertions diffs the working directory against a
// revision and returns (all added lines, the pure-insertion subset) per file.
// A pure insertion is a hunk whose old-side count is zero: new lines were
// inserted without replacing existing ones.
func (r *Repo) DiffWorkdirAddedLinesWithInsertions(fromRef string, pathspecs map[string]bool) (map[string][]uint32, map[string][]uint32, error) {
	args := []string{"diff", "-U0", "--no-color", fromRef}
	args, postFilter, empty := appendPathspecs(args, pathspecs)
	if empty {
		return map[string][]uint32{}, map[string][]uint32{}, nil
	}

	out, err := r.Git(args...)
	if err != nil {
		return nil, nil, err
	}

	added, pure := parseDiffAddedLines(out)
	if postFilter {
		retainPaths(added, pathspecs)
		retainPaths(pure, pathspecs)
	}
	return added, pure, nil
}

// DiffChangedFiles lists paths that differ between two revisions.
func (r *Repo) DiffChangedFiles(fromRef, toRef string) ([]string, error) {
	out, err := r.Git("diff", "--name-only", "-z", fromRef, toRef)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, chunk := range strings.Split(out, "\x00") {
		if chunk != "" {
			files = append(files, chunk)
		}
	}
	return files, nil
}

func appendPathspecs(args []string, pathspecs map[string]bool) (out []string, postFilter, empty bool) {
	if pathspecs == nil {
		return args, false, false
	}
	if len(pathspecs) == 0 {
		return args, false, true
	}
	if len(pathspecs) > maxPathspecArgs {
		return args, true, false
	}
	sorted := make([]string, 0, len(pathspecs))
	for path := range pathspecs {
		sorted = append(sorted, path)
	}
	sort.Strings(sorted)
	args = append(args, "--")
	args = append(args, sorted...)
	return args, false, false
}

func retainPaths(m map[string][]uint32, keep map[string]bool) {
	for path := range m {
		if !keep[path] {
			delete(m, path)
		}
	}
}

// parseDiffAddedLines extracts added line numbers per file from -U0 diff
// output, along with the pure-insertion subset.
func parseDiffAddedLines(diffOutput string) (all, pureInsertions map[string][]uint32) {
	all = make(map[string][]uint32)
	pureInsertions = make(map[string][]uint32)
	var currentFile string
	haveFile := false

	for _, line := range strings.Split(diffOutput, "\n") {
		switch {
		case strings.HasPrefix(line, "+++ b/"):
			// Git appends a tab after filenames containing spaces.
			currentFile = UnescapeGitPath(strings.TrimRight(strings.TrimPrefix(line, "+++ b/"), "\t"))
			haveFile = true
		case strings.HasPrefix(line, "+++ w/"):
			currentFile = UnescapeGitPath(strings.TrimRight(strings.TrimPrefix(line, "+++ w/"), "\t"))
			haveFile = true
		case strings.HasPrefix(line, `+++ "`):
			// Quoted path with C-style octal escapes; strip the b/ or w/
			// prefix after unescaping.
			unescaped := UnescapeGitPath(strings.TrimPrefix(line, "+++ "))
			if stripped, ok := strings.CutPrefix(unescaped, "b/"); ok {
				unescaped = stripped
			} else if stripped, ok := strings.CutPrefix(unescaped, "w/"); ok {
				unescaped = stripped
			}
			currentFile = unescaped
			haveFile = true
		case strings.HasPrefix(line, "+++ /dev/null"):
			haveFile = false
		case strings.HasPrefix(line, "@@ "):
			if !haveFile {
				continue
			}
			added, pure, ok := parseHunkHeader(line)
			if !ok {
				continue
			}
			all[currentFile] = append(all[currentFile], added...)
			if pure {
				pureInsertions[currentFile] = append(pureInsertions[currentFile], added...)
			}
		}
	}

	for _, m := range []map[string][]uint32{all, pureInsertions} {
		for file, lines := range m {
			sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })
			m[file] = dedupeSorted(lines)
		}
		for file, lines := range m {
			if len(lines) == 0 {
				delete(m, file)
			}
		}
	}
	return all, pureInsertions
}

func dedupeSorted(lines []uint32) []uint32 {
	if len(lines) < 2 {
		return lines
	}
	out := lines[:1]
	for _, l := range lines[1:] {
		if l != out[len(out)-1] {
			out = append(out, l)
		}
	}
	return out
}

// parseHunkHeader parses "@@ -old_start[,old_count] +new_start[,new_count] @@"
// and returns the added new-side line numbers plus whether the hunk is a pure
// insertion (old_count == 0). Missing counts default to 1.
func parseHunkHeader(line string) (added []uint32, pureInsertion, ok bool) {
	parts := strings.Split(line, "@@")
	if len(parts) < 2 {
		return nil, false, false
	}
	ranges := strings.Fields(strings.TrimSpace(parts[1]))
	if len(ranges) < 2 {
		return nil, false, false
	}

	var oldSpec, newSpec string
	for _, r := range ranges {
		if strings.HasPrefix(r, "-") && oldSpec == "" {
			oldSpec = strings.TrimPrefix(r, "-")
		}
		if strings.HasPrefix(r, "+") && newSpec == "" {
			newSpec = strings.TrimPrefix(r, "+")
		}
	}
	if oldSpec == "" || newSpec == "" {
		return nil, false, false
	}

	oldCount := uint32(1)
	if _, count, found := strings.Cut(oldSpec, ","); found {
		n, err := strconv.ParseUint(count, 10, 32)
		if err != nil {
			return nil, false, false
		}
		oldCount = uint32(n)
	}

	startStr, countStr, hasCount := strings.Cut(newSpec, ",")
	start64, err := strconv.ParseUint(startStr, 10, 32)
	if err != nil {
		return nil, false, false
	}
	newCount := uint32(1)
	if hasCount {
		n, err := strconv.ParseUint(countStr, 10, 32)
		if err != nil {
			return nil, false, false
		}
		newCount = uint32(n)
	}

	if newCount == 0 {
		// Deletion-only hunk.
		return nil, false, true
	}

	start := uint32(start64)
	for l := start; l < start+newCount; l++ {
		added = append(added, l)
	}
	return added, oldCount == 0, true
}

// UnescapeGitPath reverses git's C-style path quoting. Quoted paths carry
// octal escapes for non-ASCII bytes ("\344\270\255..."); unquoted paths are
// returned as-is. Invalid UTF-8 is reconstructed lossily.
func UnescapeGitPath(path string) string {
	if !strings.HasPrefix(path, `"`) || !strings.HasSuffix(path, `"`) || len(path) < 2 {
		return path
	}
	inner := path[1 : len(path)-1]

	var bytesOut []byte
	for i := 0; i < len(inner); {
		c := inner[i]
		if c != '\\' {
			bytesOut = append(bytesOut, c)
			i++
			continue
		}
		i++
		if i >= len(inner) {
			bytesOut = append(bytesOut, '\\')
			break
		}
		switch next := inner[i]; next {
		case '\\':
			bytesOut = append(bytesOut, '\\')
			i++
		case '"':
			bytesOut = append(bytesOut, '"')
			i++
		case 'n':
			bytesOut = append(bytesOut, '\n')
			i++
		case 't':
			bytesOut = append(bytesOut, '\t')
			i++
		case 'r':
			bytesOut = append(bytesOut, '\r')
			i++
		default:
			if next >= '0' && next <= '7' {
				val := 0
				digits := 0
				for digits < 3 && i < len(inner) && inner[i] >= '0' && inner[i] <= '7' {
					val = val*8 + int(inner[i]-'0')
					i++
					digits++
				}
				bytesOut = append(bytesOut, byte(val))
			} else {
				bytesOut = append(bytesOut, '\\')
				i++
			}
		}
	}

	if utf8.Valid(bytesOut) {
		return string(bytesOut)
	}
	return strings.ToValidUTF8(string(bytesOut), "�")
}
