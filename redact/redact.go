// Package redact scrubs secrets from agent transcript text before it is
// persisted into authorship notes or queued for upload.
//
// Detection is layered: a Shannon-entropy screen catches opaque tokens that
// no rule knows about, and gitleaks' default ruleset catches the well-known
// formats. A span flagged by either layer is replaced with "REDACTED".
package redact

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// candidatePattern matches token-shaped runs long enough to hold a secret.
var candidatePattern = regexp.MustCompile(`[A-Za-z0-9/+_=-]{10,}`)

// entropyThreshold separates prose and identifiers (well below) from API
// keys and tokens (well above).
const entropyThreshold = 4.5

const placeholder = "REDACTED"

var (
	detector     *detect.Detector
	detectorOnce sync.Once
)

func getDetector() *detect.Detector {
	detectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return
		}
		detector = d
	})
	return detector
}

type span struct{ start, end int }

// String returns s with every detected secret replaced by the placeholder.
func String(s string) string {
	spans := findSecretSpans(s)
	if len(spans) == 0 {
		return s
	}

	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(s[prev:sp.start])
		b.WriteString(placeholder)
		prev = sp.end
	}
	b.WriteString(s[prev:])
	return b.String()
}

// Bytes is String for byte slices; the input is returned unchanged when
// nothing was flagged.
func Bytes(b []byte) []byte {
	s := string(b)
	redacted := String(s)
	if redacted == s {
		return b
	}
	return []byte(redacted)
}

// Strings redacts a slice in place and returns it.
func Strings(values []string) []string {
	for i, v := range values {
		values[i] = String(v)
	}
	return values
}

func findSecretSpans(s string) []span {
	var spans []span

	for _, loc := range candidatePattern.FindAllStringIndex(s, -1) {
		if shannonEntropy(s[loc[0]:loc[1]]) > entropyThreshold {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}

	if d := getDetector(); d != nil {
		for _, finding := range d.DetectString(s) {
			if finding.Secret == "" {
				continue
			}
			from := 0
			for {
				idx := strings.Index(s[from:], finding.Secret)
				if idx < 0 {
					break
				}
				start := from + idx
				spans = append(spans, span{start, start + len(finding.Secret)})
				from = start + len(finding.Secret)
			}
		}
	}

	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[byte]int)
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	length := float64(len(s))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}
