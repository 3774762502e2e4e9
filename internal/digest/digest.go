// Package digest computes stable content digests for hunks and reconciles
// the multiset of digests between an input diff and the patches emitted by
// the splitter, implementing the hunk-integrity check from the design spec.
//
// The digest function is adapted from the teacher's calculatePatchID: strip
// the "@@" header, drop empty lines, right-trim every remaining line, join
// with "\n", and take a SHA-1 hash (first 8 hex characters for brevity in
// logs; the full hash is retained for the multiset comparison itself so
// truncation cannot hide a collision in the integrity check).
package digest

import (
	"crypto/sha1"
	"fmt"
	"strings"
)

// Digest is a stable content hash of a hunk's header-stripped +/- /  lines.
type Digest string

// Short returns an 8-character prefix suitable for display.
func (d Digest) Short() string {
	if len(d) <= 8 {
		return string(d)
	}
	return string(d)[:8]
}

// ForHunk computes the digest of a single hunk's raw text, as described in
// the package doc comment.
func ForHunk(rawHunk string) Digest {
	lines := strings.Split(rawHunk, "\n")
	var kept []string
	for _, line := range lines {
		if strings.HasPrefix(line, "@@") {
			continue
		}
		trimmed := strings.TrimRight(line, " \t\r")
		if trimmed == "" {
			continue
		}
		kept = append(kept, trimmed)
	}
	joined := strings.Join(kept, "\n")
	h := sha1.New()
	h.Write([]byte(joined))
	return Digest(fmt.Sprintf("%x", h.Sum(nil)))
}

// Report describes the result of reconciling an input multiset of digests
// against an output multiset.
type Report struct {
	Missing  map[Digest]int // present in input only
	Spurious map[Digest]int // present in output only
	OK       bool
}

// Reconcile compares two multisets of digests (represented as ordered
// slices, so a hunk repeated verbatim is counted correctly) and reports
// what is missing from the output and what is spurious in it.
func Reconcile(input, output []Digest) Report {
	inCount := counts(input)
	outCount := counts(output)

	report := Report{Missing: map[Digest]int{}, Spurious: map[Digest]int{}}
	for d, n := range inCount {
		if m := outCount[d]; m < n {
			report.Missing[d] = n - m
		}
	}
	for d, n := range outCount {
		if m := inCount[d]; m < n {
			report.Spurious[d] = n - m
		}
	}
	report.OK = len(report.Missing) == 0 && len(report.Spurious) == 0
	return report
}

func counts(ds []Digest) map[Digest]int {
	m := make(map[Digest]int, len(ds))
	for _, d := range ds {
		m[d]++
	}
	return m
}
