// Package patchutil normalizes unified diffs. Model-generated patches often
// carry stale hunk headers or metadata the tree no longer matches; the
// minimal form keeps only the lines the apply tool needs, with hunk counts
// recomputed from the actual body.
package patchutil

import (
	"regexp"
	"strconv"
	"strings"
)

// Minimizer is the seam through which the evaluation driver consumes a
// minimal-patch transform.
type Minimizer func(patch string) string

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// metadata lines dropped from the minimal form. The apply tool only needs
// the file headers and hunks.
var droppedPrefixes = []string{
	"index ",
	"old mode ",
	"new mode ",
	"new file mode ",
	"deleted file mode ",
	"similarity index ",
	"dissimilarity index ",
	"rename from ",
	"rename to ",
	"copy from ",
	"copy to ",
}

// ExtractMinimal rewrites patch into its minimal form: metadata lines are
// dropped, hunk section headings are stripped, and every hunk header's
// lengths and post-image start are recomputed from the body. The input is
// not required to apply; the output is best-effort and may equal the input
// for already-minimal patches.
func ExtractMinimal(patch string) string {
	lines := strings.Split(patch, "\n")
	var out []string
	delta := 0 // cumulative post-image line shift across hunks

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			body, next := hunkBody(lines, i+1)
			preStart := atoiDefault(m[1], 1)
			preLen, postLen := countHunk(body)
			postStart := preStart + delta
			delta += postLen - preLen

			out = append(out, formatHunkHeader(preStart, preLen, postStart, postLen))
			out = append(out, body...)
			i = next - 1
			continue
		}

		if isDropped(line) {
			continue
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

// hunkBody collects body lines from start until the next hunk or file
// header, returning the body and the index of the first line after it.
func hunkBody(lines []string, start int) ([]string, int) {
	var body []string
	i := start
	for ; i < len(lines); i++ {
		line := lines[i]
		if hunkHeaderRe.MatchString(line) || strings.HasPrefix(line, "diff ") ||
			strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
			break
		}
		if line == "" && i == len(lines)-1 {
			// trailing newline artifact, not hunk content
			break
		}
		body = append(body, line)
	}
	return body, i
}

func countHunk(body []string) (preLen, postLen int) {
	for _, line := range body {
		switch {
		case strings.HasPrefix(line, "+"):
			postLen++
		case strings.HasPrefix(line, "-"):
			preLen++
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file" counts for neither side
		default:
			preLen++
			postLen++
		}
	}
	return preLen, postLen
}

func formatHunkHeader(preStart, preLen, postStart, postLen int) string {
	return "@@ -" + strconv.Itoa(preStart) + "," + strconv.Itoa(preLen) +
		" +" + strconv.Itoa(postStart) + "," + strconv.Itoa(postLen) + " @@"
}

func isDropped(line string) bool {
	for _, p := range droppedPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
