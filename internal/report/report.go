// Package report classifies evaluation outcomes from audit logs. Only
// designated marker lines are parsed; every other line is treated as
// freeform diagnostics.
package report

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/patcheval/patcheval/internal/auditlog"
	"github.com/patcheval/patcheval/internal/errors"
)

// TestStatus is the classified test outcome of one instance.
type TestStatus string

const (
	StatusNone    TestStatus = "no_test_run"
	StatusPassed  TestStatus = "tests_passed"
	StatusFailed  TestStatus = "tests_failed"
	StatusTimeout TestStatus = "tests_timeout"
	StatusError   TestStatus = "tests_error"
)

var titleCaser = cases.Title(language.English)

// Title renders the status for human-readable summaries.
func (s TestStatus) Title() string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

// InstanceReport is the classification of one audit log.
type InstanceReport struct {
	InstanceID   string
	LogPath      string
	AppliedKinds []string // patch kinds with APPLY_PATCH_PASS, in order
	FailedKinds  []string // patch kinds with APPLY_PATCH_FAIL, in order
	Tests        TestStatus
	ResetFailed  bool
	Counts       TestCounts
}

// Resolved reports whether the instance's prediction both applied and made
// the test suite pass.
func (r *InstanceReport) Resolved() bool {
	return r.Tests == StatusPassed
}

var kindSuffixRe = regexp.MustCompile(`\(([^)]+)\)`)

// ParseLog reads one audit log and classifies it from its marker lines.
// The instance id is recovered from the log file name, whose first
// dot-separated segment is always the instance id.
func ParseLog(path string) (*InstanceReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Configf("read audit log: %v", err)
	}
	content := string(data)

	rep := &InstanceReport{
		InstanceID: strings.SplitN(filepath.Base(path), ".", 2)[0],
		LogPath:    path,
		Tests:      StatusNone,
		Counts:     ParsePytest(content),
	}

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, auditlog.ApplyPatchPass):
			rep.AppliedKinds = append(rep.AppliedKinds, kindSuffix(line))
		case strings.HasPrefix(line, auditlog.ApplyPatchFail):
			rep.FailedKinds = append(rep.FailedKinds, kindSuffix(line))
		case strings.HasPrefix(line, auditlog.TestsPassed):
			rep.Tests = StatusPassed
		case strings.HasPrefix(line, auditlog.TestsFailed):
			rep.Tests = StatusFailed
		case strings.HasPrefix(line, auditlog.TestsTimeout):
			rep.Tests = StatusTimeout
		case strings.HasPrefix(line, auditlog.TestsError):
			rep.Tests = StatusError
		case strings.HasPrefix(line, auditlog.ResetFailed):
			rep.ResetFailed = true
		}
	}
	return rep, nil
}

// kindSuffix extracts the parenthesized patch kind from a marker line, or
// empty when the marker has no kind (e.g. a null prediction).
func kindSuffix(line string) string {
	if m := kindSuffixRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// ParseLogDir classifies every *.log file in dir, sorted by instance id.
func ParseLogDir(dir string) ([]*InstanceReport, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.log"))
	if err != nil {
		return nil, errors.Configf("scan log dir: %v", err)
	}
	sort.Strings(matches)

	reports := make([]*InstanceReport, 0, len(matches))
	for _, path := range matches {
		rep, err := ParseLog(path)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// Summary aggregates instance classifications by test status.
type Summary struct {
	Total    int
	ByStatus map[TestStatus]int
	Resolved int
}

// Summarize folds reports into a Summary.
func Summarize(reports []*InstanceReport) Summary {
	s := Summary{ByStatus: make(map[TestStatus]int)}
	for _, rep := range reports {
		s.Total++
		s.ByStatus[rep.Tests]++
		if rep.Resolved() {
			s.Resolved++
		}
	}
	return s
}
