package report

import (
	"regexp"
	"strconv"
)

// Static regexes for pytest summary parsing, compiled once at package init.
var (
	pytestPassedRegex  = regexp.MustCompile(`(\d+) passed`)
	pytestFailedRegex  = regexp.MustCompile(`(\d+) failed`)
	pytestSkippedRegex = regexp.MustCompile(`(\d+) skipped`)
)

// TestCounts holds test result counts parsed from captured test output.
type TestCounts struct {
	Passed  int
	Failed  int
	Skipped int
	Total   int
	Parsed  bool // true if any count was successfully extracted
}

// ParsePytest extracts counts from pytest output. pytest prints summary
// lines like:
//
//	======= 47 passed in 0.12s =======
//	======= 45 passed, 2 failed, 3 skipped in 0.12s =======
func ParsePytest(output string) TestCounts {
	counts := TestCounts{}

	if match := pytestPassedRegex.FindStringSubmatch(output); len(match) >= 2 {
		counts.Passed, _ = strconv.Atoi(match[1])
		counts.Parsed = true
	}
	if match := pytestFailedRegex.FindStringSubmatch(output); len(match) >= 2 {
		counts.Failed, _ = strconv.Atoi(match[1])
		counts.Parsed = true
	}
	if match := pytestSkippedRegex.FindStringSubmatch(output); len(match) >= 2 {
		counts.Skipped, _ = strconv.Atoi(match[1])
		counts.Parsed = true
	}

	if counts.Parsed {
		counts.Total = counts.Passed + counts.Failed + counts.Skipped
	}
	return counts
}
