package report

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const passedLog = `[env] [P-3] Task Metadata
APPLY_PATCH_PASS (pred)
APPLY_PATCH_PASS (test)
Test Script: pytest -rA tests/;
======= 47 passed, 2 skipped in 9.31s =======

TESTS_PASSED
[env] [P-3] Test script run successful
`

func TestParseLogPassed(t *testing.T) {
	path := writeLog(t, t.TempDir(), "P-3.gpt-4.eval.log", passedLog)
	rep, err := ParseLog(path)
	if err != nil {
		t.Fatalf("ParseLog: %v", err)
	}

	if rep.InstanceID != "P-3" {
		t.Errorf("instance id = %q", rep.InstanceID)
	}
	if rep.Tests != StatusPassed || !rep.Resolved() {
		t.Errorf("status = %q, resolved = %t", rep.Tests, rep.Resolved())
	}
	if len(rep.AppliedKinds) != 2 || rep.AppliedKinds[0] != "pred" || rep.AppliedKinds[1] != "test" {
		t.Errorf("applied kinds = %v", rep.AppliedKinds)
	}
	if !rep.Counts.Parsed || rep.Counts.Passed != 47 || rep.Counts.Skipped != 2 || rep.Counts.Total != 49 {
		t.Errorf("counts = %+v", rep.Counts)
	}
}

func TestParseLogAbandoned(t *testing.T) {
	content := "APPLY_PATCH_FAIL; (pred_try)\nOutput:\nerror: patch failed\nAPPLY_PATCH_FAIL; (pred_minimal_try)\n"
	path := writeLog(t, t.TempDir(), "P-2.gpt-4.eval.log", content)
	rep, err := ParseLog(path)
	if err != nil {
		t.Fatalf("ParseLog: %v", err)
	}

	if rep.Tests != StatusNone {
		t.Errorf("status = %q, want no test run", rep.Tests)
	}
	if len(rep.FailedKinds) != 2 || rep.FailedKinds[1] != "pred_minimal_try" {
		t.Errorf("failed kinds = %v", rep.FailedKinds)
	}
}

func TestParseLogTimeoutAndError(t *testing.T) {
	dir := t.TempDir()
	timeoutPath := writeLog(t, dir, "a.m.eval.log", "TESTS_TIMEOUT after 900 seconds\n")
	errorPath := writeLog(t, dir, "b.m.eval.log", "TESTS_ERROR: launch failed\n")

	rep, _ := ParseLog(timeoutPath)
	if rep.Tests != StatusTimeout {
		t.Errorf("timeout status = %q", rep.Tests)
	}
	rep, _ = ParseLog(errorPath)
	if rep.Tests != StatusError {
		t.Errorf("error status = %q", rep.Tests)
	}
}

func TestDiagnosticLinesIgnored(t *testing.T) {
	// Prefixed diagnostics mentioning markers mid-line must not classify.
	content := "[env] [P-9] wrote TESTS_PASSED earlier\nsome output mentioning APPLY_PATCH_PASS (pred)\n"
	path := writeLog(t, t.TempDir(), "P-9.log", content)
	rep, _ := ParseLog(path)

	if rep.Tests != StatusNone || len(rep.AppliedKinds) != 0 {
		t.Errorf("mid-line marker text must be ignored: %+v", rep)
	}
}

func TestParseLogDirAndSummarize(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.m.eval.log", "TESTS_PASSED\n")
	writeLog(t, dir, "b.m.eval.log", "TESTS_FAILED\n")
	writeLog(t, dir, "c.m.eval.log", "APPLY_PATCH_FAIL; (pred_try)\n")

	reports, err := ParseLogDir(dir)
	if err != nil {
		t.Fatalf("ParseLogDir: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("len(reports) = %d", len(reports))
	}
	if reports[0].InstanceID != "a" {
		t.Errorf("reports not sorted: first = %q", reports[0].InstanceID)
	}

	s := Summarize(reports)
	if s.Total != 3 || s.Resolved != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.ByStatus[StatusPassed] != 1 || s.ByStatus[StatusFailed] != 1 || s.ByStatus[StatusNone] != 1 {
		t.Errorf("by status = %v", s.ByStatus)
	}
}

func TestStatusTitle(t *testing.T) {
	tests := []struct {
		status TestStatus
		want   string
	}{
		{StatusPassed, "Tests Passed"},
		{StatusTimeout, "Tests Timeout"},
		{StatusNone, "No Test Run"},
	}
	for _, tt := range tests {
		if got := tt.status.Title(); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestParsePytestNoSummary(t *testing.T) {
	counts := ParsePytest("no pytest output here")
	if counts.Parsed {
		t.Errorf("counts should not parse: %+v", counts)
	}
}
