package patchutil

import (
	"strings"
	"testing"
)

func TestExtractMinimalRecomputesHunkHeader(t *testing.T) {
	// Stale header claims 99 context lines; the body has 3 context, 1
	// removal and 2 additions.
	patch := strings.Join([]string{
		"diff --git a/pkg/x.py b/pkg/x.py",
		"--- a/pkg/x.py",
		"+++ b/pkg/x.py",
		"@@ -10,99 +10,99 @@",
		" ctx one",
		"-old line",
		"+new line",
		"+added line",
		" ctx two",
		" ctx three",
	}, "\n")

	got := ExtractMinimal(patch)
	if !strings.Contains(got, "@@ -10,4 +10,5 @@") {
		t.Errorf("hunk header not recomputed:\n%s", got)
	}
	if !strings.Contains(got, "-old line") || !strings.Contains(got, "+added line") {
		t.Errorf("hunk body lost:\n%s", got)
	}
}

func TestExtractMinimalDropsMetadata(t *testing.T) {
	patch := strings.Join([]string{
		"diff --git a/a.py b/a.py",
		"index 1111111..2222222 100644",
		"old mode 100644",
		"new mode 100755",
		"--- a/a.py",
		"+++ b/a.py",
		"@@ -1,1 +1,1 @@",
		"-a",
		"+b",
	}, "\n")

	got := ExtractMinimal(patch)
	for _, dropped := range []string{"index ", "old mode", "new mode"} {
		if strings.Contains(got, dropped) {
			t.Errorf("metadata %q survived:\n%s", dropped, got)
		}
	}
	for _, kept := range []string{"diff --git", "--- a/a.py", "+++ b/a.py"} {
		if !strings.Contains(got, kept) {
			t.Errorf("header %q dropped:\n%s", kept, got)
		}
	}
}

func TestExtractMinimalShiftsLaterHunks(t *testing.T) {
	// First hunk adds two lines; the second hunk's post-image start must
	// move down by two regardless of what its header claimed.
	patch := strings.Join([]string{
		"--- a/f.py",
		"+++ b/f.py",
		"@@ -5,1 +5,3 @@",
		" ctx",
		"+add one",
		"+add two",
		"@@ -20,2 +20,2 @@",
		" ctx",
		"-gone",
		"+here",
	}, "\n")

	got := ExtractMinimal(patch)
	if !strings.Contains(got, "@@ -5,1 +5,3 @@") {
		t.Errorf("first hunk header wrong:\n%s", got)
	}
	if !strings.Contains(got, "@@ -20,2 +22,2 @@") {
		t.Errorf("second hunk not shifted by prior delta:\n%s", got)
	}
}

func TestExtractMinimalStripsSectionHeading(t *testing.T) {
	patch := "--- a/f.py\n+++ b/f.py\n@@ -1,1 +1,1 @@ def frobnicate(self):\n-a\n+b"
	got := ExtractMinimal(patch)
	if strings.Contains(got, "frobnicate") {
		t.Errorf("section heading survived:\n%s", got)
	}
}

func TestExtractMinimalNoNewlineMarker(t *testing.T) {
	patch := strings.Join([]string{
		"--- a/f.py",
		"+++ b/f.py",
		"@@ -1,9 +1,9 @@",
		"-a",
		"+b",
		`\ No newline at end of file`,
	}, "\n")

	got := ExtractMinimal(patch)
	if !strings.Contains(got, "@@ -1,1 +1,1 @@") {
		t.Errorf("no-newline marker miscounted:\n%s", got)
	}
	if !strings.Contains(got, `\ No newline at end of file`) {
		t.Errorf("no-newline marker dropped:\n%s", got)
	}
}

func TestExtractMinimalIdempotentOnMinimal(t *testing.T) {
	patch := "--- a/f.py\n+++ b/f.py\n@@ -1,1 +1,1 @@\n-a\n+b"
	once := ExtractMinimal(patch)
	twice := ExtractMinimal(once)
	if once != twice {
		t.Errorf("not idempotent:\nonce:\n%s\ntwice:\n%s", once, twice)
	}
}
