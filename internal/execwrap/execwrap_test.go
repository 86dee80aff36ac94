package execwrap

import (
	"context"
	goerrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/patcheval/patcheval/internal/auditlog"
	"github.com/patcheval/patcheval/internal/errors"
)

func TestArgvCommandCapturesOutput(t *testing.T) {
	e := New(nil)
	res, err := e.Run(context.Background(), Argv("echo", "hello"), Raising())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
	if strings.TrimSpace(res.Output) != "hello" {
		t.Errorf("output = %q", res.Output)
	}
}

func TestShellCommandMergesStderr(t *testing.T) {
	e := New(nil)
	res, err := e.Run(context.Background(), Shell("echo out; echo err 1>&2"), Raising())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "err") {
		t.Errorf("expected merged stdout+stderr, got %q", res.Output)
	}
}

func TestNonZeroExitRaises(t *testing.T) {
	e := New(nil)
	_, err := e.Run(context.Background(), Shell("echo diagnostics; exit 4"), Raising())
	var ce *errors.CommandError
	if !goerrors.As(err, &ce) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if ce.ExitCode != 4 {
		t.Errorf("exit code = %d, want 4", ce.ExitCode)
	}
	if !strings.Contains(ce.Output, "diagnostics") {
		t.Errorf("CommandError should carry captured output, got %q", ce.Output)
	}
}

func TestNonZeroExitWithoutRaising(t *testing.T) {
	e := New(nil)
	res, err := e.Run(context.Background(), Shell("exit 7"), Capturing())
	if err != nil {
		t.Fatalf("non-raising mode must not error on non-zero exit: %v", err)
	}
	if res.ExitCode != 7 {
		t.Errorf("exit code = %d, want 7", res.ExitCode)
	}
}

func TestTimeoutIsDistinctFromFailure(t *testing.T) {
	e := New(nil)
	opts := Capturing()
	opts.TimeoutSeconds = 1
	_, err := e.Run(context.Background(), Shell("sleep 5"), opts)
	var te *errors.TimeoutError
	if !goerrors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if te.Seconds != 1 {
		t.Errorf("timeout seconds = %d, want 1", te.Seconds)
	}
	if errors.IsCommandFailure(err) {
		t.Error("a timeout must not classify as a command failure")
	}
}

func TestLaunchFailure(t *testing.T) {
	e := New(nil)
	_, err := e.Run(context.Background(), Argv("patcheval-no-such-binary"), Capturing())
	var le *errors.LaunchError
	if !goerrors.As(err, &le) {
		t.Fatalf("expected LaunchError, got %v", err)
	}
}

func TestEmptyCommandRejected(t *testing.T) {
	e := New(nil)
	if _, err := e.Run(context.Background(), Command{}, Raising()); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestEnvOverridesAreScoped(t *testing.T) {
	e := New(nil)
	derived := e.With(map[string]string{"PATCHEVAL_TEST_VAR": "injected"})

	res, err := derived.Run(context.Background(), Shell("echo $PATCHEVAL_TEST_VAR"), Raising())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(res.Output) != "injected" {
		t.Errorf("derived executor output = %q", res.Output)
	}

	// The base executor must be untouched.
	res, err = e.Run(context.Background(), Shell("echo base:$PATCHEVAL_TEST_VAR"), Raising())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(res.Output) != "base:" {
		t.Errorf("base executor leaked override: %q", res.Output)
	}
}

func TestPerCallEnvBeatsExecutorEnv(t *testing.T) {
	e := New(nil).With(map[string]string{"PATCHEVAL_TEST_VAR": "executor"})
	opts := Raising()
	opts.Env = map[string]string{"PATCHEVAL_TEST_VAR": "call"}

	res, err := e.Run(context.Background(), Shell("echo $PATCHEVAL_TEST_VAR"), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(res.Output) != "call" {
		t.Errorf("output = %q, want call-level override to win", res.Output)
	}
}

func TestEveryInvocationIsAudited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log := auditlog.New(path, "[test]", nil)
	e := New(log)

	e.Run(context.Background(), Argv("echo", "traced"), Raising())
	e.Run(context.Background(), Shell("exit 1"), Raising())

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "Command: echo traced") {
		t.Errorf("missing debug trace for successful command: %q", content)
	}
	if !strings.Contains(content, "Command failed (exit 1)") {
		t.Errorf("missing failure diagnostic: %q", content)
	}
}

func TestWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	e := New(nil)
	opts := Raising()
	opts.Dir = dir

	res, err := e.Run(context.Background(), Shell("pwd"), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(res.Output))
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}
