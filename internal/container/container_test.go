package container

import (
	"context"
	"strings"
	"testing"

	"github.com/patcheval/patcheval/internal/execwrap"
	"github.com/patcheval/patcheval/internal/testing/fakeexec"
)

func TestRemoteArgvPrefix(t *testing.T) {
	fake := fakeexec.New()
	remote := NewRemoteExecutor("docker", "abc123", fake)

	_, err := remote.Run(context.Background(), execwrap.Argv("git", "apply", "-v", "p.patch"), execwrap.Capturing())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	got := calls[0].Cmd.Args()
	want := []string{"docker", "exec", "abc123", "git", "apply", "-v", "p.patch"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("argv = %v, want %v", got, want)
	}
}

func TestRemoteShellPrefix(t *testing.T) {
	fake := fakeexec.New()
	remote := NewRemoteExecutor("docker", "abc123", fake)

	remote.Run(context.Background(), execwrap.Shell("pytest -rA tests/"), execwrap.Capturing())

	calls := fake.Calls()
	if !calls[0].Cmd.IsShell() {
		t.Fatal("shell commands must stay in shell mode")
	}
	want := "docker exec abc123 pytest -rA tests/"
	if calls[0].Cmd.ShellString() != want {
		t.Errorf("shell = %q, want %q", calls[0].Cmd.ShellString(), want)
	}
}

func TestRemoteOptionsInherited(t *testing.T) {
	fake := fakeexec.New()
	remote := NewRemoteExecutor("", "abc123", fake)

	opts := execwrap.Capturing()
	opts.TimeoutSeconds = 900
	remote.Run(context.Background(), execwrap.Shell("pytest"), opts)

	got := fake.Calls()[0].Opts
	if got.TimeoutSeconds != 900 || got.RaiseOnError {
		t.Errorf("options not inherited: %+v", got)
	}
}

func TestRemoteWithDerivesEnv(t *testing.T) {
	fake := fakeexec.New()
	remote := NewRemoteExecutor("docker", "abc123", fake)

	derived := remote.With(map[string]string{"MPLBACKEND": "Agg"})
	derived.Run(context.Background(), execwrap.Shell("pytest"), execwrap.Capturing())
	remote.Run(context.Background(), execwrap.Shell("pytest"), execwrap.Capturing())

	calls := fake.Calls()
	want := "docker exec --env 'MPLBACKEND=Agg' abc123 pytest"
	if calls[0].Cmd.ShellString() != want {
		t.Errorf("derived shell = %q, want %q", calls[0].Cmd.ShellString(), want)
	}
	if strings.Contains(calls[1].Cmd.ShellString(), "--env") {
		t.Errorf("base executor mutated: %q", calls[1].Cmd.ShellString())
	}
}

func TestRemoteWithEnvArgvFlags(t *testing.T) {
	fake := fakeexec.New()
	remote := NewRemoteExecutor("docker", "abc123", fake)

	derived := remote.With(map[string]string{"B": "2", "A": "1"})
	derived.Run(context.Background(), execwrap.Argv("env"), execwrap.Capturing())

	got := strings.Join(fake.Calls()[0].Cmd.Args(), " ")
	want := "docker exec --env A=1 --env B=2 abc123 env"
	if got != want {
		t.Errorf("argv = %q, want %q", got, want)
	}
}

func TestRuntimeStartParsesInstanceID(t *testing.T) {
	fake := fakeexec.New().Script(fakeexec.Rule{
		Contains: "run -d -t --name",
		Result:   &execwrap.Result{ExitCode: 0, Output: "Unable to find image locally\npulling...\ndeadbeef42\n"},
	})
	rt := NewRuntime("docker", fake)

	id, err := rt.Start(context.Background(), "mpl__3.5", "mpl__3.5")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if id != "deadbeef42" {
		t.Errorf("instance id = %q", id)
	}

	argv := fake.Calls()[0].Cmd.Args()
	want := "docker run -d -t --name mpl__3.5 mpl__3.5"
	if strings.Join(argv, " ") != want {
		t.Errorf("start argv = %q, want %q", strings.Join(argv, " "), want)
	}
}

func TestRuntimeStartFailurePropagates(t *testing.T) {
	fake := fakeexec.New().FailContaining("run -d", "no such image")
	rt := NewRuntime("docker", fake)

	if _, err := rt.Start(context.Background(), "env", "env"); err == nil {
		t.Fatal("expected start failure to propagate")
	}
}

func TestForceRemoveSwallowsErrors(t *testing.T) {
	fake := fakeexec.New().
		FailContaining("kill", "no such container").
		FailContaining("rm", "no such container")
	rt := NewRuntime("docker", fake)

	// Must not panic or surface anything.
	rt.ForceRemove(context.Background(), "gone")

	if len(fake.CallsContaining("kill")) != 1 || len(fake.CallsContaining("rm")) != 1 {
		t.Error("ForceRemove should attempt both kill and rm")
	}
}
