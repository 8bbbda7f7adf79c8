//go:build !windows

package cli

import (
	"bytes"
	stdcontext "context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goerrors "github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/process"
)

func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "execkit.yml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: error\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root, ctx := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.ExecuteContext(stdcontext.Background())
	ctx.close(stdcontext.Background())
	return out.String(), err
}

func codeOf(err error) int {
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestRunStreamsOutput(t *testing.T) {
	out, err := executeCLI(t, "run", "--", "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello\n" {
		t.Fatalf("expected streamed output, got %q", out)
	}
}

func TestRunQuietCapture(t *testing.T) {
	out, err := executeCLI(t, "run", "--quiet", "--capture", "--max-capture", "3", "--", "printf", "abcdef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "def" {
		t.Fatalf("expected only the captured tail, got %q", out)
	}
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"zero", []string{"run", "--", "true"}, 0},
		{"child code", []string{"run", "--", "sh", "-c", "exit 3"}, 3},
		{"timeout", []string{"run", "--timeout", "100ms", "--grace", "200ms", "--", "sleep", "10"}, exitTimeout},
		{"not found", []string{"run", "--", "/nonexistent/execkit-cmd"}, exitNotFound},
		{"bad capture mode", []string{"run", "--capture-mode", "middle", "--", "true"}, exitUsage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := executeCLI(t, tc.args...)
			if got := codeOf(err); got != tc.want {
				t.Fatalf("expected exit code %d, got %d (%v)", tc.want, got, err)
			}
		})
	}
}

func TestRunOutputFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.log")
	second := filepath.Join(dir, "b.log")

	_, err := executeCLI(t, "run", "-q", "-o", first, "-o", second, "--", "sh", "-c", "echo to-files")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, path := range []string{first, second} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if string(data) != "to-files\n" {
			t.Errorf("expected output in %s, got %q", path, data)
		}
	}
}

func TestRunRequiresCommand(t *testing.T) {
	if _, err := executeCLI(t, "run"); err == nil {
		t.Fatal("expected an error without a command")
	}
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "execkit ") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		res  *process.Result
		err  error
		want int
	}{
		{"success", &process.Result{}, nil, 0},
		{"exit code", &process.Result{ExitCode: 7}, nil, 7},
		{"timed out", &process.Result{ExitCode: -9, TimedOut: true}, nil, exitTimeout},
		{"signaled", &process.Result{ExitCode: -15}, nil, 143},
		{"spawn", nil, goerrors.SpawnFailed("x", errors.New("missing")), exitNotFound},
		{"canceled", &process.Result{ExitCode: -15}, goerrors.Canceled("x", stdcontext.Canceled), exitCanceled},
		{"unkillable", &process.Result{ExitCode: -1}, goerrors.Unkillable(1, nil), exitUnkillable},
		{"invalid", nil, goerrors.InvalidInput("binary", "required"), exitUsage},
		{"internal", nil, errors.New("pipe"), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCodeFor(tc.res, tc.err); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestExitStatus(t *testing.T) {
	if exitStatus(nil) != 0 {
		t.Error("nil error must exit 0")
	}
	if exitStatus(&codeError{code: 124}) != 124 {
		t.Error("expected code from codeError")
	}
	if exitStatus(errors.New("boom")) != 1 {
		t.Error("plain errors exit 1")
	}
}

func TestRunTimeoutZeroDisablesConfiguredTimeout(t *testing.T) {
	t.Setenv("EXECKIT_PROCESS_TIMEOUT", "100ms")
	t.Setenv("EXECKIT_PROCESS_GRACE_PERIOD", "100ms")

	if _, err := executeCLI(t, "run", "--", "sleep", "0.5"); codeOf(err) != exitTimeout {
		t.Fatalf("expected the configured timeout to apply, got %v", err)
	}
	if _, err := executeCLI(t, "run", "--timeout", "0", "--", "sleep", "0.5"); err != nil {
		t.Fatalf("expected --timeout 0 to disable the timeout, got %v", err)
	}
}
