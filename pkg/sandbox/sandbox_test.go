package sandbox

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	outputs []Output
	errs    []error
	calls   []Command
	dirs    []string
}

func (r *scriptedRunner) Run(_ context.Context, cmd Command) (Output, error) {
	idx := len(r.calls)
	r.calls = append(r.calls, cmd)
	r.dirs = append(r.dirs, cmd.Dir)
	var out Output
	var err error
	if idx < len(r.outputs) {
		out = r.outputs[idx]
	}
	if idx < len(r.errs) {
		err = r.errs[idx]
	}
	return out, err
}

func TestExecuteReturnsTrimmedStdout(t *testing.T) {
	runner := &scriptedRunner{outputs: []Output{{}, {Stdout: "  25\n"}}}
	sb := New(runner, Config{WorkspaceRoot: t.TempDir()})

	out, err := sb.Execute(context.Background(), "int main(void){return 0;}", "5")
	require.NoError(t, err)
	require.Equal(t, "25", out)
	require.Len(t, runner.calls, 2)
	require.Equal(t, "gcc", runner.calls[0].Path)
	require.Equal(t, 10*time.Second, runner.calls[0].Timeout)
	require.Equal(t, "./prog", runner.calls[1].Path)
	require.Equal(t, "5", runner.calls[1].Stdin)
	require.Equal(t, 5*time.Second, runner.calls[1].Timeout)
}

func TestExecuteMapsCompilerFailure(t *testing.T) {
	stderr := "main.c:1:1: error: expected ';' before '}' token"
	runner := &scriptedRunner{outputs: []Output{{ExitCode: 1, Stderr: stderr}}}
	sb := New(runner, Config{WorkspaceRoot: t.TempDir()})

	_, err := sb.Execute(context.Background(), "int main(void){return 0}", "")
	var compileErr *CompilationError
	require.True(t, errors.As(err, &compileErr))
	require.Contains(t, compileErr.Error(), "expected ';'")
	require.Len(t, runner.calls, 1)
}

func TestCompilationErrorMessageIsTruncated(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	err := &CompilationError{ExitCode: 1, Stderr: string(long)}
	require.Len(t, err.Error(), len("compilation failed: ")+200)
}

func TestExecuteMapsRuntimeFailureAndTimeout(t *testing.T) {
	runner := &scriptedRunner{outputs: []Output{{}, {ExitCode: 139, Stderr: "segfault"}}}
	sb := New(runner, Config{WorkspaceRoot: t.TempDir()})

	_, err := sb.Execute(context.Background(), "code", "")
	var runErr *RuntimeError
	require.True(t, errors.As(err, &runErr))
	require.Equal(t, 139, runErr.ExitCode)

	runner = &scriptedRunner{outputs: []Output{{}, {TimedOut: true, ExitCode: -1}}}
	sb = New(runner, Config{WorkspaceRoot: t.TempDir()})

	_, err = sb.Execute(context.Background(), "code", "")
	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	require.Equal(t, StageRun, timeoutErr.Stage)
}

func TestWorkspaceRemovedOnEveryPath(t *testing.T) {
	root := t.TempDir()
	runner := &scriptedRunner{outputs: []Output{{TimedOut: true}}}
	sb := New(runner, Config{WorkspaceRoot: root})

	_, err := sb.Execute(context.Background(), "code", "")
	require.Error(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.NotEmpty(t, runner.dirs[0])
}

func TestCheckSyntaxPropagatesCompilerNotFound(t *testing.T) {
	runner := &scriptedRunner{errs: []error{ErrCompilerNotFound}}
	sb := New(runner, Config{WorkspaceRoot: t.TempDir()})

	_, err := sb.CheckSyntax(context.Background(), "int main(void){}")
	require.ErrorIs(t, err, ErrCompilerNotFound)
}

func TestLocalRunnerReportsExitCodeAndTimeout(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	runner := NewLocalRunner()

	out, err := runner.Run(context.Background(), Command{Path: "sh", Args: []string{"-c", "read x; echo got $x; exit 3"}, Stdin: "7\n"})
	require.NoError(t, err)
	require.Equal(t, 3, out.ExitCode)
	require.Equal(t, "got 7\n", out.Stdout)

	out, err = runner.Run(context.Background(), Command{Path: "sh", Args: []string{"-c", "sleep 5"}, Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	require.True(t, out.TimedOut)
}

func TestLocalRunnerMissingBinary(t *testing.T) {
	_, err := NewLocalRunner().Run(context.Background(), Command{Path: "definitely-not-a-compiler-xyz"})
	require.ErrorIs(t, err, ErrCompilerNotFound)
}

func TestExecuteWithRealCompiler(t *testing.T) {
	if _, err := exec.LookPath("gcc"); err != nil {
		t.Skip("gcc not available")
	}
	sb := New(NewLocalRunner(), Config{WorkspaceRoot: t.TempDir()})

	code := "#include <stdio.h>\nint main(void) {\n    int n;\n    scanf(\"%d\", &n);\n    printf(\"Result: %d\\n\", n * n);\n    return 0;\n}\n"
	out, err := sb.Execute(context.Background(), code, "5")
	require.NoError(t, err)
	require.Equal(t, "Result: 25", out)

	syntaxOut, err := sb.CheckSyntax(context.Background(), "int main(void) { return 0 }")
	require.NoError(t, err)
	require.NotEqual(t, 0, syntaxOut.ExitCode)
	require.Contains(t, syntaxOut.Stderr, "error:")
}
