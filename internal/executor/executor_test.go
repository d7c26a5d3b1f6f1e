package executor

import (
	"bytes"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptexctl/gosh/internal/ast"
	"github.com/cryptexctl/gosh/internal/history"
	"github.com/cryptexctl/gosh/internal/parser"
	"github.com/cryptexctl/gosh/internal/shellerr"
	"github.com/cryptexctl/gosh/internal/state"
	"github.com/cryptexctl/gosh/internal/variables"
)

type harness struct {
	exec   *Executor
	stdout bytes.Buffer
	stderr bytes.Buffer
	log    bytes.Buffer
}

func newHarness(t *testing.T, tools ...string) *harness {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available: %v", tool, err)
		}
	}

	vars := variables.NewFromEnviron([]string{"PATH=" + os.Getenv("PATH")})
	st := state.New(t.TempDir(), vars, history.New(afero.NewMemMapFs(), "", 10))
	st.Exit = func(int) { t.Fatal("unexpected exit") }

	h := &harness{}
	h.exec = &Executor{
		State:  st,
		Stdout: &h.stdout,
		Stderr: &h.stderr,
		Logger: log.New(&h.log, "", 0),
	}
	return h
}

func (h *harness) run(t *testing.T, line string) (int, error) {
	t.Helper()
	pipelines, err := parser.ParseLine(line)
	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	return h.exec.Run(pipelines[0])
}

func (h *harness) path(name string) string {
	return filepath.Join(h.exec.State.Dir, name)
}

func (h *harness) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(h.path(name))
	require.NoError(t, err)
	return string(data)
}

func TestRunEmptyPipeline(t *testing.T) {
	h := newHarness(t)
	code, err := h.exec.Run(&ast.Pipeline{})
	assert.NoError(t, err)
	assert.Zero(t, code)
}

func TestBuiltinRedirect(t *testing.T) {
	h := newHarness(t)

	code, err := h.run(t, "echo hello > y")
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Empty(t, h.stdout.String())
	assert.Equal(t, "hello\n", h.read(t, "y"))

	_, err = h.run(t, "echo again >> y")
	require.NoError(t, err)
	assert.Equal(t, "hello\nagain\n", h.read(t, "y"))

	_, err = h.run(t, "echo x > a > b")
	require.NoError(t, err)
	assert.Equal(t, "", h.read(t, "a"))
	assert.Equal(t, "x\n", h.read(t, "b"))
}

func TestBuiltinWritesToShellStdout(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "pwd")
	require.NoError(t, err)
	assert.Equal(t, h.exec.State.Dir+"\n", h.stdout.String())
}

func TestPipeline(t *testing.T) {
	h := newHarness(t, "printf", "sort")

	code, err := h.run(t, `printf 'b\na\nc\n' | sort`)
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "a\nb\nc\n", h.stdout.String())
}

func TestPipelineSpawnsBuiltinNames(t *testing.T) {
	h := newHarness(t, "echo", "cat")

	_, err := h.run(t, "echo hi | cat")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", h.stdout.String())
}

func TestPipelineStageRedirectBeatsPipe(t *testing.T) {
	h := newHarness(t, "echo", "cat")

	_, err := h.run(t, "echo hi > f | cat")
	require.NoError(t, err)
	assert.Empty(t, h.stdout.String())
	assert.Equal(t, "hi\n", h.read(t, "f"))
}

func TestInputRedirect(t *testing.T) {
	h := newHarness(t, "cat", "sort")
	require.NoError(t, os.WriteFile(h.path("in.txt"), []byte("z\ny\n"), 0644))

	_, err := h.run(t, "cat < in.txt")
	require.NoError(t, err)
	assert.Equal(t, "z\ny\n", h.stdout.String())

	h.stdout.Reset()
	_, err = h.run(t, "cat < missing | sort < in.txt")
	require.Error(t, err)

	h.stdout.Reset()
	code, err := h.run(t, "cat in.txt | sort < in.txt")
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "y\nz\n", h.stdout.String())
}

func TestMissingInputFile(t *testing.T) {
	h := newHarness(t, "cat")

	code, err := h.run(t, "cat < missing")
	require.Error(t, err)
	assert.Equal(t, 1, code)
	assert.True(t, shellerr.IsKind(err, shellerr.KindIO))
	assert.Equal(t, "missing: no such file or directory", err.Error())
}

func TestExternalRedirects(t *testing.T) {
	h := newHarness(t, "sh")

	_, err := h.run(t, `sh -c 'echo out; echo err >&2; echo three >&3' > o 2> e 3> f3`)
	require.NoError(t, err)
	assert.Empty(t, h.stdout.String())
	assert.Empty(t, h.stderr.String())
	assert.Equal(t, "out\n", h.read(t, "o"))
	assert.Equal(t, "err\n", h.read(t, "e"))
	assert.Equal(t, "three\n", h.read(t, "f3"))
}

func TestIgnoredDescriptors(t *testing.T) {
	h := newHarness(t, "sh")

	_, err := h.run(t, `sh -c 'echo out' 0> zero 12> twelve`)
	require.NoError(t, err)
	assert.Equal(t, "out\n", h.stdout.String())
	assert.FileExists(t, h.path("zero"))
	assert.FileExists(t, h.path("twelve"))
	assert.Contains(t, h.log.String(), "ignoring redirection of descriptor 12")
}

func TestChildEnvironmentAndDir(t *testing.T) {
	h := newHarness(t, "sh")
	h.exec.State.Vars.Set("FOO", "bar")
	h.exec.State.Vars.Export("FOO")
	h.exec.State.Vars.Set("HIDDEN", "x")

	_, err := h.run(t, `sh -c 'echo "$FOO-$HIDDEN" > rel'`)
	require.NoError(t, err)
	assert.Equal(t, "bar-\n", h.read(t, "rel"))
}

func TestExitStatus(t *testing.T) {
	h := newHarness(t, "sh")

	code, err := h.run(t, "sh -c 'exit 3'")
	require.NoError(t, err)
	assert.Equal(t, 3, code)

	code, err = h.run(t, "sh -c 'kill -TERM $$'")
	require.NoError(t, err)
	assert.Equal(t, 143, code)

	code, err = h.run(t, "sh -c 'exit 4' | sh -c 'exit 0'")
	require.NoError(t, err)
	assert.Zero(t, code)
}

func TestCommandNotFound(t *testing.T) {
	h := newHarness(t)

	code, err := h.run(t, "doesnotexist123 arg")
	require.Error(t, err)
	assert.Equal(t, 127, code)
	assert.True(t, shellerr.IsKind(err, shellerr.KindNotFound))
	assert.Equal(t, "doesnotexist123: command not found", err.Error())
}

func TestSpawnFailureMidChain(t *testing.T) {
	h := newHarness(t, "printf", "cat")

	code, err := h.run(t, "printf x | doesnotexist123 | cat")
	require.Error(t, err)
	assert.Equal(t, 127, code)
	assert.True(t, shellerr.IsKind(err, shellerr.KindNotFound))
	assert.Contains(t, h.log.String(), "pipeline aborted after 1 of 3 commands")
}

func TestPermissionDenied(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.path("data"), []byte("x"), 0644))

	code, err := h.run(t, "./data")
	require.Error(t, err)
	assert.Equal(t, 126, code)
	assert.True(t, shellerr.IsKind(err, shellerr.KindPermission))
}

func TestBackgroundRunsInForeground(t *testing.T) {
	h := newHarness(t)

	pipelines, err := parser.ParseLine("echo hi &")
	require.NoError(t, err)
	_, err = h.exec.Run(pipelines[0])
	require.NoError(t, err)
	assert.Equal(t, "hi\n", h.stdout.String())
	assert.Contains(t, h.log.String(), "job control is not supported")
}
