package builtin

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptexctl/gosh/internal/ast"
	"github.com/cryptexctl/gosh/internal/history"
	"github.com/cryptexctl/gosh/internal/shellerr"
	"github.com/cryptexctl/gosh/internal/state"
	"github.com/cryptexctl/gosh/internal/variables"
)

type harness struct {
	st     *state.State
	stdout bytes.Buffer
	stderr bytes.Buffer
	exits  []int
}

func newHarness(t *testing.T, env ...string) *harness {
	t.Helper()
	h := &harness{}
	h.st = state.New(t.TempDir(), variables.NewFromEnviron(env), history.New(afero.NewMemMapFs(), "", 100))
	h.st.Exit = func(code int) { h.exits = append(h.exits, code) }
	return h
}

func (h *harness) run(t *testing.T, line string) (int, error) {
	t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()

	fields := strings.Fields(line)
	k, ok := Lookup(fields[0])
	require.True(t, ok, "%s is not a builtin", fields[0])

	cmd := &ast.Command{Program: fields[0], Args: fields[1:]}
	return Run(k, h.st, cmd, IO{Stdout: &h.stdout, Stderr: &h.stderr})
}

func TestEveryKindIsNamedAndDispatched(t *testing.T) {
	seen := map[string]bool{}
	for k := Kind(0); k < numKinds; k++ {
		name := k.String()
		require.NotEmpty(t, name)
		require.NotEmpty(t, usage[k])
		assert.False(t, seen[name], "duplicate name %q", name)
		seen[name] = true

		got, ok := Lookup(name)
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	assert.Len(t, Names(), int(numKinds))

	_, err := Run(numKinds, nil, &ast.Command{}, IO{})
	assert.True(t, shellerr.IsKind(err, shellerr.KindInternal))
}

func TestLookup(t *testing.T) {
	assert.True(t, IsBuiltin("cd"))
	assert.False(t, IsBuiltin("ls"))
	assert.False(t, IsBuiltin(""))
	assert.Equal(t, []string{"cd", "echo", "exit", "export", "help", "history", "pwd", "type"}, Names())
}

func TestExit(t *testing.T) {
	tests := map[string]int{
		"exit":     0,
		"exit 3":   3,
		"exit abc": 0,
		"exit 7 8": 7,
	}
	for line, want := range tests {
		t.Run(line, func(t *testing.T) {
			h := newHarness(t)
			code, err := h.run(t, line)
			require.NoError(t, err)
			assert.Equal(t, want, code)
			assert.Equal(t, []int{want}, h.exits)
		})
	}
}

func TestEcho(t *testing.T) {
	h := newHarness(t)

	code, err := h.run(t, "echo hello  world")
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "hello world\n", h.stdout.String())

	_, err = h.run(t, "echo")
	require.NoError(t, err)
	assert.Equal(t, "\n", h.stdout.String())
}

func TestPwdAndCd(t *testing.T) {
	h := newHarness(t)
	root := h.st.Dir
	require.NoError(t, os.MkdirAll(filepath.Join(root, "home", "src"), 0755))
	h.st.Vars.Set(state.EnvHome, filepath.Join(root, "home"))

	_, err := h.run(t, "pwd")
	require.NoError(t, err)
	assert.Equal(t, root+"\n", h.stdout.String())

	code, _ := h.run(t, "cd")
	assert.Zero(t, code)
	assert.Equal(t, filepath.Join(root, "home"), h.st.Dir)

	code, _ = h.run(t, "cd src")
	assert.Zero(t, code)
	assert.Equal(t, filepath.Join(root, "home", "src"), h.st.Dir)

	code, _ = h.run(t, "cd ~")
	assert.Zero(t, code)
	assert.Equal(t, filepath.Join(root, "home"), h.st.Dir)

	code, _ = h.run(t, "cd ~/src")
	assert.Zero(t, code)
	assert.Equal(t, filepath.Join(root, "home", "src"), h.st.Dir)

	assert.Equal(t, h.st.Dir, h.st.Vars.Get(state.EnvPWD))
	assert.Equal(t, filepath.Join(root, "home"), h.st.Vars.Get(state.EnvOldPWD))

	// "-" is an ordinary directory name.
	code, _ = h.run(t, "cd -")
	assert.Equal(t, 1, code)
	assert.Equal(t, "cd: -: No such file or directory\n", h.stderr.String())
	assert.Equal(t, filepath.Join(root, "home", "src"), h.st.Dir)
}

func TestCdErrors(t *testing.T) {
	h := newHarness(t)
	start := h.st.Dir
	require.NoError(t, os.WriteFile(filepath.Join(start, "file"), nil, 0644))

	tests := map[string]string{
		"cd missing": "cd: missing: No such file or directory\n",
		"cd file":    "cd: file: Not a directory\n",
		"cd a b":     "cd: too many arguments\n",
		"cd":         "cd: HOME not set\n",
		"cd -":       "cd: -: No such file or directory\n",
	}
	for line, want := range tests {
		code, err := h.run(t, line)
		require.NoError(t, err)
		assert.Equal(t, 1, code, line)
		assert.Equal(t, want, h.stderr.String(), line)
		assert.Equal(t, start, h.st.Dir, line)
	}
}

func TestType(t *testing.T) {
	h := newHarness(t)
	bin := filepath.Join(h.st.Dir, "bin")
	require.NoError(t, os.Mkdir(bin, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "tool"), []byte("#!/bin/sh\n"), 0755))
	h.st.Vars.Set(state.EnvPath, bin)

	code, err := h.run(t, "type cd tool")
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "cd is a shell builtin\ntool is "+filepath.Join(bin, "tool")+"\n", h.stdout.String())

	code, err = h.run(t, "type nothing echo")
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Equal(t, "echo is a shell builtin\n", h.stdout.String())
	assert.Equal(t, "nothing: not found\n", h.stderr.String())

	_, err = h.run(t, "type")
	assert.True(t, shellerr.IsKind(err, shellerr.KindInternal))
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	for _, line := range []string{"ls", "pwd", "echo hi"} {
		h.st.History.Add(line)
	}

	code, err := h.run(t, "history")
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "    1  ls\n    2  pwd\n    3  echo hi\n", h.stdout.String())

	_, err = h.run(t, "history 2")
	require.NoError(t, err)
	assert.Equal(t, "    2  pwd\n    3  echo hi\n", h.stdout.String())

	code, _ = h.run(t, "history x")
	assert.Equal(t, 1, code)
	assert.Equal(t, "history: x: numeric argument required\n", h.stderr.String())

	code, _ = h.run(t, "history -z")
	assert.Equal(t, 2, code)
	assert.Contains(t, h.stderr.String(), "usage: history")

	code, _ = h.run(t, "history -c")
	assert.Zero(t, code)
	assert.Zero(t, h.st.History.Size())
}

func TestHelp(t *testing.T) {
	h := newHarness(t)

	code, err := h.run(t, "help")
	require.NoError(t, err)
	assert.Zero(t, code)
	for _, name := range Names() {
		assert.Contains(t, h.stdout.String(), "  "+name)
	}

	code, _ = h.run(t, "help cd")
	assert.Zero(t, code)
	assert.Equal(t, "cd [dir] - Change the current directory\n", h.stdout.String())

	code, _ = h.run(t, "help ls")
	assert.Equal(t, 1, code)
	assert.Equal(t, "help: no help topics match 'ls'\n", h.stderr.String())
}

func TestExport(t *testing.T) {
	h := newHarness(t, "A=1")
	h.st.Vars.Set("LOCAL", "x")

	code, err := h.run(t, "export B=2 LOCAL")
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.True(t, h.st.Vars.IsExported("B"))
	assert.True(t, h.st.Vars.IsExported("LOCAL"))

	_, err = h.run(t, "export")
	require.NoError(t, err)
	assert.Equal(t,
		"export A=1\nexport B=2\nexport LOCAL=x\nexport PWD="+h.st.Dir+"\n",
		h.stdout.String())

	code, _ = h.run(t, "export 1BAD=x")
	assert.Equal(t, 1, code)
	assert.Equal(t, "export: `1BAD': not a valid identifier\n", h.stderr.String())
}
