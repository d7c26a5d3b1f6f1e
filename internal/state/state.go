// Package state holds the per-shell mutable state that builtins change and
// spawned commands observe.
package state

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cryptexctl/gosh/internal/history"
	"github.com/cryptexctl/gosh/internal/variables"
)

const (
	EnvHome   = "HOME"
	EnvPWD    = "PWD"
	EnvOldPWD = "OLDPWD"
	EnvPath   = "PATH"

	DefaultPath = "/usr/local/bin:/usr/bin:/bin"
)

// State is passed by pointer to the executor and every builtin, so several
// shells can live in one process.
type State struct {
	// Dir is the working directory used for spawned commands and relative paths.
	Dir     string
	Vars    *variables.Manager
	History *history.Manager

	// Exit terminates the shell with the given status. The default never returns.
	Exit func(code int)
}

func New(dir string, vars *variables.Manager, hist *history.Manager) *State {
	s := &State{
		Dir:     dir,
		Vars:    vars,
		History: hist,
		Exit:    os.Exit,
	}
	s.Vars.Set(EnvPWD, dir)
	s.Vars.Export(EnvPWD)
	return s
}

// Home returns $HOME, or "" when unset.
func (s *State) Home() string {
	return s.Vars.Get(EnvHome)
}

// Path returns the command search directories.
func (s *State) Path() []string {
	path, ok := s.Vars.Lookup(EnvPath)
	if !ok {
		path = DefaultPath
	}
	return filepath.SplitList(path)
}

// Resolve makes path absolute relative to Dir.
func (s *State) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.Dir, path)
}

// ExpandTilde replaces a leading "~" or "~/" with $HOME.
func (s *State) ExpandTilde(path string) string {
	home := s.Home()
	if home == "" {
		return path
	}
	switch {
	case path == "~":
		return home
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(home, path[2:])
	default:
		return path
	}
}

// Chdir switches Dir to path and updates PWD and OLDPWD.
func (s *State) Chdir(path string) error {
	target := s.Resolve(path)

	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "chdir", Path: target, Err: syscall.ENOTDIR}
	}

	s.Vars.Set(EnvOldPWD, s.Dir)
	s.Vars.Set(EnvPWD, target)
	s.Dir = target
	return nil
}
