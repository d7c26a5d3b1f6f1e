// Package builtin implements the commands that run inside the shell process.
package builtin

import (
	"io"
	"sort"

	"github.com/cryptexctl/gosh/internal/ast"
	"github.com/cryptexctl/gosh/internal/shellerr"
	"github.com/cryptexctl/gosh/internal/state"
)

// Kind identifies a builtin. The set is closed: adding one means a new
// constant, a name and a case in Run.
type Kind int

const (
	Exit Kind = iota
	Echo
	Type
	Pwd
	Cd
	History
	Help
	Export

	numKinds
)

var names = [numKinds]string{
	Exit:    "exit",
	Echo:    "echo",
	Type:    "type",
	Pwd:     "pwd",
	Cd:      "cd",
	History: "history",
	Help:    "help",
	Export:  "export",
}

var usage = [numKinds]string{
	Exit:    "exit [code] - Exit the shell with optional exit code",
	Echo:    "echo [args...] - Display arguments",
	Type:    "type name... - Describe how each name would be run",
	Pwd:     "pwd - Print the current working directory",
	Cd:      "cd [dir] - Change the current directory",
	History: "history [-c] [n] - Display or clear command history",
	Help:    "help [name] - Show help for builtins",
	Export:  "export [name[=value]...] - Export variables to the environment",
}

var byName = func() map[string]Kind {
	m := make(map[string]Kind, numKinds)
	for k, name := range names {
		m[name] = Kind(k)
	}
	return m
}()

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return names[k]
}

// Lookup returns the builtin called name.
func Lookup(name string) (Kind, bool) {
	k, ok := byName[name]
	return k, ok
}

func IsBuiltin(name string) bool {
	_, ok := byName[name]
	return ok
}

// Names returns every builtin name, sorted.
func Names() []string {
	out := make([]string, 0, numKinds)
	for _, name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IO is the set of streams a builtin reads and writes, with redirections
// already applied.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes builtin k with the arguments of cmd.
func Run(k Kind, st *state.State, cmd *ast.Command, stdio IO) (int, error) {
	args := cmd.Args
	switch k {
	case Exit:
		return exitCmd(st, args)
	case Echo:
		return echoCmd(stdio, args)
	case Type:
		return typeCmd(st, stdio, args)
	case Pwd:
		return pwdCmd(st, stdio)
	case Cd:
		return cdCmd(st, stdio, args)
	case History:
		return historyCmd(st, stdio, args)
	case Help:
		return helpCmd(stdio, args)
	case Export:
		return exportCmd(st, stdio, args)
	}
	return 1, shellerr.Internal("unknown builtin %d", int(k))
}
