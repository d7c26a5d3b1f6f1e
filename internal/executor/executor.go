// Package executor turns parsed pipelines into running processes.
package executor

import (
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"syscall"

	"github.com/cryptexctl/gosh/internal/ast"
	"github.com/cryptexctl/gosh/internal/builtin"
	"github.com/cryptexctl/gosh/internal/shellerr"
	"github.com/cryptexctl/gosh/internal/state"
)

type Executor struct {
	State *state.State

	// Streams inherited by commands that do not redirect them. A nil Stdin
	// reads from the null device; nil Stdout or Stderr discards.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Logger *log.Logger
}

// New returns an executor attached to the process's standard streams.
func New(st *state.State, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Executor{
		State:  st,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
}

// Run executes one pipeline and returns the exit status of its last command.
// A returned error also carries the status the shell should record.
func (e *Executor) Run(p *ast.Pipeline) (int, error) {
	if p == nil || len(p.Commands) == 0 {
		return 0, nil
	}
	if p.Background {
		e.Logger.Printf("running %q in the foreground, job control is not supported", p.String())
	}

	if len(p.Commands) == 1 {
		if k, ok := builtin.Lookup(p.Commands[0].Program); ok {
			return e.runBuiltin(k, p.Commands[0])
		}
	}
	return e.runChain(p.Commands)
}

func (e *Executor) runBuiltin(k builtin.Kind, cmd *ast.Command) (int, error) {
	r, err := e.openRedirects(cmd)
	if err != nil {
		return shellerr.ExitStatus(err), err
	}
	defer r.Close()

	stdio := builtin.IO{Stdin: e.Stdin, Stdout: e.Stdout, Stderr: e.Stderr}
	if r.stdin != nil {
		stdio.Stdin = r.stdin
	}
	if f, ok := r.fds[1]; ok {
		stdio.Stdout = f
	}
	if f, ok := r.fds[2]; ok {
		stdio.Stderr = f
	}

	e.Logger.Printf("builtin %s %q", k, cmd.Args)
	return builtin.Run(k, e.State, cmd, stdio)
}

// runChain spawns every command with stdout of each feeding stdin of the
// next. If a command cannot be started the rest of the chain is abandoned,
// but the children already running are still waited for.
func (e *Executor) runChain(cmds []*ast.Command) (int, error) {
	var (
		procs    []*exec.Cmd
		held     []*os.File
		stdin    = e.Stdin
		spawnErr error
	)

	for i, cmd := range cmds {
		last := i == len(cmds)-1

		c, r, err := e.command(cmd)
		if err != nil {
			spawnErr = err
			break
		}
		held = append(held, r.opened...)

		c.Stdin = stdin
		if r.stdin != nil {
			c.Stdin = r.stdin
		}

		c.Stdout = e.Stdout
		var next *os.File
		if !last {
			pr, pw, err := os.Pipe()
			if err != nil {
				spawnErr = shellerr.IO("pipe", err)
				break
			}
			held = append(held, pr, pw)
			c.Stdout = pw
			next = pr
		}
		if f, ok := r.fds[1]; ok {
			c.Stdout = f
		}

		c.Stderr = e.Stderr
		if f, ok := r.fds[2]; ok {
			c.Stderr = f
		}
		c.ExtraFiles = r.extraFiles()

		e.Logger.Printf("spawn %s %q", c.Path, cmd.Args)
		if err := c.Start(); err != nil {
			spawnErr = startError(cmd.Program, err)
			break
		}
		procs = append(procs, c)
		stdin = next
	}

	// Children have their own copies now. Closing ours lets readers see EOF.
	for _, f := range held {
		f.Close()
	}

	status := 0
	var waitErr error
	for _, c := range procs {
		code, err := wait(c)
		e.Logger.Printf("wait %s: status %d", c.Path, code)
		if err != nil && waitErr == nil {
			waitErr = err
		}
		status = code
	}

	if spawnErr != nil {
		e.Logger.Printf("pipeline aborted after %d of %d commands: %v", len(procs), len(cmds), spawnErr)
		return shellerr.ExitStatus(spawnErr), spawnErr
	}
	if waitErr != nil {
		return shellerr.ExitStatus(waitErr), waitErr
	}
	return status, nil
}

// command resolves the program and opens the redirections of cmd.
func (e *Executor) command(cmd *ast.Command) (*exec.Cmd, *redirects, error) {
	path, err := e.State.LookPath(cmd.Program)
	switch {
	case errors.Is(err, fs.ErrPermission):
		return nil, nil, shellerr.Permission(cmd.Program, err)
	case err != nil:
		return nil, nil, shellerr.NotFound(cmd.Program)
	}

	r, err := e.openRedirects(cmd)
	if err != nil {
		return nil, nil, err
	}

	return &exec.Cmd{
		Path: path,
		Args: cmd.Argv(),
		Dir:  e.State.Dir,
		Env:  e.State.Vars.Environ(),
	}, r, nil
}

func startError(program string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return shellerr.NotFound(program)
	case errors.Is(err, fs.ErrPermission):
		return shellerr.Permission(program, err)
	default:
		return shellerr.IO(program, err)
	}
}

// wait reaps c. Exit statuses are not errors; a signalled child reports
// 128 plus the signal number.
func wait(c *exec.Cmd) (int, error) {
	err := c.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1, shellerr.IO(c.Args[0], err)
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}
