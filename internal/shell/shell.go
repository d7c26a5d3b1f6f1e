// Package shell runs the read, parse and execute loop.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/cryptexctl/gosh/internal/builtin"
	"github.com/cryptexctl/gosh/internal/config"
	"github.com/cryptexctl/gosh/internal/executor"
	"github.com/cryptexctl/gosh/internal/history"
	"github.com/cryptexctl/gosh/internal/parser"
	"github.com/cryptexctl/gosh/internal/prompt"
	"github.com/cryptexctl/gosh/internal/readline"
	"github.com/cryptexctl/gosh/internal/shellerr"
	"github.com/cryptexctl/gosh/internal/state"
	"github.com/cryptexctl/gosh/internal/variables"
)

// Options configure a Shell. Zero values fall back to the running process.
type Options struct {
	Config  *config.Config
	Version string

	// Fs backs history and file name completion.
	Fs afero.Fs

	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger

	Dir     string
	Environ []string

	// Exit ends the process. It must not return in production.
	Exit func(code int)
}

type Shell struct {
	config   *config.Config
	version  string
	fs       afero.Fs
	state    *state.State
	executor *executor.Executor
	prompt   *prompt.Manager
	reader   *readline.Reader

	stdin    *os.File
	stdout   io.Writer
	stderr   io.Writer
	logger   *log.Logger
	errColor *color.Color

	interactive bool

	// mu guards status, exited and reader, which the signal goroutine
	// touches through Exit.
	mu     sync.Mutex
	status int
	exited bool

	exit        func(code int)
	sigChan     chan os.Signal
	cleanupOnce sync.Once
}

func New(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ()
	}
	if opts.Dir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getwd: %w", err)
		}
		opts.Dir = dir
	}

	s := &Shell{
		config:   cfg,
		version:  opts.Version,
		fs:       opts.Fs,
		stdin:    opts.Stdin,
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
		logger:   opts.Logger,
		errColor: color.New(color.FgRed),
		exit:     opts.Exit,
		sigChan:  make(chan os.Signal, 1),
	}

	vars := variables.NewFromEnviron(opts.Environ)
	if err := s.initializeEnvironment(vars); err != nil {
		return nil, err
	}

	hist := history.New(opts.Fs, cfg.HistoryPath(vars.Get(state.EnvHome)), cfg.HistorySize)
	if err := hist.Load(); err != nil {
		s.logger.Printf("history: %v", err)
	}

	s.state = state.New(opts.Dir, vars, hist)
	s.state.Exit = s.Exit

	s.executor = executor.New(s.state, s.logger)
	s.executor.Stdout = s.stdout
	s.executor.Stderr = s.stderr
	s.executor.Stdin = nil
	if s.stdin != nil {
		s.executor.Stdin = s.stdin
	}

	s.interactive = cfg.Interactive ||
		(cfg.Command == "" && cfg.ScriptFile == "" && s.stdin != nil && readline.IsTerminal(s.stdin))
	s.prompt = prompt.New(s.state, cfg.EnableColors && s.interactive)

	return s, nil
}

func (s *Shell) initializeEnvironment(vars *variables.Manager) error {
	for name, value := range s.config.Env {
		if err := vars.Set(name, value); err != nil {
			return fmt.Errorf("config env: %w", err)
		}
		if err := vars.Export(name); err != nil {
			return fmt.Errorf("config env: %w", err)
		}
	}

	if _, ok := vars.Lookup(prompt.EnvPS1); !ok {
		vars.Set(prompt.EnvPS1, s.config.PS1)
	}

	level, _ := strconv.Atoi(vars.Get("SHLVL"))
	vars.Set("SHLVL", strconv.Itoa(level+1))
	vars.Export("SHLVL")

	if s.version != "" {
		vars.Set("GOSH_VERSION", s.version)
	}
	if execPath, err := os.Executable(); err == nil {
		vars.Set("SHELL", execPath)
	}
	return nil
}

// Run executes the -c command, the script file, or the input stream, and
// returns the status the process should exit with.
func (s *Shell) Run() int {
	s.setupSignalHandlers()
	defer s.cleanup()

	switch {
	case s.config.Command != "":
		return s.ExecuteLine(s.config.Command)

	case s.config.ScriptFile != "":
		file, err := os.Open(s.state.Resolve(s.config.ScriptFile))
		if err != nil {
			fmt.Fprintf(s.stderr, "gosh: %s: %s\n", s.config.ScriptFile, describe(err))
			return 127
		}
		defer file.Close()
		return s.RunScript(file)

	case s.interactive:
		return s.interactiveLoop()

	case s.stdin != nil:
		return s.RunScript(s.stdin)
	}
	return 0
}

// ExecuteLine parses and runs one line of input. Every pipeline on the line
// is attempted even if an earlier one fails.
func (s *Shell) ExecuteLine(line string) int {
	pipelines, err := parser.ParseLine(line)
	if err != nil {
		s.report(err)
		return s.setStatus(shellerr.ExitStatus(err))
	}

	for _, p := range pipelines {
		if s.done() {
			break
		}
		code, err := s.executor.Run(p)
		if err != nil {
			s.report(err)
		}
		s.setStatus(code)
		s.logger.Printf("%q exited with %d", p.String(), code)
	}
	return s.Status()
}

func (s *Shell) setStatus(code int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exited {
		s.status = code
	}
	return s.status
}

// done reports whether Exit has been called.
func (s *Shell) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

// RunScript executes r line by line, skipping blank lines and # comments.
func (s *Shell) RunScript(r io.Reader) int {
	scanner := bufio.NewScanner(r)
	for !s.done() && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.ExecuteLine(line)
	}
	if err := scanner.Err(); err != nil {
		s.report(shellerr.IO("read input", err))
		return 1
	}
	return s.Status()
}

func (s *Shell) interactiveLoop() int {
	if s.stdin == nil {
		return 0
	}

	opts := readline.Options{
		Stdin:        s.stdin,
		Stdout:       s.stdout,
		Stderr:       s.stderr,
		History:      s.state.History.All(),
		HistoryLimit: s.config.HistorySize,
	}
	if s.config.EnableCompletion {
		opts.Completer = &readline.Completer{
			Fs:       s.fs,
			Builtins: builtin.Names,
			Path:     s.state.Path,
			Dir:      func() string { return s.state.Dir },
		}
	}

	reader, err := readline.New(opts)
	if err != nil {
		s.report(shellerr.IO("readline", err))
		return 1
	}
	s.mu.Lock()
	s.reader = reader
	s.mu.Unlock()

	fmt.Fprintf(s.stdout, "gosh %s - Go Shell\n", s.version)
	fmt.Fprintln(s.stdout, "Type 'help' for more information.")

	for !s.done() {
		line, err := reader.ReadLine(s.prompt.Generate(s.Status()))
		switch {
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.stdout, "exit")
			return s.Status()
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case err != nil:
			s.report(shellerr.IO("readline", err))
			return 1
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		s.state.History.Add(line)
		reader.AddHistory(line)
		s.ExecuteLine(line)
	}
	return s.Status()
}

// report writes err to stderr as a single line.
func (s *Shell) report(err error) {
	msg := "gosh: " + err.Error()
	if shellerr.IsKind(err, shellerr.KindNotFound) {
		msg = err.Error()
	}

	if s.interactive && s.config.EnableColors {
		s.errColor.Fprintln(s.stderr, msg)
		return
	}
	fmt.Fprintln(s.stderr, msg)
}

func describe(err error) string {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	return err.Error()
}

func (s *Shell) setupSignalHandlers() {
	signal.Notify(s.sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range s.sigChan {
			switch sig {
			case syscall.SIGINT:
				if !s.interactive {
					s.Exit(130)
				}
			case syscall.SIGTERM:
				s.Exit(143)
			}
		}
	}()
}

// Status is the exit status of the last pipeline.
func (s *Shell) Status() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// State exposes the shell's working directory, variables and history.
func (s *Shell) State() *state.State {
	return s.state
}

// Exit saves history and ends the process with code.
func (s *Shell) Exit(code int) {
	s.mu.Lock()
	s.exited = true
	s.status = code
	s.mu.Unlock()
	s.cleanup()
	s.exit(code)
}

func (s *Shell) cleanup() {
	s.cleanupOnce.Do(func() {
		if err := s.state.History.Save(); err != nil {
			s.logger.Printf("history: %v", err)
		}
		s.mu.Lock()
		reader := s.reader
		s.mu.Unlock()
		if reader != nil {
			reader.Close()
		}
		signal.Stop(s.sigChan)
		close(s.sigChan)
	})
}
