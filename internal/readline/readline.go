// Package readline reads interactive input lines with editing, history
// recall and tab completion.
package readline

import (
	"errors"
	"io"
	"os"

	"github.com/abiosoft/readline"
	"golang.org/x/term"
)

// ErrInterrupt is returned by ReadLine when the user pressed Ctrl-C.
var ErrInterrupt = readline.ErrInterrupt

type Options struct {
	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer

	// History is preloaded so earlier sessions can be recalled.
	History      []string
	HistoryLimit int

	// Completer is optional.
	Completer readline.AutoCompleter
}

type Reader struct {
	rl *readline.Instance
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func New(opts Options) (*Reader, error) {
	fd := int(opts.Stdin.Fd())
	cfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(opts.Stdin),
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
		FuncGetWidth: func() int {
			width, _, err := term.GetSize(fd)
			if err != nil || width <= 0 {
				return 80
			}
			return width
		},
		FuncIsTerminal: func() bool {
			return term.IsTerminal(fd)
		},

		HistoryLimit:           opts.HistoryLimit,
		DisableAutoSaveHistory: true,
		AutoComplete:           opts.Completer,
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	r := &Reader{rl: rl}
	for _, line := range opts.History {
		r.AddHistory(line)
	}
	return r, nil
}

// ReadLine shows prompt and returns the next line. io.EOF means the input
// was closed; ErrInterrupt means the line was abandoned.
func (r *Reader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return line, ErrInterrupt
	}
	return line, err
}

// AddHistory makes line available to history recall in this session.
func (r *Reader) AddHistory(line string) {
	_ = r.rl.SaveHistory(line)
}

func (r *Reader) Close() error {
	return r.rl.Close()
}
