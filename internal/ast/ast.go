package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Redirection replaces descriptor Fd of a command with the file at Path.
type Redirection struct {
	Path   string
	Fd     int
	Append bool
}

// Command is a single program invocation inside a pipeline.
type Command struct {
	Program   string
	Args      []string
	Input     string // "" when stdin is not redirected
	Redirects []Redirection
}

// HasInput reports whether stdin is redirected from a file.
func (c *Command) HasInput() bool {
	return c.Input != ""
}

// Output returns the redirection that wins for fd, i.e. the last one listed.
func (c *Command) Output(fd int) (Redirection, bool) {
	for i := len(c.Redirects) - 1; i >= 0; i-- {
		if c.Redirects[i].Fd == fd {
			return c.Redirects[i], true
		}
	}
	return Redirection{}, false
}

// Argv returns the program name followed by its arguments.
func (c *Command) Argv() []string {
	return append([]string{c.Program}, c.Args...)
}

// Pipeline is a chain of commands where each one's stdout feeds the next one's stdin.
type Pipeline struct {
	Commands []*Command

	// Background is set when the pipeline was terminated by '&'. It has no
	// effect on execution.
	Background bool
}

func (r Redirection) String() string {
	op := ">"
	if r.Append {
		op = ">>"
	}
	return strconv.Itoa(r.Fd) + op + " " + r.Path
}

func (c *Command) String() string {
	parts := make([]string, 0, len(c.Args)+len(c.Redirects)+2)
	parts = append(parts, c.Argv()...)
	if c.HasInput() {
		parts = append(parts, "< "+c.Input)
	}
	for _, r := range c.Redirects {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, " ")
}

func (p *Pipeline) String() string {
	cmds := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		cmds[i] = c.String()
	}
	s := strings.Join(cmds, " | ")
	if p.Background {
		s += " &"
	}
	return s
}

// Dump writes an indented, quoted rendering of pipelines to w. The format is
// stable and used by golden tests.
func Dump(w io.Writer, pipelines []*Pipeline) {
	for i, p := range pipelines {
		fmt.Fprintf(w, "pipeline %d", i)
		if p.Background {
			fmt.Fprint(w, " background")
		}
		fmt.Fprintln(w)

		for _, c := range p.Commands {
			fmt.Fprintf(w, "  command %q\n", c.Program)
			for _, arg := range c.Args {
				fmt.Fprintf(w, "    arg %q\n", arg)
			}
			if c.HasInput() {
				fmt.Fprintf(w, "    in %q\n", c.Input)
			}
			for _, r := range c.Redirects {
				fmt.Fprintf(w, "    out fd=%d append=%t %q\n", r.Fd, r.Append, r.Path)
			}
		}
	}
}
