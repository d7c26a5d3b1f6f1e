package executor

import (
	"errors"
	"os"

	"github.com/cryptexctl/gosh/internal/ast"
	"github.com/cryptexctl/gosh/internal/shellerr"
)

// Highest descriptor a redirection may target. 0-2 are the standard streams,
// 3 up to this go through ExtraFiles.
const maxFd = 9

// redirects holds the files opened for one command.
type redirects struct {
	stdin *os.File
	// fds maps a descriptor to the last file redirected to it.
	fds    map[int]*os.File
	opened []*os.File
}

// openRedirects opens every file cmd names, in order, so "> a > b" creates
// both even though only b receives output.
func (e *Executor) openRedirects(cmd *ast.Command) (*redirects, error) {
	r := &redirects{fds: make(map[int]*os.File)}

	if cmd.HasInput() {
		f, err := os.Open(e.State.Resolve(cmd.Input))
		if err != nil {
			return nil, openError(cmd.Input, err)
		}
		r.stdin = f
		r.opened = append(r.opened, f)
	}

	for _, rd := range cmd.Redirects {
		flags := os.O_CREATE | os.O_WRONLY
		if rd.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}

		f, err := os.OpenFile(e.State.Resolve(rd.Path), flags, 0644)
		if err != nil {
			r.Close()
			return nil, openError(rd.Path, err)
		}
		r.opened = append(r.opened, f)

		if rd.Fd == 0 || rd.Fd > maxFd {
			e.Logger.Printf("ignoring redirection of descriptor %d to %s", rd.Fd, rd.Path)
			continue
		}
		r.fds[rd.Fd] = f
	}

	return r, nil
}

// extraFiles lays out descriptors 3 and up in the order exec.Cmd expects.
// Gaps stay nil and are closed in the child.
func (r *redirects) extraFiles() []*os.File {
	var extra []*os.File
	for fd := 3; fd <= maxFd; fd++ {
		if f, ok := r.fds[fd]; ok {
			for len(extra) < fd-3 {
				extra = append(extra, nil)
			}
			extra = append(extra, f)
		}
	}
	return extra
}

func (r *redirects) Close() error {
	var first error
	for _, f := range r.opened {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.opened = nil
	return first
}

func openError(path string, err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	return shellerr.IO(path, err)
}
