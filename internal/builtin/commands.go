package builtin

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"syscall"

	"github.com/pborman/getopt/v2"

	"github.com/cryptexctl/gosh/internal/shellerr"
	"github.com/cryptexctl/gosh/internal/state"
)

// exitCmd hands the status to State.Exit, which normally does not return.
// A non-numeric argument is treated as 0.
func exitCmd(st *state.State, args []string) (int, error) {
	code := 0
	if len(args) > 0 {
		if c, err := strconv.Atoi(args[0]); err == nil {
			code = c
		}
	}
	st.Exit(code)
	return code, nil
}

func echoCmd(stdio IO, args []string) (int, error) {
	if _, err := fmt.Fprintln(stdio.Stdout, strings.Join(args, " ")); err != nil {
		return 1, shellerr.IO("echo", err)
	}
	return 0, nil
}

func typeCmd(st *state.State, stdio IO, args []string) (int, error) {
	if len(args) == 0 {
		return 1, shellerr.Internal("type: expected at least one name")
	}

	status := 0
	for _, name := range args {
		if IsBuiltin(name) {
			fmt.Fprintf(stdio.Stdout, "%s is a shell builtin\n", name)
			continue
		}
		if path, err := st.LookPath(name); err == nil {
			fmt.Fprintf(stdio.Stdout, "%s is %s\n", name, path)
			continue
		}
		fmt.Fprintf(stdio.Stderr, "%s: not found\n", name)
		status = 1
	}
	return status, nil
}

func pwdCmd(st *state.State, stdio IO) (int, error) {
	if _, err := fmt.Fprintln(stdio.Stdout, st.Dir); err != nil {
		return 1, shellerr.IO("pwd", err)
	}
	return 0, nil
}

func cdCmd(st *state.State, stdio IO, args []string) (int, error) {
	var dir string
	switch len(args) {
	case 0:
		dir = st.Home()
		if dir == "" {
			fmt.Fprintln(stdio.Stderr, "cd: HOME not set")
			return 1, nil
		}
	case 1:
		dir = args[0]
	default:
		fmt.Fprintln(stdio.Stderr, "cd: too many arguments")
		return 1, nil
	}

	if err := st.Chdir(st.ExpandTilde(dir)); err != nil {
		fmt.Fprintf(stdio.Stderr, "cd: %s: %s\n", dir, describe(err))
		return 1, nil
	}
	return 0, nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "No such file or directory"
	case errors.Is(err, syscall.ENOTDIR):
		return "Not a directory"
	case errors.Is(err, fs.ErrPermission):
		return "Permission denied"
	default:
		return err.Error()
	}
}

func historyCmd(st *state.State, stdio IO, args []string) (int, error) {
	opts := getopt.New()
	clearOpt := opts.Bool('c', "clear the history by deleting all entries")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(append([]string{"history"}, args...), nil); err != nil || *helpOpt {
		w := stdio.Stderr
		if err != nil {
			fmt.Fprintln(w, "history:", err)
		}
		fmt.Fprintln(w, "usage: history [-c] [n]")
		fmt.Fprintln(w, "Display the history list with line numbers.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		if err != nil {
			return 2, nil
		}
		return 0, nil
	}

	if *clearOpt {
		st.History.Clear()
		return 0, nil
	}

	entries := st.History.All()
	start := 0
	switch rest := opts.Args(); len(rest) {
	case 0:
	case 1:
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 0 {
			fmt.Fprintf(stdio.Stderr, "history: %s: numeric argument required\n", rest[0])
			return 1, nil
		}
		if n < len(entries) {
			start = len(entries) - n
		}
	default:
		fmt.Fprintln(stdio.Stderr, "history: too many arguments")
		return 1, nil
	}

	for i := start; i < len(entries); i++ {
		fmt.Fprintf(stdio.Stdout, "%5d  %s\n", i+1, entries[i])
	}
	return 0, nil
}

func helpCmd(stdio IO, args []string) (int, error) {
	w := stdio.Stdout
	if len(args) == 0 {
		fmt.Fprintln(w, "gosh - Go Shell")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Builtin commands:")
		for _, name := range Names() {
			k, _ := Lookup(name)
			fmt.Fprintf(w, "  %s\n", usage[k])
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "For help on external commands, use 'man <command>'")
		return 0, nil
	}

	status := 0
	for _, name := range args {
		k, ok := Lookup(name)
		if !ok {
			fmt.Fprintf(stdio.Stderr, "help: no help topics match '%s'\n", name)
			status = 1
			continue
		}
		fmt.Fprintln(w, usage[k])
	}
	return status, nil
}

func exportCmd(st *state.State, stdio IO, args []string) (int, error) {
	if len(args) == 0 {
		for _, env := range st.Vars.Environ() {
			fmt.Fprintf(stdio.Stdout, "export %s\n", env)
		}
		return 0, nil
	}

	status := 0
	for _, arg := range args {
		name, value, hasValue := strings.Cut(arg, "=")
		var err error
		if hasValue {
			err = st.Vars.Set(name, value)
		}
		if err == nil {
			err = st.Vars.Export(name)
		}
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "export: %v\n", err)
			status = 1
		}
	}
	return status, nil
}
