package state

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// LookPath searches for an executable named file in the directories of the
// shell's PATH. A name containing a slash is tried directly, relative to Dir,
// and yields fs.ErrPermission if it exists but is not executable.
func (s *State) LookPath(file string) (string, error) {
	if strings.Contains(file, "/") {
		path := s.Resolve(file)
		err := findExecutable(path)
		switch {
		case err == nil:
			return path, nil
		case err == fs.ErrPermission:
			return "", err
		default:
			return "", ErrNotFound
		}
	}

	for _, dir := range s.Path() {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := s.Resolve(filepath.Join(dir, file))
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}
