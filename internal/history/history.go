package history

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Manager keeps the lines entered in this and earlier sessions. It is safe
// for concurrent use.
type Manager struct {
	fs   afero.Fs
	path string

	mu    sync.Mutex
	limit int
	lines []string
}

// New creates a history backed by file on fsys. An empty file name keeps the
// history in memory only. A limit of zero or less keeps every line.
func New(fsys afero.Fs, file string, limit int) *Manager {
	return &Manager{fs: fsys, path: file, limit: limit}
}

// Add records command unless it is blank or repeats the previous line.
func (m *Manager) Add(command string) {
	line := strings.TrimSpace(command)
	m.mu.Lock()
	defer m.mu.Unlock()
	if line == "" || line == m.last() {
		return
	}
	m.lines = append(m.lines, line)
	m.enforceLimit()
}

func (m *Manager) last() string {
	if n := len(m.lines); n > 0 {
		return m.lines[n-1]
	}
	return ""
}

// Get returns the line at index, or "" when it is out of range.
func (m *Manager) Get(index int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.lines) {
		return ""
	}
	return m.lines[index]
}

func (m *Manager) Search(query string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []string
	for _, line := range m.lines {
		if strings.Contains(line, query) {
			found = append(found, line)
		}
	}
	return found
}

func (m *Manager) All() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

func (m *Manager) Clear() {
	m.mu.Lock()
	m.lines = nil
	m.mu.Unlock()
}

func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines)
}

func (m *Manager) SetMaxSize(limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = limit
	m.enforceLimit()
}

func (m *Manager) enforceLimit() {
	if over := len(m.lines) - m.limit; m.limit > 0 && over > 0 {
		m.lines = append([]string(nil), m.lines[over:]...)
	}
}

// Load appends the lines stored in the history file. A missing file is not
// an error.
func (m *Manager) Load() error {
	if m.path == "" {
		return nil
	}

	f, err := m.fs.Open(m.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			m.lines = append(m.lines, line)
		}
	}
	m.enforceLimit()
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	return nil
}

// Save replaces the history file with the current lines.
func (m *Manager) Save() error {
	if m.path == "" {
		return nil
	}

	f, err := m.fs.OpenFile(m.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}

	w := bufio.NewWriter(f)
	m.mu.Lock()
	for _, line := range m.lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	m.mu.Unlock()
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("save history: %w", err)
	}
	return f.Close()
}

func (m *Manager) File() string {
	return m.path
}
