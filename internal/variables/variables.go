package variables

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

type Variable struct {
	Name     string
	Value    string
	Exported bool
	ReadOnly bool
}

// Manager stores the shell's variables. Exported ones form the environment of
// spawned commands. It never touches the process environment.
type Manager struct {
	table map[string]*Variable
}

// New returns a Manager seeded with the process environment.
func New() *Manager {
	return NewFromEnviron(os.Environ())
}

// NewFromEnviron returns a Manager seeded from KEY=VALUE pairs, all exported.
// Pairs without '=' are skipped.
func NewFromEnviron(environ []string) *Manager {
	m := &Manager{table: make(map[string]*Variable, len(environ))}
	for _, kv := range environ {
		if name, value, ok := strings.Cut(kv, "="); ok {
			m.table[name] = &Variable{Name: name, Value: value, Exported: true}
		}
	}
	return m
}

func invalid(name string) error {
	return fmt.Errorf("`%s': not a valid identifier", name)
}

// define returns the variable called name, adding an empty one if it is
// missing.
func (m *Manager) define(name string) (*Variable, error) {
	if !ValidName(name) {
		return nil, invalid(name)
	}
	v := m.table[name]
	if v == nil {
		v = &Variable{Name: name}
		m.table[name] = v
	}
	return v, nil
}

func (m *Manager) Set(name, value string) error {
	if v := m.table[name]; v != nil && v.ReadOnly {
		return fmt.Errorf("%s: readonly variable", name)
	}
	v, err := m.define(name)
	if err != nil {
		return err
	}
	v.Value = value
	return nil
}

func (m *Manager) Get(name string) string {
	value, _ := m.Lookup(name)
	return value
}

// Lookup is like Get but reports whether the variable is set.
func (m *Manager) Lookup(name string) (string, bool) {
	if v := m.table[name]; v != nil {
		return v.Value, true
	}
	return "", false
}

// Export marks name as exported, creating it empty if needed.
func (m *Manager) Export(name string) error {
	v, err := m.define(name)
	if err != nil {
		return err
	}
	v.Exported = true
	return nil
}

// Unset removes name. Unsetting a missing variable is not an error.
func (m *Manager) Unset(name string) error {
	if v := m.table[name]; v != nil && v.ReadOnly {
		return fmt.Errorf("%s: readonly variable", name)
	}
	delete(m.table, name)
	return nil
}

func (m *Manager) SetReadOnly(name string) error {
	v := m.table[name]
	if v == nil {
		return fmt.Errorf("variable %s not found", name)
	}
	v.ReadOnly = true
	return nil
}

func (m *Manager) IsExported(name string) bool {
	v := m.table[name]
	return v != nil && v.Exported
}

// Environ returns the exported variables as sorted KEY=VALUE pairs.
func (m *Manager) Environ() []string {
	env := make([]string, 0, len(m.table))
	for name, v := range m.table {
		if v.Exported {
			env = append(env, name+"="+v.Value)
		}
	}
	sort.Strings(env)
	return env
}

// ValidName reports whether name is a legal variable identifier.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
