// Package prompt expands PS1-style prompt templates.
package prompt

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/cryptexctl/gosh/internal/state"
)

const (
	EnvPS1  = "PS1"
	EnvUser = "USER"

	DefaultPS1 = `\u@\h:\w\$ `
)

var (
	userColor   = color.New(color.FgGreen, color.Bold)
	dirColor    = color.New(color.FgBlue, color.Bold)
	statusColor = color.New(color.FgRed)
)

type Manager struct {
	state *state.State
	color bool

	user string
	uid  string
	host string
	now  func() time.Time
}

// New returns a prompt generator for st. With useColor the user, host and
// directory are highlighted.
func New(st *state.State, useColor bool) *Manager {
	m := &Manager{
		state: st,
		color: useColor,
		now:   time.Now,
	}
	if u, err := user.Current(); err == nil {
		m.user = u.Username
		m.uid = u.Uid
	}
	if host, err := os.Hostname(); err == nil {
		m.host = host
	}
	return m
}

// Generate expands $PS1 given the status of the previous command.
func (m *Manager) Generate(status int) string {
	ps1, ok := m.state.Vars.Lookup(EnvPS1)
	if !ok {
		ps1 = DefaultPS1
	}
	return m.Expand(ps1, status)
}

// Expand interprets the backslash sequences of template. Unknown sequences
// are kept as written.
func (m *Manager) Expand(template string, status int) string {
	var b strings.Builder
	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' || i == len(runes)-1 {
			b.WriteRune(runes[i])
			continue
		}
		i++
		switch runes[i] {
		case 'u':
			b.WriteString(m.paint(userColor, m.username()))
		case 'h':
			host := m.host
			if dot := strings.IndexByte(host, '.'); dot >= 0 {
				host = host[:dot]
			}
			b.WriteString(m.paint(userColor, host))
		case 'H':
			b.WriteString(m.paint(userColor, m.host))
		case 'w':
			b.WriteString(m.paint(dirColor, m.dir()))
		case 'W':
			b.WriteString(m.paint(dirColor, filepath.Base(m.dir())))
		case '$':
			if m.uid == "0" {
				b.WriteByte('#')
			} else {
				b.WriteByte('$')
			}
		case '?':
			if status != 0 {
				b.WriteString(m.paint(statusColor, strconv.Itoa(status)))
			} else {
				b.WriteByte('0')
			}
		case 't':
			b.WriteString(m.now().Format("15:04:05"))
		case 'A':
			b.WriteString(m.now().Format("15:04"))
		case 'd':
			b.WriteString(m.now().Format("Mon Jan 02"))
		case 's':
			b.WriteString("gosh")
		case 'n':
			b.WriteByte('\n')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteRune('\\')
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

func (m *Manager) username() string {
	if u := m.state.Vars.Get(EnvUser); u != "" {
		return u
	}
	return m.user
}

// dir is the working directory with $HOME abbreviated to ~.
func (m *Manager) dir() string {
	dir := m.state.Dir
	home := m.state.Home()
	switch {
	case home == "" || home == "/":
		return dir
	case dir == home:
		return "~"
	case strings.HasPrefix(dir, home+"/"):
		return "~" + dir[len(home):]
	default:
		return dir
	}
}

func (m *Manager) paint(c *color.Color, s string) string {
	if !m.color || s == "" {
		return s
	}
	return c.Sprint(s)
}
