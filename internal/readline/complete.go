package readline

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// special lists the characters the lexer would split a word on or treat as
// quoting; completed names escape them with a backslash.
const special = " \t\n\\'\"|;&<>"

// Completer completes the word under the cursor. A word in command position
// completes to builtins and executables on the search path, any other word
// to file names.
type Completer struct {
	Fs       afero.Fs
	Builtins func() []string
	Path     func() []string
	Dir      func() string
}

// Do implements readline.AutoCompleter. It returns the text to append for
// each candidate and the length of the part of the word after its last '/'.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	if pos > len(line) {
		pos = len(line)
	}
	start := wordStart(line[:pos])
	raw := line[start:pos]
	word := unescape(string(raw))

	var candidates []string
	if commandPosition(line[:start]) && !strings.Contains(word, "/") {
		candidates = c.commands(word)
	} else {
		candidates = c.files(word)
	}

	out := make([][]rune, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, []rune(cand))
	}
	return out, len(raw) - baseStart(raw)
}

// baseStart returns the index just past the last unescaped '/' in raw.
func baseStart(raw []rune) int {
	start := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '\\':
			i++
		case '/':
			start = i + 1
		}
	}
	if start > len(raw) {
		start = len(raw)
	}
	return start
}

// wordStart returns the index where the word ending at the end of line
// begins, honoring backslash escapes.
func wordStart(line []rune) int {
	start := 0
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\':
			i++
		case strings.ContainsRune(" \t|;&<>", line[i]):
			start = i + 1
		}
	}
	if start > len(line) {
		start = len(line)
	}
	return start
}

// commandPosition reports whether the text before a word leaves it as the
// program name of a command.
func commandPosition(before []rune) bool {
	s := strings.TrimRight(string(before), " \t")
	return s == "" || strings.HasSuffix(s, "|") || strings.HasSuffix(s, ";") || strings.HasSuffix(s, "&")
}

func (c *Completer) commands(prefix string) []string {
	seen := map[string]bool{}
	var names []string
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	if c.Builtins != nil {
		for _, name := range c.Builtins() {
			add(name)
		}
	}
	if c.Path != nil {
		for _, dir := range c.Path() {
			infos, err := afero.ReadDir(c.Fs, dir)
			if err != nil {
				continue
			}
			for _, info := range infos {
				if info.Mode().IsRegular() && info.Mode()&0111 != 0 {
					add(info.Name())
				}
			}
		}
	}

	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, escape(name[len(prefix):])+" ")
	}
	return out
}

func (c *Completer) files(word string) []string {
	dirPart, base := "", word
	if i := strings.LastIndex(word, "/"); i >= 0 {
		dirPart, base = word[:i+1], word[i+1:]
	}

	dir := dirPart
	switch {
	case dir == "":
		dir = c.Dir()
	case !filepath.IsAbs(dir):
		dir = filepath.Join(c.Dir(), dir)
	}

	infos, err := afero.ReadDir(c.Fs, dir)
	if err != nil {
		return nil
	}

	var out []string
	for _, info := range infos {
		name := info.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		suffix := escape(name[len(base):])
		if info.IsDir() {
			suffix += "/"
		} else {
			suffix += " "
		}
		out = append(out, suffix)
	}
	return out
}

func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unescape(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
