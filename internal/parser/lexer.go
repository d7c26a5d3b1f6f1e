package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cryptexctl/gosh/internal/shellerr"
)

type TokenType int

const (
	TokenWord TokenType = iota
	TokenPipe
	TokenSemicolon
	TokenRedirectIn
	TokenRedirectOut
	TokenBackground
	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenWord:
		return "word"
	case TokenPipe:
		return "|"
	case TokenSemicolon:
		return ";"
	case TokenRedirectIn:
		return "<"
	case TokenRedirectOut:
		return ">"
	case TokenBackground:
		return "&"
	case TokenEOF:
		return "end of input"
	default:
		return fmt.Sprintf("token(%d)", int(t))
	}
}

// Token is a word or an operator. Fd and Append are only meaningful for redirects.
type Token struct {
	Type   TokenType
	Value  string
	Fd     int
	Append bool
	Pos    int // byte offset of the token in the input
}

func (t Token) String() string {
	switch t.Type {
	case TokenWord:
		return strconv.Quote(t.Value)
	case TokenRedirectOut:
		op := ">"
		if t.Append {
			op = ">>"
		}
		return strconv.Itoa(t.Fd) + op
	case TokenRedirectIn:
		return strconv.Itoa(t.Fd) + "<"
	default:
		return t.Type.String()
	}
}

type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize splits input into words and operators, resolving quotes and escapes.
// Bytes that are not valid UTF-8 are copied into words unchanged.
func Tokenize(input string) ([]Token, error) {
	return NewLexer(input).Tokenize()
}

// peek returns the rune at the cursor and its width in bytes. An invalid
// byte is returned as utf8.RuneError with width 1.
func (l *Lexer) peek() (rune, int) {
	return utf8.DecodeRuneInString(l.input[l.pos:])
}

func (l *Lexer) Tokenize() ([]Token, error) {
	for l.pos < len(l.input) {
		ch, _ := l.peek()
		if unicode.IsSpace(ch) {
			l.skipWhitespace()
			continue
		}

		if isDigit(ch) && l.tokenizeDescriptorRedirect() {
			continue
		}

		start := l.pos
		switch ch {
		case '|':
			l.pos++
			l.addToken(Token{Type: TokenPipe, Value: "|"}, start)
		case ';':
			l.pos++
			l.addToken(Token{Type: TokenSemicolon, Value: ";"}, start)
		case '&':
			l.pos++
			l.addToken(Token{Type: TokenBackground, Value: "&"}, start)
		case '>':
			l.pos++
			l.addRedirectOut(1, start)
		case '<':
			l.pos++
			l.addToken(Token{Type: TokenRedirectIn, Value: "<", Fd: 0}, start)
		default:
			if err := l.tokenizeWord(); err != nil {
				return nil, err
			}
		}
	}

	return l.tokens, nil
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		ch, size := l.peek()
		if !unicode.IsSpace(ch) {
			return
		}
		l.pos += size
	}
}

// tokenizeDescriptorRedirect consumes N> / N>> / N< at the cursor. It leaves
// the cursor alone and returns false when the digit run is an ordinary word.
func (l *Lexer) tokenizeDescriptorRedirect() bool {
	start := l.pos
	end := start
	for end < len(l.input) && isDigit(rune(l.input[end])) {
		end++
	}
	if end >= len(l.input) || (l.input[end] != '>' && l.input[end] != '<') {
		return false
	}

	fd, err := strconv.Atoi(l.input[start:end])
	if err != nil {
		return false
	}

	op := l.input[end]
	l.pos = end + 1
	if op == '<' {
		l.addToken(Token{Type: TokenRedirectIn, Value: l.input[start:l.pos], Fd: fd}, start)
		return true
	}
	l.addRedirectOut(fd, start)
	return true
}

// addRedirectOut emits a '>' token for fd, folding a directly following '>' into an append.
func (l *Lexer) addRedirectOut(fd int, start int) {
	tok := Token{Type: TokenRedirectOut, Fd: fd}
	if l.pos < len(l.input) && l.input[l.pos] == '>' {
		l.pos++
		tok.Append = true
	}
	tok.Value = l.input[start:l.pos]
	l.addToken(tok, start)
}

// take copies the rune at the cursor into word as its original bytes.
func (l *Lexer) take(word *strings.Builder) {
	_, size := l.peek()
	word.WriteString(l.input[l.pos : l.pos+size])
	l.pos += size
}

func (l *Lexer) tokenizeWord() error {
	start := l.pos
	var word strings.Builder

	for l.pos < len(l.input) {
		ch, _ := l.peek()

		switch {
		case ch == '\'':
			l.pos++
			if err := l.readSingleQuoted(&word); err != nil {
				return err
			}
			continue
		case ch == '"':
			l.pos++
			if err := l.readDoubleQuoted(&word); err != nil {
				return err
			}
			continue
		case unicode.IsSpace(ch) || isOperator(ch):
			goto done
		case ch == '\\':
			l.pos++
			if l.pos < len(l.input) {
				l.take(&word)
			}
			continue
		}

		l.take(&word)
	}

done:
	if word.Len() > 0 {
		l.addToken(Token{Type: TokenWord, Value: word.String()}, start)
	}
	return nil
}

func (l *Lexer) readSingleQuoted(word *strings.Builder) error {
	for l.pos < len(l.input) {
		if l.input[l.pos] == '\'' {
			l.pos++
			return nil
		}
		l.take(word)
	}
	return shellerr.Parse("Unclosed single quote")
}

func (l *Lexer) readDoubleQuoted(word *strings.Builder) error {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case '"':
			l.pos++
			return nil
		case '\\':
			l.pos++
			if l.pos >= len(l.input) {
				// Backslash was the last character; the quote is still open.
				continue
			}
			switch l.input[l.pos] {
			case '$', '`', '"', '\\':
				l.take(word)
			case '\n':
				l.pos++
			default:
				word.WriteByte('\\')
				l.take(word)
			}
		default:
			l.take(word)
		}
	}
	return shellerr.Parse("Unclosed double quote")
}

func (l *Lexer) addToken(tok Token, start int) {
	tok.Pos = start
	l.tokens = append(l.tokens, tok)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isOperator(ch rune) bool {
	switch ch {
	case '|', ';', '>', '<', '&':
		return true
	}
	return false
}
