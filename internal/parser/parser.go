package parser

import (
	"github.com/cryptexctl/gosh/internal/ast"
	"github.com/cryptexctl/gosh/internal/shellerr"
)

type Parser struct {
	tokens []Token
	pos    int
}

func New() *Parser {
	return &Parser{}
}

// ParseLine tokenizes and parses a full input line.
func ParseLine(input string) ([]*ast.Pipeline, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	return New().Parse(tokens)
}

// Parse builds the pipelines of one input line. ';' and '&' separate
// pipelines; a trailing separator is allowed.
func (p *Parser) Parse(tokens []Token) ([]*ast.Pipeline, error) {
	p.tokens = tokens
	p.pos = 0

	var pipelines []*ast.Pipeline

	for p.pos < len(p.tokens) {
		pipeline, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}

		switch p.current().Type {
		case TokenSemicolon:
			p.advance()
		case TokenBackground:
			pipeline.Background = true
			p.advance()
		}

		pipelines = append(pipelines, pipeline)
	}

	return pipelines, nil
}

func (p *Parser) parsePipeline() (*ast.Pipeline, error) {
	cmd, err := p.parseCommand()
	if err != nil {
		return nil, err
	}

	pipeline := &ast.Pipeline{Commands: []*ast.Command{cmd}}

	for p.current().Type == TokenPipe {
		p.advance()

		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		pipeline.Commands = append(pipeline.Commands, cmd)
	}

	return pipeline, nil
}

func (p *Parser) parseCommand() (*ast.Command, error) {
	first := p.current()
	if first.Type != TokenWord {
		return nil, shellerr.Parse("Unexpected end of input")
	}
	p.advance()

	cmd := &ast.Command{Program: first.Value}

	for {
		token := p.current()

		switch token.Type {
		case TokenPipe, TokenSemicolon, TokenBackground, TokenEOF:
			return cmd, nil
		case TokenRedirectIn:
			if token.Fd != 0 {
				return nil, shellerr.Parse("unsupported input descriptor %d", token.Fd)
			}
			p.advance()
			target, ok := p.expectWord()
			if !ok {
				return nil, shellerr.Parse("Expected file name after '<'")
			}
			cmd.Input = target
		case TokenRedirectOut:
			p.advance()
			target, ok := p.expectWord()
			if !ok {
				return nil, shellerr.Parse("Expected file name after '>'")
			}
			cmd.Redirects = append(cmd.Redirects, ast.Redirection{
				Path:   target,
				Fd:     token.Fd,
				Append: token.Append,
			})
		case TokenWord:
			cmd.Args = append(cmd.Args, token.Value)
			p.advance()
		}
	}
}

// expectWord consumes the current token if it is a word.
func (p *Parser) expectWord() (string, bool) {
	token := p.current()
	if token.Type != TokenWord {
		return "", false
	}
	p.advance()
	return token.Value, true
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}
