// Package parser builds the command tree from the token stream by
// recursive descent. Precedence, lowest first: list (';' '&'), and-or
// ('&&' '||'), pipeline ('|' '|&'), primary (command or subshell), with
// redirections binding tighter than any operator.
package parser

import (
	"fmt"

	"github.com/phillarmonic/dsh/internal/ast"
	dsherrors "github.com/phillarmonic/dsh/internal/errors"
	"github.com/phillarmonic/dsh/internal/lexer"
)

// Parser parses a token slice into an AST
type Parser struct {
	tokens []lexer.Token
	pos    int
	source string
}

// NewParser creates a parser over an already-lexed (and expanded) token
// slice. The source line is kept for diagnostics only.
func NewParser(tokens []lexer.Token, source string) *Parser {
	return &Parser{tokens: tokens, source: source}
}

// Parse parses one command line. A blank line yields (nil, nil).
func (p *Parser) Parse() (ast.Node, error) {
	for _, tok := range p.tokens {
		if tok.Type == lexer.ILLEGAL {
			return nil, dsherrors.NewSyntaxError(tok.Literal, tok.Pos, p.source)
		}
	}

	p.skipNewlines()
	if p.cur().Type == lexer.EOF {
		return nil, nil
	}

	tree, err := p.parseList()
	if err != nil {
		return nil, err
	}

	p.skipNewlines()
	if tok := p.cur(); tok.Type != lexer.EOF {
		return nil, p.errorf(tok, "unexpected token '%s'", tokenText(tok))
	}

	return tree, nil
}

// cur returns the current token; the slice always ends in EOF so the
// parser never walks past it.
func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF, Pos: len(p.source)}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

// match consumes the current token if it has the given type
func (p *Parser) match(t lexer.TokenType) bool {
	if p.cur().Type == t {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) skipNewlines() {
	for p.match(lexer.NEWLINE) {
	}
}

func (p *Parser) errorf(tok lexer.Token, format string, args ...interface{}) error {
	return dsherrors.NewSyntaxError(fmt.Sprintf(format, args...), tok.Pos, p.source)
}

// tokenText renders a token for diagnostics
func tokenText(tok lexer.Token) string {
	if tok.Type == lexer.WORD {
		return tok.Literal
	}
	return tok.Type.String()
}

// parseList handles ';' and '&'. A trailing ';' is dropped; a trailing
// '&' detaches the accumulated left side. When '&' is followed by more
// input the result is Sequence(Background(left), right).
func (p *Parser) parseList() (ast.Node, error) {
	left, err := p.parseAndOr()
	if err != nil {
		return nil, err
	}

	for {
		var op lexer.TokenType
		switch p.cur().Type {
		case lexer.SEMICOLON, lexer.AMPERSAND:
			op = p.cur().Type
			p.advance()
		default:
			return left, nil
		}

		p.skipNewlines()

		// Operator at end of input: "sleep 5 &" or "ls;"
		if t := p.cur().Type; t == lexer.EOF || t == lexer.RPAREN {
			if op == lexer.AMPERSAND {
				return &ast.Background{Inner: left}, nil
			}
			return left, nil
		}

		right, err := p.parseAndOr()
		if err != nil {
			return nil, err
		}

		if op == lexer.SEMICOLON {
			left = &ast.Sequence{Left: left, Right: right}
		} else {
			left = &ast.Sequence{Left: &ast.Background{Inner: left}, Right: right}
		}
	}
}

// parseAndOr handles '&&' and '||', left-associative
func (p *Parser) parseAndOr() (ast.Node, error) {
	if tok := p.cur(); tok.Type == lexer.AND_IF || tok.Type == lexer.OR_IF {
		return nil, p.errorf(tok, "unexpected '%s' at beginning of command", tok.Type)
	}

	left, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}

	for {
		op := p.cur().Type
		if op != lexer.AND_IF && op != lexer.OR_IF {
			return left, nil
		}
		p.advance()

		right, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}

		if op == lexer.AND_IF {
			left = &ast.And{Left: left, Right: right}
		} else {
			left = &ast.Or{Left: left, Right: right}
		}
	}
}

// parsePipeline handles '|' and '|&', left-associative
func (p *Parser) parsePipeline() (ast.Node, error) {
	if tok := p.cur(); tok.Type == lexer.PIPE || tok.Type == lexer.PIPE_BOTH {
		return nil, p.errorf(tok, "unexpected '%s' at beginning of command", tok.Type)
	}

	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		op := p.cur().Type
		if op != lexer.PIPE && op != lexer.PIPE_BOTH {
			return left, nil
		}
		p.advance()

		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		left = &ast.Pipeline{Left: left, Right: right, ForwardStderr: op == lexer.PIPE_BOTH}
	}
}

// parsePrimary parses a subshell or a simple command, then any trailing
// redirections.
func (p *Parser) parsePrimary() (ast.Node, error) {
	if open := p.cur(); open.Type == lexer.LPAREN {
		p.advance()

		inner, err := p.parseList()
		if err != nil {
			return nil, err
		}

		if !p.match(lexer.RPAREN) {
			return nil, p.errorf(p.cur(), "expected ')' after subshell")
		}

		return p.parseRedirects(&ast.Subshell{Inner: inner})
	}

	cmd, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	return p.parseRedirects(cmd)
}

// parseCommand collects the word vector of a simple command
func (p *Parser) parseCommand() (ast.Node, error) {
	var words []string
	for p.cur().Type == lexer.WORD {
		words = append(words, p.cur().Literal)
		p.advance()
	}

	if len(words) == 0 {
		tok := p.cur()
		return nil, p.errorf(tok, "expected command, got '%s'", tokenText(tok))
	}

	return &ast.Command{Words: words}, nil
}

// parseRedirects wraps node with one Redirect per redir-op/word pair.
// The first redirect becomes the innermost wrapper, so the outermost
// Redirect in the tree is the last one typed.
func (p *Parser) parseRedirects(node ast.Node) (ast.Node, error) {
	for {
		op := p.cur()
		if !op.Type.IsRedirect() {
			return node, nil
		}
		p.advance()

		file := p.cur()
		if file.Type != lexer.WORD {
			return nil, p.errorf(op, "expected filename after '%s'", op.Type)
		}
		p.advance()

		node = &ast.Redirect{Target: node, Kind: redirKind(op.Type), Path: file.Literal}
	}
}

func redirKind(t lexer.TokenType) ast.RedirKind {
	switch t {
	case lexer.REDIR_IN:
		return ast.RedirIn
	case lexer.REDIR_OUT:
		return ast.RedirOut
	case lexer.REDIR_OUT_APPEND:
		return ast.RedirOutAppend
	case lexer.REDIR_ERR:
		return ast.RedirErr
	case lexer.REDIR_ERR_APPEND:
		return ast.RedirErrAppend
	case lexer.REDIR_ALL:
		return ast.RedirAll
	default:
		return ast.RedirAllAppend
	}
}
