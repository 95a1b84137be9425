// Package expander rewrites Word tokens in place before parsing,
// substituting environment variables and the shell's own surfaces.
// Quoting provenance is honored: single-quoted words pass through
// untouched, double-quoted and bare words are expanded.
package expander

import (
	"os"
	"strconv"
	"strings"

	"github.com/phillarmonic/dsh/internal/lexer"
)

// State exposes the shell surfaces the expander may consult
type State interface {
	LastExitCode() int
	LastBackgroundPID() int
}

// Expander performs variable substitution on word tokens
type Expander struct {
	state State
}

// NewExpander creates a new expander bound to the shell state
func NewExpander(state State) *Expander {
	return &Expander{state: state}
}

// Expand rewrites every expandable Word token's text in place
func (e *Expander) Expand(tokens []lexer.Token) {
	for i := range tokens {
		if tokens[i].Type != lexer.WORD || tokens[i].Quote == lexer.QuoteSingle {
			continue
		}
		tokens[i].Literal = e.ExpandString(tokens[i].Literal)
	}
}

// ExpandString substitutes $NAME, ${NAME}, $? and $! occurrences.
// A '$' that introduces none of these stays literal.
func (e *Expander) ExpandString(s string) string {
	if !strings.ContainsRune(s, '$') {
		return s
	}

	var out strings.Builder
	out.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '$' {
			out.WriteByte(s[i])
			i++
			continue
		}
		i++ // consume '$'

		switch {
		case i < len(s) && s[i] == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				// unterminated ${ stays literal
				out.WriteString("${")
				i++
				continue
			}
			out.WriteString(e.lookup(s[i+1 : i+end]))
			i += end + 1

		case i < len(s) && s[i] == '?':
			out.WriteString(strconv.Itoa(e.state.LastExitCode()))
			i++

		case i < len(s) && s[i] == '!':
			if pid := e.state.LastBackgroundPID(); pid > 0 {
				out.WriteString(strconv.Itoa(pid))
			}
			i++

		case i < len(s) && isNameStart(s[i]):
			start := i
			for i < len(s) && isNameChar(s[i]) {
				i++
			}
			out.WriteString(e.lookup(s[start:i]))

		default:
			out.WriteByte('$')
		}
	}

	return out.String()
}

func (e *Expander) lookup(name string) string {
	return os.Getenv(name)
}

func isNameStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isNameChar(ch byte) bool {
	return isNameStart(ch) || ('0' <= ch && ch <= '9')
}
