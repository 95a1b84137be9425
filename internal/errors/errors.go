// Package errors carries position-tagged diagnostics for the lexer and
// parser. Errors never cross the prompt boundary: the REPL formats them
// to stderr and starts the next iteration fresh.
package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// SyntaxError represents a lexical or syntactic error with the byte
// offset of the offending character in the source line.
type SyntaxError struct {
	Message string
	Pos     int
	Source  string // the original command line
}

// Error implements the error interface
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}

// Format renders the error with the source line and a caret pointing at
// the error position.
func (e *SyntaxError) Format() string {
	var result strings.Builder

	result.WriteString(fmt.Sprintf("%s: %s\n", color.RedString("dsh: syntax error"), e.Message))

	// Keep the caret on screen for a single-line source.
	line := e.Source
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	pos := e.Pos
	if pos > len(line) {
		pos = len(line)
	}

	result.WriteString("  " + line + "\n")
	result.WriteString("  " + strings.Repeat(" ", pos) + color.RedString("^") + "\n")

	return result.String()
}

// NewSyntaxError creates a new syntax error
func NewSyntaxError(message string, pos int, source string) *SyntaxError {
	return &SyntaxError{
		Message: message,
		Pos:     pos,
		Source:  source,
	}
}
