// Package ast defines the command tree produced by the parser and
// consumed by the executor. Every node renders back to a runnable
// command string via String(); the executor uses that rendering for job
// listings and for re-executing compound nodes in child shells.
package ast

import "strings"

// Node represents any node in the command tree
type Node interface {
	String() string
	node()
}

// Command is a simple command: a non-empty word vector
type Command struct {
	Words []string
}

// Pipeline connects Left's stdout (and stderr when ForwardStderr is set)
// to Right's stdin. Chains are left-associative.
type Pipeline struct {
	Left          Node
	Right         Node
	ForwardStderr bool
}

// Sequence runs Left to completion, then Right
type Sequence struct {
	Left  Node
	Right Node
}

// And runs Right only if Left exits zero
type And struct {
	Left  Node
	Right Node
}

// Or runs Right only if Left exits non-zero
type Or struct {
	Left  Node
	Right Node
}

// Background detaches Inner into a background job
type Background struct {
	Inner Node
}

// Subshell evaluates Inner in a child shell, isolating its effects
type Subshell struct {
	Inner Node
}

// RedirKind identifies a redirection operator
type RedirKind int

const (
	RedirIn        RedirKind = iota // < file
	RedirOut                        // > file
	RedirOutAppend                  // >> file
	RedirErr                        // 2> file
	RedirErrAppend                  // 2>> file
	RedirAll                        // &> file
	RedirAllAppend                  // &>> file
)

// Operator returns the source spelling of the redirection
func (k RedirKind) Operator() string {
	switch k {
	case RedirIn:
		return "<"
	case RedirOut:
		return ">"
	case RedirOutAppend:
		return ">>"
	case RedirErr:
		return "2>"
	case RedirErrAppend:
		return "2>>"
	case RedirAll:
		return "&>"
	case RedirAllAppend:
		return "&>>"
	}
	return "?"
}

// Redirect wraps Target with one fd replacement. The parser nests the
// first-typed redirect innermost, so the outermost wrapper is the
// last-typed one and wins when redirects overlap.
type Redirect struct {
	Target Node
	Kind   RedirKind
	Path   string
}

func (*Command) node()    {}
func (*Pipeline) node()   {}
func (*Sequence) node()   {}
func (*And) node()        {}
func (*Or) node()         {}
func (*Background) node() {}
func (*Subshell) node()   {}
func (*Redirect) node()   {}

func (c *Command) String() string {
	parts := make([]string, len(c.Words))
	for i, w := range c.Words {
		parts[i] = QuoteWord(w)
	}
	return strings.Join(parts, " ")
}

func (p *Pipeline) String() string {
	op := " | "
	if p.ForwardStderr {
		op = " |& "
	}
	return p.Left.String() + op + p.Right.String()
}

func (s *Sequence) String() string {
	// A backgrounded left side already ends in "&", which separates it
	// from the right side; "a &; b" would not parse.
	if _, ok := s.Left.(*Background); ok {
		return s.Left.String() + " " + s.Right.String()
	}
	return s.Left.String() + "; " + s.Right.String()
}

func (a *And) String() string {
	return a.Left.String() + " && " + a.Right.String()
}

func (o *Or) String() string {
	return o.Left.String() + " || " + o.Right.String()
}

func (b *Background) String() string {
	return b.Inner.String() + " &"
}

func (s *Subshell) String() string {
	return "(" + s.Inner.String() + ")"
}

func (r *Redirect) String() string {
	return r.Target.String() + " " + r.Kind.Operator() + " " + QuoteWord(r.Path)
}

// QuoteWord renders a word so that re-lexing it yields the same text.
// Plain words pass through untouched; anything holding whitespace,
// operator characters, quotes or expansion characters is single-quoted,
// with embedded single quotes spelled '\''.
func QuoteWord(w string) string {
	if w != "" && !strings.ContainsAny(w, " \t\n\r|&><;()'\"\\$`#") {
		return w
	}
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
}
