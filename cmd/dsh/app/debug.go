package app

import (
	"fmt"
	"os"

	"github.com/alecthomas/repr"

	dsherrors "github.com/phillarmonic/dsh/internal/errors"
	"github.com/phillarmonic/dsh/internal/lexer"
	"github.com/phillarmonic/dsh/internal/parser"
)

// runDebug dumps the token stream and/or the parsed tree for one
// command line.
func (a *App) runDebug(input string) error {
	tokens := lexer.NewLexer(input).AllTokens()

	if a.debugTokens {
		fmt.Println("Tokens:")
		for _, tok := range tokens {
			fmt.Printf("  %s\n", tok)
		}
	}

	if a.debugAST {
		tree, err := parser.NewParser(tokens, input).Parse()
		if err != nil {
			if synErr, ok := err.(*dsherrors.SyntaxError); ok {
				fmt.Fprint(os.Stderr, synErr.Format())
				a.exitCode = 2
				return nil
			}
			return err
		}
		if tree == nil {
			fmt.Println("AST: <empty>")
			return nil
		}
		fmt.Println("AST:")
		repr.Println(tree, repr.Indent("  "))
		fmt.Printf("Rendered: %s\n", tree.String())
	}

	return nil
}
