package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_OperatorsAndWords(t *testing.T) {
	input := `cat file.txt | grep -v foo && echo ok || echo fail; sleep 5 &`

	lexer := NewLexer(input)

	expectedTokens := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{WORD, "cat"},
		{WORD, "file.txt"},
		{PIPE, ""},
		{WORD, "grep"},
		{WORD, "-v"},
		{WORD, "foo"},
		{AND_IF, ""},
		{WORD, "echo"},
		{WORD, "ok"},
		{OR_IF, ""},
		{WORD, "echo"},
		{WORD, "fail"},
		{SEMICOLON, ""},
		{WORD, "sleep"},
		{WORD, "5"},
		{AMPERSAND, ""},
		{EOF, ""},
	}

	for i, expected := range expectedTokens {
		tok := lexer.NextToken()

		if tok.Type != expected.expectedType {
			t.Fatalf("test[%d] - tokentype wrong. expected=%q, got=%q (literal: %q)",
				i, expected.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != expected.expectedLiteral {
			t.Fatalf("test[%d] - literal wrong. expected=%q, got=%q",
				i, expected.expectedLiteral, tok.Literal)
		}
	}
}

func TestLexer_Redirections(t *testing.T) {
	tests := []struct {
		input string
		types []TokenType
	}{
		{"cmd > out", []TokenType{WORD, REDIR_OUT, WORD, EOF}},
		{"cmd >> out", []TokenType{WORD, REDIR_OUT_APPEND, WORD, EOF}},
		{"cmd < in", []TokenType{WORD, REDIR_IN, WORD, EOF}},
		{"cmd 2> err", []TokenType{WORD, REDIR_ERR, WORD, EOF}},
		{"cmd 2>> err", []TokenType{WORD, REDIR_ERR_APPEND, WORD, EOF}},
		{"cmd &> all", []TokenType{WORD, REDIR_ALL, WORD, EOF}},
		{"cmd &>> all", []TokenType{WORD, REDIR_ALL_APPEND, WORD, EOF}},
		{"a | b", []TokenType{WORD, PIPE, WORD, EOF}},
		{"a |& b", []TokenType{WORD, PIPE_BOTH, WORD, EOF}},
		{"(a; b)", []TokenType{LPAREN, WORD, SEMICOLON, WORD, RPAREN, EOF}},
	}

	for _, tt := range tests {
		tokens := NewLexer(tt.input).AllTokens()
		require.Len(t, tokens, len(tt.types), "input %q", tt.input)
		for i, typ := range tt.types {
			assert.Equal(t, typ, tokens[i].Type, "input %q token %d", tt.input, i)
		}
	}
}

func TestLexer_ErrRedirOnlyAtTokenStart(t *testing.T) {
	// "a2>" is the word "a2" followed by ">", not a stderr redirect.
	tokens := NewLexer("a2> out").AllTokens()
	require.Len(t, tokens, 4)
	assert.Equal(t, WORD, tokens[0].Type)
	assert.Equal(t, "a2", tokens[0].Literal)
	assert.Equal(t, REDIR_OUT, tokens[1].Type)

	// A bare "2" is an ordinary word.
	tokens = NewLexer("echo 2").AllTokens()
	require.Len(t, tokens, 3)
	assert.Equal(t, "2", tokens[1].Literal)
}

func TestLexer_Quoting(t *testing.T) {
	tests := []struct {
		input   string
		literal string
		quote   QuoteType
	}{
		{`'hello world'`, "hello world", QuoteSingle},
		{`"hello world"`, "hello world", QuoteDouble},
		{`hello`, "hello", QuoteNone},
		{`'$HOME'`, "$HOME", QuoteSingle},
		{`"$HOME"`, "$HOME", QuoteDouble},
		{`"a\"b"`, `a"b`, QuoteDouble},
		{`"a\\b"`, `a\b`, QuoteDouble},
		{`"a\$b"`, `a$b`, QuoteDouble},
		{"\"a\\`b\"", "a`b", QuoteDouble},
		{`"a\nb"`, `a\nb`, QuoteDouble}, // unknown escape stays literal
		{`""`, "", QuoteDouble},
		{`''`, "", QuoteSingle},
		{`a'b'c`, "abc", QuoteSingle},
		{`a"b"c`, "abc", QuoteDouble},
		{`'a'"b"`, "ab", QuoteSingle}, // single wins over double
		{`a\ b`, "a b", QuoteNone},
		{`a\|b`, "a|b", QuoteNone},
		{`a\'b`, "a'b", QuoteNone},
	}

	for _, tt := range tests {
		tokens := NewLexer(tt.input).AllTokens()
		require.Len(t, tokens, 2, "input %q", tt.input)
		tok := tokens[0]
		assert.Equal(t, WORD, tok.Type, "input %q", tt.input)
		assert.Equal(t, tt.literal, tok.Literal, "input %q", tt.input)
		assert.Equal(t, tt.quote, tok.Quote, "input %q", tt.input)
	}
}

func TestLexer_SingleQuoteRequoteRoundTrip(t *testing.T) {
	// Any word text survives a round trip through single quotes.
	words := []string{"plain", "has space", "$VAR", `back\slash`, "a|b&c", ""}
	for _, w := range words {
		tokens := NewLexer("'" + w + "'").AllTokens()
		require.Len(t, tokens, 2)
		assert.Equal(t, w, tokens[0].Literal)
	}
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		input string
		pos   int
	}{
		{`echo 'unterminated`, 5},
		{`echo "unterminated`, 5},
		{`echo trailing\`, 13},
	}

	for _, tt := range tests {
		tokens := NewLexer(tt.input).AllTokens()
		require.GreaterOrEqual(t, len(tokens), 2, "input %q", tt.input)
		errTok := tokens[len(tokens)-2]
		assert.Equal(t, ILLEGAL, errTok.Type, "input %q", tt.input)
		assert.Equal(t, tt.pos, errTok.Pos, "input %q", tt.input)
		assert.Equal(t, EOF, tokens[len(tokens)-1].Type, "input %q", tt.input)
	}
}

func TestLexer_CommentsAndNewlines(t *testing.T) {
	tokens := NewLexer("echo hi # a comment\necho bye").AllTokens()
	types := []TokenType{WORD, WORD, NEWLINE, WORD, WORD, EOF}
	require.Len(t, tokens, len(types))
	for i, typ := range types {
		assert.Equal(t, typ, tokens[i].Type, "token %d", i)
	}

	tokens = NewLexer("a\r\nb").AllTokens()
	require.Len(t, tokens, 4)
	assert.Equal(t, NEWLINE, tokens[1].Type)
}

func TestLexer_AlwaysEndsInEOF(t *testing.T) {
	inputs := []string{"", "   ", "# only a comment", "ls", "'bad", "a | b", "\\"}
	for _, input := range inputs {
		tokens := NewLexer(input).AllTokens()
		require.NotEmpty(t, tokens, "input %q", input)
		assert.Equal(t, EOF, tokens[len(tokens)-1].Type, "input %q", input)
	}
}

func TestLexer_Positions(t *testing.T) {
	tokens := NewLexer("ls -l | wc").AllTokens()
	require.Len(t, tokens, 5)
	assert.Equal(t, 0, tokens[0].Pos)
	assert.Equal(t, 3, tokens[1].Pos)
	assert.Equal(t, 6, tokens[2].Pos)
	assert.Equal(t, 8, tokens[3].Pos)
}
