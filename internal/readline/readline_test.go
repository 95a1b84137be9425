package readline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsContinuation(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"echo done", false},
		{"echo 'open", true},
		{`echo "open`, true},
		{`echo line\`, true},
		{"echo 'closed'", false},
		{"echo 'multi\nline'", false},
		{"echo a\\\nb", false},
		{"", false},
		{"cmd > ", false}, // syntax errors are the parser's problem
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, needsContinuation(tt.input), "input %q", tt.input)
	}
}
