package shell

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillarmonic/dsh/internal/config"
)

func newTestShell(t *testing.T) *Shell {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := config.Default()
	cfg.NoHistory = true
	cfg.Color = false

	s, err := New(Options{Config: cfg, NonInteractive: true, Log: log})
	require.NoError(t, err)
	return s
}

func TestExecute_ExitCodes(t *testing.T) {
	s := newTestShell(t)

	assert.Equal(t, 0, s.Execute("true"))
	assert.Equal(t, 0, s.LastExitCode())

	assert.Equal(t, 1, s.Execute("false"))
	assert.Equal(t, 1, s.LastExitCode())

	assert.Equal(t, 0, s.Execute("false || true"))
	assert.Equal(t, 1, s.Execute("false && true"))
}

func TestExecute_SyntaxErrorYieldsTwo(t *testing.T) {
	s := newTestShell(t)

	assert.Equal(t, 2, s.Execute("echo 'unterminated"))
	assert.Equal(t, 2, s.LastExitCode())

	assert.Equal(t, 2, s.Execute("&& nope"))
}

func TestExecute_EmptyLine(t *testing.T) {
	s := newTestShell(t)
	assert.Equal(t, 0, s.Execute(""))
	assert.Equal(t, 0, s.Execute("   # just a comment"))
}

func TestExecute_LastExitCodeExpansion(t *testing.T) {
	s := newTestShell(t)

	s.Execute("false")
	// $? expands to the previous command's code, so sh re-exits with 1.
	assert.Equal(t, 1, s.Execute(`sh -c "exit $?"`))
}

func TestExitBuiltinStopsTheShell(t *testing.T) {
	s := newTestShell(t)

	assert.Equal(t, 3, s.RunCommand("exit 3"))
}

func TestRunCommand_ReturnsCommandCode(t *testing.T) {
	s := newTestShell(t)
	assert.Equal(t, 7, s.RunCommand("sh -c 'exit 7'"))
}

func TestExecute_HistoryRecordsParsedLines(t *testing.T) {
	s := newTestShell(t)

	s.Execute("true")
	s.Execute("echo '")
	assert.Equal(t, []string{"true"}, s.hist.Entries(), "syntax errors stay out of history")
}
