package builtins

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillarmonic/dsh/internal/history"
	"github.com/phillarmonic/dsh/internal/job"
	"github.com/phillarmonic/dsh/internal/jobcontrol"
)

type exitRecorder struct {
	requested bool
	code      int
}

func (r *exitRecorder) RequestExit(code int) {
	r.requested = true
	r.code = code
}

func newTestBuiltins(t *testing.T) (*Builtins, *bytes.Buffer, *bytes.Buffer, *exitRecorder) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)
	jc := jobcontrol.NewController(log)

	hist, err := history.Open(100, true)
	require.NoError(t, err)

	rec := &exitRecorder{}
	b := New(jc, hist, rec)

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	b.out = out
	b.errOut = errOut
	return b, out, errOut, rec
}

func TestIsBuiltin(t *testing.T) {
	b, _, _, _ := newTestBuiltins(t)

	for _, name := range []string{"cd", "pwd", "echo", "exit", "help", "jobs", "fg", "bg", "kill", "set", "unset", "history"} {
		assert.True(t, b.IsBuiltin(name), "builtin %q", name)
	}
	assert.False(t, b.IsBuiltin("ls"))
	assert.False(t, b.IsBuiltin(""))
}

func TestEcho(t *testing.T) {
	b, out, _, _ := newTestBuiltins(t)

	assert.Equal(t, 0, b.Run([]string{"echo", "hello", "world"}))
	assert.Equal(t, "hello world\n", out.String())

	out.Reset()
	assert.Equal(t, 0, b.Run([]string{"echo"}))
	assert.Equal(t, "\n", out.String())
}

func TestPwd(t *testing.T) {
	b, out, _, _ := newTestBuiltins(t)

	dir := t.TempDir()
	t.Chdir(dir)

	require.Equal(t, 0, b.Run([]string{"pwd"}))
	assert.Contains(t, out.String(), dir)
}

func TestCd_UpdatesOldpwd(t *testing.T) {
	b, out, _, _ := newTestBuiltins(t)

	start := t.TempDir()
	next := t.TempDir()
	t.Chdir(start)

	require.Equal(t, 0, b.Run([]string{"cd", next}))

	// cd - goes back and prints the target
	require.Equal(t, 0, b.Run([]string{"cd", "-"}))
	assert.Contains(t, out.String(), start)
}

func TestCd_MissingDir(t *testing.T) {
	b, _, errOut, _ := newTestBuiltins(t)

	assert.Equal(t, 1, b.Run([]string{"cd", "/nonexistent-dsh-dir"}))
	assert.Contains(t, errOut.String(), "/nonexistent-dsh-dir")
}

func TestExit(t *testing.T) {
	b, _, _, rec := newTestBuiltins(t)

	assert.Equal(t, 0, b.Run([]string{"exit"}))
	assert.True(t, rec.requested)
	assert.Equal(t, 0, rec.code)

	assert.Equal(t, 4, b.Run([]string{"exit", "4"}))
	assert.Equal(t, 4, rec.code)

	assert.Equal(t, 2, b.Run([]string{"exit", "nope"}))
	assert.Equal(t, 2, rec.code)
}

func TestSetUnset(t *testing.T) {
	b, _, errOut, _ := newTestBuiltins(t)

	require.Equal(t, 0, b.Run([]string{"set", "DSH_BUILTIN_TEST=ok"}))
	assert.Equal(t, "ok", os.Getenv("DSH_BUILTIN_TEST"))

	require.Equal(t, 0, b.Run([]string{"unset", "DSH_BUILTIN_TEST"}))

	assert.Equal(t, 1, b.Run([]string{"set", "not-an-assignment"}))
	assert.Contains(t, errOut.String(), "NAME=value")
}

func TestJobsListing(t *testing.T) {
	b, out, _, _ := newTestBuiltins(t)

	j := &job.Job{PGID: 77, State: job.Background, CommandText: "sleep 100"}
	j.AddProcess(77, "sleep 100")
	b.jc.Registry.Add(j)

	require.Equal(t, 0, b.Run([]string{"jobs"}))
	assert.Equal(t, "[1]+ Running\tsleep 100\n", out.String())
}

func TestBg_RequiresStoppedJob(t *testing.T) {
	b, _, errOut, _ := newTestBuiltins(t)

	j := &job.Job{PGID: 77, State: job.Background, CommandText: "sleep 100"}
	j.AddProcess(77, "sleep 100")
	b.jc.Registry.Add(j)

	assert.Equal(t, 1, b.Run([]string{"bg"}))
	assert.Contains(t, errOut.String(), "not stopped")
}

func TestFgKill_MissingJob(t *testing.T) {
	b, _, errOut, _ := newTestBuiltins(t)

	assert.Equal(t, 1, b.Run([]string{"fg"}))
	assert.Contains(t, errOut.String(), "no current job")

	errOut.Reset()
	assert.Equal(t, 1, b.Run([]string{"fg", "%9"}))
	assert.Contains(t, errOut.String(), "job 9 not found")

	errOut.Reset()
	assert.Equal(t, 1, b.Run([]string{"kill"}))
	assert.Contains(t, errOut.String(), "usage")

	errOut.Reset()
	assert.Equal(t, 1, b.Run([]string{"kill", "-BOGUS", "%1"}))
	assert.Contains(t, errOut.String(), "invalid signal")
}

func TestHistoryBuiltin(t *testing.T) {
	b, out, _, _ := newTestBuiltins(t)

	b.hist.Add("ls")
	b.hist.Add("pwd")

	require.Equal(t, 0, b.Run([]string{"history"}))
	assert.Contains(t, out.String(), "1  ls")
	assert.Contains(t, out.String(), "2  pwd")

	require.Equal(t, 0, b.Run([]string{"history", "clear"}))
	assert.Zero(t, b.hist.Count())
}
