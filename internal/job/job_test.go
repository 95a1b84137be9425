package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_IDsAreMonotonicAndNotReused(t *testing.T) {
	r := NewRegistry()

	j1 := &Job{PGID: 100, State: Background, CommandText: "sleep 1"}
	j2 := &Job{PGID: 200, State: Background, CommandText: "sleep 2"}
	r.Add(j1)
	r.Add(j2)

	assert.Equal(t, 1, j1.ID)
	assert.Equal(t, 2, j2.ID)

	r.Remove(j1.ID)
	r.Remove(j2.ID)

	j3 := &Job{PGID: 300, State: Background, CommandText: "sleep 3"}
	r.Add(j3)
	assert.Equal(t, 3, j3.ID, "removed ids must not be reused")
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()

	j := &Job{PGID: 4242, State: Background, CommandText: "cat"}
	j.AddProcess(4242, "cat")
	j.AddProcess(4243, "wc")
	r.Add(j)

	assert.Same(t, j, r.ByID(j.ID))
	assert.Same(t, j, r.ByPGID(4242))
	assert.Same(t, j, r.ByPID(4243))
	assert.Nil(t, r.ByID(99))
	assert.Nil(t, r.ByPGID(1))
	assert.Nil(t, r.ByPID(1))
}

func TestRegistry_Markers(t *testing.T) {
	r := NewRegistry()

	j1 := &Job{PGID: 1, State: Background}
	j2 := &Job{PGID: 2, State: Background}
	j3 := &Job{PGID: 3, State: Background}
	r.Add(j1)
	r.Add(j2)
	r.Add(j3)

	assert.Equal(t, byte(' '), r.Marker(j1))
	assert.Equal(t, byte('-'), r.Marker(j2))
	assert.Equal(t, byte('+'), r.Marker(j3))

	r.Remove(j3.ID)
	assert.Equal(t, byte('-'), r.Marker(j1))
	assert.Equal(t, byte('+'), r.Marker(j2))
}

func TestJob_StateTransitions(t *testing.T) {
	j := &Job{PGID: 10, State: Background, CommandText: "a | b"}
	p1 := j.AddProcess(10, "a")
	p2 := j.AddProcess(11, "b")

	assert.False(t, j.IsCompleted())
	assert.False(t, j.IsStopped())

	p1.State = ProcStopped
	assert.False(t, j.IsStopped(), "one process still running")

	p2.State = ProcStopped
	assert.True(t, j.IsStopped())
	j.Refresh()
	assert.Equal(t, Stopped, j.State)

	p1.State = ProcCompleted
	p1.ExitStatus = 0
	assert.True(t, j.IsStopped(), "stopped with one completed member")

	p2.State = ProcCompleted
	p2.ExitStatus = 3
	assert.True(t, j.IsCompleted())
	j.Refresh()
	assert.Equal(t, Completed, j.State)
	assert.Equal(t, 3, j.ExitStatus())
}

func TestJob_Line(t *testing.T) {
	j := &Job{PGID: 7, State: Stopped, CommandText: "vim notes.txt"}
	r := NewRegistry()
	r.Add(j)
	require.Equal(t, 1, j.ID)

	assert.Equal(t, "[1]+ Stopped\tvim notes.txt", j.Line(r.Marker(j)))
}

func TestStatusNames(t *testing.T) {
	assert.Equal(t, "Running", Foreground.StatusName())
	assert.Equal(t, "Running", Background.StatusName())
	assert.Equal(t, "Stopped", Stopped.StatusName())
	assert.Equal(t, "Done", Completed.StatusName())
}
