// Package job holds the in-memory model of spawned process groups: the
// per-process and per-job records and the registry the jobs, fg, bg and
// kill builtins operate on.
package job

import (
	"fmt"
	"sync"
)

// ProcessState tracks one child process
type ProcessState int

const (
	ProcRunning ProcessState = iota
	ProcStopped
	ProcCompleted
)

// Process is the record of a single spawned child. ExitStatus is
// meaningful only once State is ProcCompleted.
type Process struct {
	PID        int
	State      ProcessState
	ExitStatus int
	Command    string
}

// JobState tracks a whole job
type JobState int

const (
	Foreground JobState = iota
	Background
	Stopped
	Completed
)

// StatusName returns the user-facing state name for job listings
func (s JobState) StatusName() string {
	switch s {
	case Foreground, Background:
		return "Running"
	case Stopped:
		return "Stopped"
	case Completed:
		return "Done"
	}
	return "Unknown"
}

// Job is a group of processes launched from one user command and
// managed as a unit. PGID equals the pid of the job's first process.
type Job struct {
	ID          int
	PGID        int
	State       JobState
	Processes   []*Process // insertion order
	CommandText string
	Notified    bool
}

// AddProcess appends a process record to the job
func (j *Job) AddProcess(pid int, command string) *Process {
	p := &Process{PID: pid, State: ProcRunning, ExitStatus: -1, Command: command}
	j.Processes = append(j.Processes, p)
	return p
}

// IsCompleted reports whether every process has completed
func (j *Job) IsCompleted() bool {
	for _, p := range j.Processes {
		if p.State != ProcCompleted {
			return false
		}
	}
	return true
}

// IsStopped reports whether no process is running and at least one is
// stopped.
func (j *Job) IsStopped() bool {
	stopped := false
	for _, p := range j.Processes {
		switch p.State {
		case ProcRunning:
			return false
		case ProcStopped:
			stopped = true
		}
	}
	return stopped
}

// Refresh recomputes the job state from its process records. Running
// jobs keep their Foreground/Background designation.
func (j *Job) Refresh() {
	switch {
	case j.IsCompleted():
		j.State = Completed
	case j.IsStopped():
		j.State = Stopped
	}
}

// ExitStatus returns the exit status of the job's last process
func (j *Job) ExitStatus() int {
	if len(j.Processes) == 0 {
		return 0
	}
	return j.Processes[len(j.Processes)-1].ExitStatus
}

// Line formats one job-listing line: "[id]marker State\tcommand"
func (j *Job) Line(marker byte) string {
	return fmt.Sprintf("[%d]%c %s\t%s", j.ID, marker, j.State.StatusName(), j.CommandText)
}

// Registry owns every live job. Jobs keep insertion order; ids are
// handed out monotonically and never reused within a shell run. The
// mutex guards list structure only; record mutation happens on the
// shell goroutine.
type Registry struct {
	mu      sync.Mutex
	entries map[int]*Job
	order   []int
	nextID  int
}

// NewRegistry creates an empty job registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[int]*Job),
		nextID:  1,
	}
}

// Add registers a job and assigns its id
func (r *Registry) Add(j *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j.ID = r.nextID
	r.nextID++
	r.entries[j.ID] = j
	r.order = append(r.order, j.ID)
}

// Remove deletes a job from the registry
func (r *Registry) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return
	}
	delete(r.entries, id)
	for i, jid := range r.order {
		if jid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// ByID finds a job by its id
func (r *Registry) ByID(id int) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id]
}

// ByPGID finds a job by its process group id
func (r *Registry) ByPGID(pgid int) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if j := r.entries[id]; j.PGID == pgid {
			return j
		}
	}
	return nil
}

// ByPID finds the job owning the process with the given pid
func (r *Registry) ByPID(pid int) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		j := r.entries[id]
		for _, p := range j.Processes {
			if p.PID == pid {
				return j
			}
		}
	}
	return nil
}

// Jobs returns all jobs in insertion order
func (r *Registry) Jobs() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]*Job, 0, len(r.order))
	for _, id := range r.order {
		jobs = append(jobs, r.entries[id])
	}
	return jobs
}

// Current returns the most recently added job, or nil
func (r *Registry) Current() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		return nil
	}
	return r.entries[r.order[len(r.order)-1]]
}

// Previous returns the next-most-recently added job, or nil
func (r *Registry) Previous() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) < 2 {
		return nil
	}
	return r.entries[r.order[len(r.order)-2]]
}

// Marker returns the recency marker used in job listings: '+' for the
// current job, '-' for the previous one, space otherwise.
func (r *Registry) Marker(j *Job) byte {
	if cur := r.Current(); cur == j {
		return '+'
	}
	if prev := r.Previous(); prev == j {
		return '-'
	}
	return ' '
}

// Empty reports whether the registry holds no jobs
func (r *Registry) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order) == 0
}
