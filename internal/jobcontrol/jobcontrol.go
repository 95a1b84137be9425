// Package jobcontrol manages terminal ownership, signal routing and job
// status reconciliation. The shell stays single-threaded: SIGCHLD only
// feeds a channel (Go's delivery channel is the self-pipe here), and
// reconciliation runs synchronously at the top of the REPL loop.
// Foreground waits fold in the statuses of their own children and do not
// reconcile other jobs first.
package jobcontrol

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/phillarmonic/dsh/internal/job"
)

// Controller owns the job registry, the controlling terminal and the
// shell's signal configuration.
type Controller struct {
	Registry *job.Registry

	terminalFD  int
	shellPGID   int
	interactive bool
	termios     *unix.Termios // line discipline snapshot

	sigchld chan os.Signal
	keep    chan os.Signal // SIGINT/SIGTSTP land here and are discarded

	out io.Writer
	log *logrus.Logger
}

// NewController creates a controller bound to stdin's terminal
func NewController(log *logrus.Logger) *Controller {
	fd := int(os.Stdin.Fd())
	return &Controller{
		Registry:    job.NewRegistry(),
		terminalFD:  fd,
		interactive: term.IsTerminal(fd),
		out:         os.Stdout,
		log:         log,
	}
}

// Interactive reports whether stdin is a terminal
func (c *Controller) Interactive() bool {
	return c.interactive
}

// SetNonInteractive forces batch behavior: no terminal ownership and no
// per-command process groups. Used by -c invocations, which run as
// children of another shell's job.
func (c *Controller) SetNonInteractive() {
	c.interactive = false
}

// ShellPGID returns the shell's own process group id
func (c *Controller) ShellPGID() int {
	return c.shellPGID
}

// Init configures signals and, when interactive, takes ownership of the
// controlling terminal and snapshots its line discipline.
//
// When interactive, SIGQUIT, SIGTTOU and SIGTTIN are ignored outright.
// SIGINT and SIGTSTP are always caught and discarded instead: a caught handler is reset to the
// default disposition across exec, so children still die and stop on
// ctrl-c / ctrl-z while the shell itself does not.
func (c *Controller) Init() error {
	c.sigchld = make(chan os.Signal, 1)
	signal.Notify(c.sigchld, unix.SIGCHLD)

	c.keep = make(chan os.Signal, 1)
	signal.Notify(c.keep, unix.SIGINT, unix.SIGTSTP)

	if !c.interactive {
		return nil
	}

	signal.Ignore(unix.SIGQUIT, unix.SIGTTOU, unix.SIGTTIN)

	// Wait until we are in the foreground before grabbing the terminal.
	for {
		pgrp, err := tcGetpgrp(c.terminalFD)
		if err != nil {
			return fmt.Errorf("terminal process group: %w", err)
		}
		if pgrp == unix.Getpgrp() {
			break
		}
		_ = unix.Kill(-unix.Getpgrp(), unix.SIGTTIN)
	}

	pid := unix.Getpid()
	if err := unix.Setpgid(pid, pid); err != nil && !errors.Is(err, unix.EPERM) {
		return fmt.Errorf("setpgid: %w", err)
	}
	c.shellPGID = pid

	if err := tcSetpgrp(c.terminalFD, c.shellPGID); err != nil {
		return fmt.Errorf("tcsetpgrp: %w", err)
	}

	tio, err := getTermios(c.terminalFD)
	if err != nil {
		return fmt.Errorf("tcgetattr: %w", err)
	}
	c.termios = tio

	c.log.WithField("pgid", c.shellPGID).Debug("job control initialized")
	return nil
}

// Shutdown releases signal handlers
func (c *Controller) Shutdown() {
	signal.Stop(c.sigchld)
	signal.Stop(c.keep)
	signal.Reset()
}

// GrantTerminal hands the controlling terminal to a process group
func (c *Controller) GrantTerminal(pgid int) {
	if !c.interactive {
		return
	}
	if err := tcSetpgrp(c.terminalFD, pgid); err != nil {
		c.log.WithError(err).WithField("pgid", pgid).Debug("grant terminal failed")
	}
}

// ReclaimTerminal returns the terminal to the shell's process group and
// restores the snapshotted line discipline.
func (c *Controller) ReclaimTerminal() {
	if !c.interactive {
		return
	}
	if err := tcSetpgrp(c.terminalFD, c.shellPGID); err != nil {
		c.log.WithError(err).Debug("reclaim terminal failed")
	}
	if c.termios != nil {
		if err := setTermios(c.terminalFD, c.termios); err != nil {
			c.log.WithError(err).Debug("restore line discipline failed")
		}
	}
}

// Reap drains pending SIGCHLD notifications and reconciles every job
// record with the kernel. Called at the top of the REPL loop, between
// input reads; the blocking foreground waits do not call it.
func (c *Controller) Reap() {
	for {
		select {
		case <-c.sigchld:
			continue
		default:
		}
		break
	}
	c.UpdateAll()
}

// UpdateAll performs a non-blocking wait for every non-completed
// process record and folds the result into the job states.
func (c *Controller) UpdateAll() {
	for _, j := range c.Registry.Jobs() {
		for _, p := range j.Processes {
			if p.State == job.ProcCompleted {
				continue
			}

			var ws unix.WaitStatus
			pid, err := unix.Wait4(p.PID, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
			if err != nil {
				if errors.Is(err, unix.ECHILD) {
					p.State = job.ProcCompleted
				}
				continue
			}
			if pid == 0 {
				continue
			}

			ApplyWaitStatus(p, ws)
		}

		j.Refresh()
	}
}

// ApplyWaitStatus folds one wait status into a process record
func ApplyWaitStatus(p *job.Process, ws unix.WaitStatus) {
	switch {
	case ws.Exited():
		p.State = job.ProcCompleted
		p.ExitStatus = ws.ExitStatus()
	case ws.Signaled():
		p.State = job.ProcCompleted
		p.ExitStatus = 128 + int(ws.Signal())
	case ws.Stopped():
		p.State = job.ProcStopped
	case ws.Continued():
		p.State = job.ProcRunning
	}
}

// NotifyCompleted prints a status line for every completed job that has
// not been announced yet and removes it from the registry.
func (c *Controller) NotifyCompleted() {
	for _, j := range c.Registry.Jobs() {
		if j.State != job.Completed || j.Notified {
			continue
		}
		fmt.Fprintln(c.out, j.Line(c.Registry.Marker(j)))
		j.Notified = true
		c.Registry.Remove(j.ID)
	}
}

// HasStoppedJobs reports whether any registered job is stopped
func (c *Controller) HasStoppedJobs() bool {
	for _, j := range c.Registry.Jobs() {
		if j.State == job.Stopped {
			return true
		}
	}
	return false
}

// Foreground moves a job to the foreground and waits until it completes
// or stops. With cont set, the whole group is sent SIGCONT first.
// Returns the job's exit status; a job that stopped yields 0.
func (c *Controller) Foreground(j *job.Job, cont bool) int {
	j.State = job.Foreground
	j.Notified = false

	c.GrantTerminal(j.PGID)

	if cont {
		if err := unix.Kill(-j.PGID, unix.SIGCONT); err != nil {
			c.log.WithError(err).WithField("pgid", j.PGID).Debug("SIGCONT failed")
		}
		for _, p := range j.Processes {
			if p.State == job.ProcStopped {
				p.State = job.ProcRunning
			}
		}
	}

	c.waitForJob(j)

	c.ReclaimTerminal()

	if j.IsCompleted() {
		j.State = job.Completed
		status := j.ExitStatus()
		c.Registry.Remove(j.ID)
		if status < 0 {
			return 0
		}
		return status
	}

	j.State = job.Stopped
	fmt.Fprintf(c.out, "\n[%d] Stopped   %s\n", j.ID, j.CommandText)
	return 0
}

// waitForJob blocks until every process of the job is completed or
// stopped, folding statuses into the records as they arrive.
func (c *Controller) waitForJob(j *job.Job) {
	for !j.IsCompleted() && !j.IsStopped() {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-j.PGID, &ws, unix.WUNTRACED, nil)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.ECHILD) {
				// the reaper got there first
				for _, p := range j.Processes {
					if p.State != job.ProcCompleted {
						p.State = job.ProcCompleted
					}
				}
			}
			break
		}

		for _, p := range j.Processes {
			if p.PID == pid {
				ApplyWaitStatus(p, ws)
				break
			}
		}
	}
}

// Background resumes a stopped job in the background
func (c *Controller) Background(j *job.Job, cont bool) {
	j.State = job.Background
	j.Notified = false

	if cont {
		if err := unix.Kill(-j.PGID, unix.SIGCONT); err != nil {
			c.log.WithError(err).WithField("pgid", j.PGID).Debug("SIGCONT failed")
		}
		for _, p := range j.Processes {
			if p.State == job.ProcStopped {
				p.State = job.ProcRunning
			}
		}
	}
}

// Kill sends a signal to every process in the job's group
func (c *Controller) Kill(j *job.Job, sig unix.Signal) error {
	return unix.Kill(-j.PGID, sig)
}

// signalNames maps the names the kill builtin recognizes
var signalNames = map[string]unix.Signal{
	"HUP":  unix.SIGHUP,
	"INT":  unix.SIGINT,
	"QUIT": unix.SIGQUIT,
	"KILL": unix.SIGKILL,
	"STOP": unix.SIGSTOP,
	"TSTP": unix.SIGTSTP,
	"CONT": unix.SIGCONT,
	"TERM": unix.SIGTERM,
}

// SignalByName resolves a signal name or decimal number
func SignalByName(name string) (unix.Signal, error) {
	if sig, ok := signalNames[name]; ok {
		return sig, nil
	}
	if n, err := strconv.Atoi(name); err == nil && n > 0 {
		return unix.Signal(n), nil
	}
	return 0, fmt.Errorf("invalid signal: %s", name)
}
