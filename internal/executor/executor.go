// Package executor walks the command tree, spawning child processes
// with the file-descriptor plumbing, process-group assignment and
// terminal handoff each node calls for. Compound nodes that must run
// inside a child (subshells, backgrounded lists, pipeline stages that
// are not plain commands) are re-executed through the shell binary
// itself with -c and the node's deterministic rendering.
package executor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/phillarmonic/dsh/internal/ast"
	"github.com/phillarmonic/dsh/internal/job"
	"github.com/phillarmonic/dsh/internal/jobcontrol"
)

// BuiltinRunner is the builtin-dispatch collaborator: the executor asks
// whether a word names a builtin and runs it in the shell process.
type BuiltinRunner interface {
	IsBuiltin(name string) bool
	Run(words []string) int
}

// Options configures an Executor
type Options struct {
	Controller *jobcontrol.Controller
	Builtins   BuiltinRunner
	// InBackground marks a shell that already runs inside a background
	// process group; nested executions then skip terminal grants and
	// keep children in the enclosing group.
	InBackground bool
	Log          *logrus.Logger
}

// Executor evaluates AST nodes into exit codes
type Executor struct {
	jc           *jobcontrol.Controller
	builtins     BuiltinRunner
	inBackground bool
	selfPath     string
	lastBgPID    int
	log          *logrus.Logger
}

// New creates an executor
func New(opts Options) *Executor {
	self, err := os.Executable()
	if err != nil {
		self = os.Args[0]
	}
	log := opts.Log
	if log == nil {
		log = logrus.New()
	}
	return &Executor{
		jc:           opts.Controller,
		builtins:     opts.Builtins,
		inBackground: opts.InBackground,
		selfPath:     self,
		log:          log,
	}
}

// LastBackgroundPID returns the pid of the most recently launched
// background job, or 0.
func (e *Executor) LastBackgroundPID() int {
	return e.lastBgPID
}

// Eval evaluates a node and returns its exit code
func (e *Executor) Eval(node ast.Node) int {
	switch n := node.(type) {
	case *ast.Command:
		return e.evalCommand(n)
	case *ast.Pipeline:
		return e.evalPipeline(n)
	case *ast.Redirect:
		return e.evalRedirect(n)
	case *ast.Sequence:
		e.Eval(n.Left)
		return e.Eval(n.Right)
	case *ast.And:
		if code := e.Eval(n.Left); code != 0 {
			return code
		}
		return e.Eval(n.Right)
	case *ast.Or:
		if code := e.Eval(n.Left); code == 0 {
			return 0
		}
		return e.Eval(n.Right)
	case *ast.Subshell:
		return e.evalSubshell(n)
	case *ast.Background:
		return e.evalBackground(n)
	default:
		fmt.Fprintln(os.Stderr, "dsh: unknown command node")
		return 1
	}
}

// foregroundInteractive reports whether this evaluation may take the
// terminal: we are the interactive shell and not inside a background
// group.
func (e *Executor) foregroundInteractive() bool {
	return e.jc.Interactive() && !e.inBackground
}

// evalCommand runs a simple command: builtins in-process, everything
// else in a child that leads its own process group when foreground.
func (e *Executor) evalCommand(n *ast.Command) int {
	if len(n.Words) == 0 {
		fmt.Fprintln(os.Stderr, "dsh: empty command")
		return 1
	}

	if e.isBuiltin(n.Words[0]) {
		return e.builtins.Run(n.Words)
	}

	path, err := exec.LookPath(n.Words[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "dsh: %s: command not found\n", n.Words[0])
		return 127
	}

	cmd := &exec.Cmd{
		Path:   path,
		Args:   n.Words,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if e.foregroundInteractive() {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "dsh: %s: %v\n", n.Words[0], err)
		return 127
	}
	pid := cmd.Process.Pid
	e.log.WithFields(logrus.Fields{"pid": pid, "cmd": n.Words[0]}).Debug("spawned")

	if e.foregroundInteractive() {
		// Cover the fork/setpgid race from the parent side too;
		// ESRCH and EACCES mean the child won it.
		if err := unix.Setpgid(pid, pid); err != nil && !benignSetpgidErr(err) {
			e.log.WithError(err).Debug("setpgid")
		}
		e.jc.GrantTerminal(pid)
		defer e.jc.ReclaimTerminal()
	}

	return e.waitForeground(pid, n.String())
}

// waitForeground waits for one foreground child with stop reporting and
// maps the result to an exit code. A stopped child becomes a new
// Stopped job and yields 0.
func (e *Executor) waitForeground(pid int, commandText string) int {
	var ws unix.WaitStatus
	for {
		if _, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			fmt.Fprintf(os.Stderr, "dsh: wait: %v\n", err)
			return 1
		}
		break
	}

	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	case ws.Stopped():
		e.registerStoppedJob(pid, commandText, []stoppedProc{{pid: pid, command: commandText, stopped: true}})
		return 0
	}
	return 1
}

type stoppedProc struct {
	pid     int
	command string
	stopped bool
	status  int // exit status of already-completed members
}

// registerStoppedJob creates a Stopped job for a foreground command (or
// pipeline) suspended by the user and announces it.
func (e *Executor) registerStoppedJob(pgid int, commandText string, procs []stoppedProc) {
	j := &job.Job{PGID: pgid, State: job.Stopped, CommandText: commandText}
	for _, p := range procs {
		proc := j.AddProcess(p.pid, p.command)
		if p.stopped {
			proc.State = job.ProcStopped
		} else {
			proc.State = job.ProcCompleted
			proc.ExitStatus = p.status
		}
	}
	e.jc.Registry.Add(j)
	fmt.Printf("\n[%d] Stopped   %s\n", j.ID, commandText)
}

// evalSubshell runs the inner list in a child shell, isolating
// directory changes, environment writes, redirections and exit.
func (e *Executor) evalSubshell(n *ast.Subshell) int {
	cmd := e.selfCommand(n.Inner)
	if e.foregroundInteractive() {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "dsh: subshell: %v\n", err)
		return 1
	}
	pid := cmd.Process.Pid

	if e.foregroundInteractive() {
		if err := unix.Setpgid(pid, pid); err != nil && !benignSetpgidErr(err) {
			e.log.WithError(err).Debug("setpgid")
		}
		e.jc.GrantTerminal(pid)
		defer e.jc.ReclaimTerminal()
	}

	return e.waitForeground(pid, n.String())
}

// evalBackground launches the inner node detached: its own process
// group, no terminal, registered as a Background job. Plain commands
// exec directly; compound nodes re-enter the shell with -c.
func (e *Executor) evalBackground(n *ast.Background) int {
	commandText := n.Inner.String()

	var cmd *exec.Cmd
	if simple, ok := n.Inner.(*ast.Command); ok && !e.isBuiltin(simple.Words[0]) {
		path, err := exec.LookPath(simple.Words[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "dsh: %s: command not found\n", simple.Words[0])
			return 127
		}
		cmd = &exec.Cmd{
			Path:   path,
			Args:   simple.Words,
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
		}
	} else {
		cmd = e.selfCommand(n.Inner)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "dsh: %s: %v\n", commandText, err)
		return 1
	}
	pid := cmd.Process.Pid

	if err := unix.Setpgid(pid, pid); err != nil && !benignSetpgidErr(err) {
		e.log.WithError(err).Debug("setpgid")
	}

	e.lastBgPID = pid

	j := &job.Job{PGID: pid, State: job.Background, CommandText: commandText}
	j.AddProcess(pid, commandText)
	e.jc.Registry.Add(j)

	fmt.Printf("[%d] %d\n", j.ID, pid)
	return 0
}

// selfCommand builds the re-entrant invocation of the shell binary for
// a compound node.
func (e *Executor) selfCommand(node ast.Node) *exec.Cmd {
	return &exec.Cmd{
		Path:   e.selfPath,
		Args:   []string{e.selfPath, "-c", node.String()},
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// isBuiltin guards against a missing dispatch table
func (e *Executor) isBuiltin(name string) bool {
	return e.builtins != nil && e.builtins.IsBuiltin(name)
}

func benignSetpgidErr(err error) bool {
	return errors.Is(err, unix.ESRCH) || errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM)
}
