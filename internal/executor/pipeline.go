package executor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/phillarmonic/dsh/internal/ast"
)

// flattenPipeline unrolls a left-associative Pipeline chain into its
// stages plus, for every stage but the last, whether that stage
// forwards stderr into its pipe.
func flattenPipeline(n ast.Node) (stages []ast.Node, forwardStderr []bool) {
	if p, ok := n.(*ast.Pipeline); ok {
		stages, forwardStderr = flattenPipeline(p.Left)
		stages = append(stages, p.Right)
		forwardStderr = append(forwardStderr, p.ForwardStderr)
		return stages, forwardStderr
	}
	return []ast.Node{n}, nil
}

// pipelineStage holds the per-stage bookkeeping during assembly
type pipelineStage struct {
	cmd     *exec.Cmd
	pid     int // 0 when the stage failed to start
	text    string
	status  int
	stopped bool
}

// evalPipeline creates one child per stage, wires n-1 pipes between
// them, joins every child into a single process group and waits for
// them all.
func (e *Executor) evalPipeline(n *ast.Pipeline) int {
	stages, forwardStderr := flattenPipeline(n)
	count := len(stages)

	pipes := make([][2]*os.File, count-1) // [read, write]
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			fmt.Fprintf(os.Stderr, "dsh: pipe: %v\n", err)
			for j := 0; j < i; j++ {
				pipes[j][0].Close()
				pipes[j][1].Close()
			}
			return 1
		}
		pipes[i] = [2]*os.File{r, w}
	}

	interactiveFG := e.foregroundInteractive()
	procs := make([]*pipelineStage, count)
	pgid := 0

	for i, stage := range stages {
		ps := &pipelineStage{text: stage.String(), status: 127}
		procs[i] = ps

		cmd, err := e.stageCommand(stage)
		if err != nil {
			fmt.Fprintln(os.Stderr, "dsh: "+err.Error())
			continue
		}

		if i > 0 {
			cmd.Stdin = pipes[i-1][0]
		}
		if i < count-1 {
			cmd.Stdout = pipes[i][1]
			if forwardStderr[i] {
				cmd.Stderr = pipes[i][1]
			}
		}

		// Foreground pipelines get their own group led by the first
		// child; inside a background group the children simply inherit
		// the enclosing pgid.
		if interactiveFG {
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
		}

		if err := cmd.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "dsh: %s: %v\n", stage.String(), err)
			continue
		}
		ps.cmd = cmd
		ps.pid = cmd.Process.Pid

		if interactiveFG {
			if pgid == 0 {
				pgid = ps.pid
			}
			if err := unix.Setpgid(ps.pid, pgid); err != nil && !benignSetpgidErr(err) {
				e.log.WithError(err).Debug("setpgid")
			}
		}
	}

	// The parent holds no pipe ends once every child is started.
	for i := range pipes {
		pipes[i][0].Close()
		pipes[i][1].Close()
	}

	if interactiveFG && pgid != 0 {
		e.jc.GrantTerminal(pgid)
		defer e.jc.ReclaimTerminal()
	}

	anyStopped := false
	for _, ps := range procs {
		if ps.pid == 0 {
			continue
		}
		var ws unix.WaitStatus
		waited := false
		for {
			if _, err := unix.Wait4(ps.pid, &ws, unix.WUNTRACED, nil); err != nil {
				if errors.Is(err, unix.EINTR) {
					continue
				}
				ps.status = 1
			} else {
				waited = true
			}
			break
		}
		if !waited {
			continue
		}
		switch {
		case ws.Exited():
			ps.status = ws.ExitStatus()
		case ws.Signaled():
			ps.status = 128 + int(ws.Signal())
		case ws.Stopped():
			ps.stopped = true
			ps.status = 0
			anyStopped = true
		}
	}

	if anyStopped && pgid != 0 {
		var members []stoppedProc
		for _, ps := range procs {
			if ps.pid != 0 {
				members = append(members, stoppedProc{pid: ps.pid, command: ps.text, stopped: ps.stopped, status: ps.status})
			}
		}
		e.registerStoppedJob(pgid, n.String(), members)
		return 0
	}

	return procs[count-1].status
}

// stageCommand prepares the child for one pipeline stage. Plain
// external commands exec directly; builtins, subshells and
// redirect-wrapped stages re-enter the shell with -c.
func (e *Executor) stageCommand(stage ast.Node) (*exec.Cmd, error) {
	if simple, ok := stage.(*ast.Command); ok && !e.isBuiltin(simple.Words[0]) {
		path, err := exec.LookPath(simple.Words[0])
		if err != nil {
			return nil, fmt.Errorf("%s: command not found", simple.Words[0])
		}
		return &exec.Cmd{
			Path:   path,
			Args:   simple.Words,
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
		}, nil
	}
	return e.selfCommand(stage), nil
}
