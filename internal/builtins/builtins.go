// Package builtins implements the commands the shell runs in-process:
// cd, pwd, echo, exit, help, the job-control quartet (jobs, fg, bg,
// kill), environment writes (set, unset) and history.
package builtins

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/sys/unix"

	"github.com/phillarmonic/dsh/internal/history"
	"github.com/phillarmonic/dsh/internal/job"
	"github.com/phillarmonic/dsh/internal/jobcontrol"
)

// ExitRequester receives the exit builtin's outcome; the REPL checks it
// after every command.
type ExitRequester interface {
	RequestExit(code int)
}

// Builtins dispatches builtin commands
type Builtins struct {
	jc    *jobcontrol.Controller
	hist  *history.Store
	shell ExitRequester

	out    io.Writer
	errOut io.Writer
}

// New creates the builtin table
func New(jc *jobcontrol.Controller, hist *history.Store, shell ExitRequester) *Builtins {
	return &Builtins{
		jc:     jc,
		hist:   hist,
		shell:  shell,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

var names = map[string]struct{}{
	"cd": {}, "pwd": {}, "echo": {}, "exit": {}, "help": {},
	"jobs": {}, "fg": {}, "bg": {}, "kill": {},
	"set": {}, "unset": {}, "history": {},
}

// IsBuiltin reports whether a word names a builtin
func (b *Builtins) IsBuiltin(name string) bool {
	_, ok := names[name]
	return ok
}

// Run dispatches a builtin by its first word and returns its exit code
func (b *Builtins) Run(words []string) int {
	switch words[0] {
	case "cd":
		return b.cd(words)
	case "pwd":
		return b.pwd(words)
	case "echo":
		return b.echo(words)
	case "exit":
		return b.exit(words)
	case "help":
		return b.help(words)
	case "jobs":
		return b.jobs(words)
	case "fg":
		return b.fg(words)
	case "bg":
		return b.bg(words)
	case "kill":
		return b.kill(words)
	case "set":
		return b.set(words)
	case "unset":
		return b.unset(words)
	case "history":
		return b.history(words)
	}

	fmt.Fprintf(b.errOut, "%s: builtin not found\n", words[0])
	return 1
}

// cd changes the working directory. Supports cd, cd ~, cd -, cd ~/path
// and keeps PWD/OLDPWD in sync.
func (b *Builtins) cd(words []string) int {
	var path string
	if len(words) > 1 {
		path = words[1]
	}

	switch {
	case path == "" || path == "~":
		path = os.Getenv("HOME")
		if path == "" {
			fmt.Fprintln(b.errOut, "cd: HOME not set")
			return 1
		}
	case path == "-":
		path = os.Getenv("OLDPWD")
		if path == "" {
			fmt.Fprintln(b.errOut, "cd: OLDPWD not set")
			return 1
		}
		fmt.Fprintln(b.out, path)
	case strings.HasPrefix(path, "~/"):
		home := os.Getenv("HOME")
		if home == "" {
			fmt.Fprintln(b.errOut, "cd: HOME not set")
			return 1
		}
		path = home + path[1:]
	}

	if cwd, err := os.Getwd(); err == nil {
		os.Setenv("OLDPWD", cwd)
	}

	if err := os.Chdir(path); err != nil {
		fmt.Fprintf(b.errOut, "cd: %s: %v\n", path, err)
		return 1
	}

	if cwd, err := os.Getwd(); err == nil {
		os.Setenv("PWD", cwd)
	}
	return 0
}

func (b *Builtins) pwd([]string) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(b.errOut, "pwd: %v\n", err)
		return 1
	}
	fmt.Fprintln(b.out, cwd)
	return 0
}

func (b *Builtins) echo(words []string) int {
	fmt.Fprintln(b.out, strings.Join(words[1:], " "))
	return 0
}

// exit records the requested code; the REPL breaks out of its loop
// after the current command finishes.
func (b *Builtins) exit(words []string) int {
	code := 0
	if len(words) > 1 {
		n, err := strconv.Atoi(words[1])
		if err != nil {
			fmt.Fprintf(b.errOut, "exit: %s: numeric argument required\n", words[1])
			n = 2
		}
		code = n
	}
	b.shell.RequestExit(code)
	return code
}

func (b *Builtins) help([]string) int {
	bold := color.New(color.Bold)
	bold.Fprintln(b.out, "Built-in commands:")
	fmt.Fprintln(b.out, "  cd [dir]          Change directory (supports ~, -, ~/path)")
	fmt.Fprintln(b.out, "  pwd               Print current working directory")
	fmt.Fprintln(b.out, "  echo [args]       Print arguments")
	fmt.Fprintln(b.out, "  exit [code]       Exit shell")
	fmt.Fprintln(b.out, "  help              Show this help")
	fmt.Fprintln(b.out, "  jobs              List all jobs")
	fmt.Fprintln(b.out, "  fg [%job_id]      Bring job to foreground")
	fmt.Fprintln(b.out, "  bg [%job_id]      Resume job in background")
	fmt.Fprintln(b.out, "  kill [-sig] %id   Send signal to job (default: SIGTERM)")
	fmt.Fprintln(b.out, "  set [VAR=value]   Set environment variable (no args: print all)")
	fmt.Fprintln(b.out, "  unset VAR         Unset environment variable")
	fmt.Fprintln(b.out, "  history [clear]   Show command history or clear it")
	return 0
}

func (b *Builtins) jobs([]string) int {
	for _, j := range b.jc.Registry.Jobs() {
		fmt.Fprintln(b.out, j.Line(b.jc.Registry.Marker(j)))
	}
	return 0
}

// lookupJob resolves an optional "%N" / "N" argument, defaulting to the
// most recent job.
func (b *Builtins) lookupJob(name string, arg string) *job.Job {
	if arg == "" {
		j := b.jc.Registry.Current()
		if j == nil {
			fmt.Fprintf(b.errOut, "%s: no current job\n", name)
		}
		return j
	}

	idStr := strings.TrimPrefix(arg, "%")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		fmt.Fprintf(b.errOut, "%s: %s: no such job\n", name, arg)
		return nil
	}
	j := b.jc.Registry.ByID(id)
	if j == nil {
		fmt.Fprintf(b.errOut, "%s: job %d not found\n", name, id)
	}
	return j
}

// fg brings a job to the foreground, continuing it if stopped
func (b *Builtins) fg(words []string) int {
	var arg string
	if len(words) > 1 {
		arg = words[1]
	}
	j := b.lookupJob("fg", arg)
	if j == nil {
		return 1
	}

	fmt.Fprintln(b.out, j.CommandText)

	cont := j.State == job.Stopped
	if !cont {
		for _, p := range j.Processes {
			if p.State == job.ProcStopped {
				cont = true
				break
			}
		}
	}

	return b.jc.Foreground(j, cont)
}

// bg resumes a stopped job in the background
func (b *Builtins) bg(words []string) int {
	var arg string
	if len(words) > 1 {
		arg = words[1]
	}
	j := b.lookupJob("bg", arg)
	if j == nil {
		return 1
	}

	if j.State != job.Stopped {
		fmt.Fprintf(b.errOut, "bg: job %d is not stopped\n", j.ID)
		return 1
	}

	fmt.Fprintf(b.out, "[%d]+ %s &\n", j.ID, j.CommandText)
	b.jc.Background(j, true)
	return 0
}

// kill sends a signal (default SIGTERM) to a job's whole process group
func (b *Builtins) kill(words []string) int {
	if len(words) < 2 {
		fmt.Fprintln(b.errOut, "kill: usage: kill [-signal] %job_id")
		return 1
	}

	sig := unix.SIGTERM
	argIdx := 1

	if strings.HasPrefix(words[1], "-") && len(words[1]) > 1 {
		parsed, err := jobcontrol.SignalByName(words[1][1:])
		if err != nil {
			fmt.Fprintf(b.errOut, "kill: %v\n", err)
			return 1
		}
		sig = parsed
		argIdx = 2
		if len(words) <= argIdx {
			fmt.Fprintln(b.errOut, "kill: usage: kill [-signal] %job_id")
			return 1
		}
	}

	j := b.lookupJob("kill", words[argIdx])
	if j == nil {
		return 1
	}

	if err := b.jc.Kill(j, sig); err != nil {
		fmt.Fprintf(b.errOut, "kill: %v\n", err)
		return 1
	}

	switch sig {
	case unix.SIGSTOP, unix.SIGTSTP:
		j.State = job.Stopped
		for _, p := range j.Processes {
			p.State = job.ProcStopped
		}
		fmt.Fprintf(b.out, "[%d]+ Stopped\t%s\n", j.ID, j.CommandText)
	case unix.SIGCONT:
		j.State = job.Background
		for _, p := range j.Processes {
			if p.State == job.ProcStopped {
				p.State = job.ProcRunning
			}
		}
		fmt.Fprintf(b.out, "[%d]+ %s &\n", j.ID, j.CommandText)
	case unix.SIGTERM, unix.SIGKILL:
		fmt.Fprintf(b.out, "[%d]+ Terminated\t%s\n", j.ID, j.CommandText)
	}

	return 0
}

// set prints the environment or assigns NAME=VALUE
func (b *Builtins) set(words []string) int {
	if len(words) < 2 {
		for _, kv := range os.Environ() {
			fmt.Fprintln(b.out, kv)
		}
		return 0
	}

	name, value, ok := strings.Cut(words[1], "=")
	if !ok || name == "" {
		fmt.Fprintln(b.errOut, "set: expected NAME=value")
		return 1
	}

	if err := os.Setenv(name, value); err != nil {
		fmt.Fprintf(b.errOut, "set: %v\n", err)
		return 1
	}
	return 0
}

func (b *Builtins) unset(words []string) int {
	if len(words) < 2 {
		fmt.Fprintln(b.errOut, "unset: expected variable name")
		return 1
	}
	if err := os.Unsetenv(words[1]); err != nil {
		fmt.Fprintf(b.errOut, "unset: %v\n", err)
		return 1
	}
	return 0
}

// history lists or clears the command history
func (b *Builtins) history(words []string) int {
	if b.hist == nil {
		return 0
	}

	if len(words) > 1 && words[1] == "clear" {
		b.hist.Clear()
		return 0
	}

	for i, line := range b.hist.Entries() {
		fmt.Fprintf(b.out, "%5d  %s\n", i+1, line)
	}
	return 0
}
