// Package shell owns the read-eval loop: reconcile and announce job
// status, render the prompt, read a complete command, then lex, expand,
// parse and execute it. It also carries the state surfaces the expander
// and the exit builtin work against.
package shell

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/phillarmonic/dsh/internal/builtins"
	"github.com/phillarmonic/dsh/internal/config"
	dsherrors "github.com/phillarmonic/dsh/internal/errors"
	"github.com/phillarmonic/dsh/internal/executor"
	"github.com/phillarmonic/dsh/internal/expander"
	"github.com/phillarmonic/dsh/internal/history"
	"github.com/phillarmonic/dsh/internal/jobcontrol"
	"github.com/phillarmonic/dsh/internal/lexer"
	"github.com/phillarmonic/dsh/internal/parser"
	"github.com/phillarmonic/dsh/internal/prompt"
	"github.com/phillarmonic/dsh/internal/readline"
)

// Shell is one interpreter instance
type Shell struct {
	cfg  config.Config
	jc   *jobcontrol.Controller
	exec *executor.Executor
	expd *expander.Expander
	hist *history.Store
	log  *logrus.Logger

	reader *readline.Reader
	prompt *prompt.Renderer

	lastExitCode  int
	shouldExit    bool
	exitCode      int
	exitAttempted bool
}

// Options configures a Shell
type Options struct {
	Config config.Config
	// NonInteractive forces batch behavior regardless of the tty; -c
	// children run this way so nested executions skip terminal grants
	// and stay in the enclosing process group.
	NonInteractive bool
	Log            *logrus.Logger
}

// New wires up a shell instance
func New(opts Options) (*Shell, error) {
	log := opts.Log
	if log == nil {
		log = logrus.New()
	}

	s := &Shell{cfg: opts.Config, log: log}

	s.jc = jobcontrol.NewController(log)
	if opts.NonInteractive {
		s.jc.SetNonInteractive()
	}

	hist, err := history.Open(opts.Config.HistorySize, opts.Config.NoHistory)
	if err != nil {
		return nil, err
	}
	s.hist = hist

	bi := builtins.New(s.jc, hist, s)
	s.exec = executor.New(executor.Options{
		Controller:   s.jc,
		Builtins:     bi,
		InBackground: opts.NonInteractive,
		Log:          log,
	})
	s.expd = expander.NewExpander(s)

	s.prompt = prompt.New(opts.Config.Color && s.jc.Interactive())
	s.reader = readline.New(hist, func() string {
		return s.prompt.Render(s.lastExitCode)
	})

	return s, nil
}

// LastExitCode exposes $? to the expander
func (s *Shell) LastExitCode() int {
	return s.lastExitCode
}

// LastBackgroundPID exposes $! to the expander
func (s *Shell) LastBackgroundPID() int {
	return s.exec.LastBackgroundPID()
}

// RequestExit is the exit builtin's hook; the REPL breaks after the
// current command finishes.
func (s *Shell) RequestExit(code int) {
	s.shouldExit = true
	s.exitCode = code
}

// Run drives the interactive loop until exit or EOF. The returned code
// is the one given to exit, 0 on EOF.
func (s *Shell) Run() int {
	if err := s.jc.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "dsh: job control: %v\n", err)
	}
	defer s.jc.Shutdown()
	defer func() {
		if err := s.hist.Close(); err != nil {
			s.log.WithError(err).Debug("history save failed")
		}
	}()

	for {
		s.jc.Reap()
		s.jc.NotifyCompleted()

		line, err := s.reader.ReadCommand()
		if err != nil {
			// EOF: refuse once while stopped jobs remain
			if s.jc.HasStoppedJobs() && !s.exitAttempted {
				fmt.Println("\nThere are stopped jobs.")
				s.exitAttempted = true
				continue
			}
			fmt.Println()
			break
		}
		s.exitAttempted = false

		if strings.TrimSpace(line) == "" {
			continue
		}

		s.Execute(line)

		if s.shouldExit {
			break
		}
	}

	return s.exitCode
}

// RunCommand executes one command string non-interactively (-c) and
// returns its exit code.
func (s *Shell) RunCommand(command string) int {
	defer s.jc.Shutdown()
	if err := s.jc.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "dsh: job control: %v\n", err)
	}

	code := s.Execute(command)
	if s.shouldExit {
		return s.exitCode
	}
	return code
}

// Execute runs one complete command line through the full data path.
// Lexical and syntax errors are reported and yield code 2; they never
// leave the current REPL iteration.
func (s *Shell) Execute(line string) int {
	tokens := lexer.NewLexer(line).AllTokens()
	s.expd.Expand(tokens)

	tree, err := parser.NewParser(tokens, line).Parse()
	if err != nil {
		var synErr *dsherrors.SyntaxError
		if errors.As(err, &synErr) {
			fmt.Fprint(os.Stderr, synErr.Format())
		} else {
			fmt.Fprintf(os.Stderr, "dsh: %v\n", err)
		}
		s.lastExitCode = 2
		return 2
	}
	if tree == nil {
		return 0
	}

	s.log.WithField("tree", tree.String()).Debug("executing")

	code := s.exec.Eval(tree)
	s.lastExitCode = code
	s.hist.Add(line)
	return code
}

// Jobs exposes the registry for debug surfaces
func (s *Shell) Jobs() *jobcontrol.Controller {
	return s.jc
}
