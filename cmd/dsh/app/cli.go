package app

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/phillarmonic/dsh/internal/config"
	"github.com/phillarmonic/dsh/internal/shell"
)

// App represents the CLI application
type App struct {
	version string
	commit  string
	date    string

	rootCmd *cobra.Command

	// Flags
	command     string
	noRC        bool
	noHistory   bool
	verbose     bool
	showVersion bool

	// Debug flags
	debugTokens bool
	debugAST    bool

	exitCode int
}

// NewApp creates a new CLI application
func NewApp(version, commit, date string) *App {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	app.rootCmd = &cobra.Command{
		Use:   "dsh",
		Short: "dsh (do-shell): an interactive job-controlling shell",
		Long: `dsh (do-shell) is an interactive command interpreter with pipelines,
redirections, subshells and full job control.

Examples:
  dsh                          # Start an interactive session
  dsh -c 'make | tee build.log'  # Run one command line and exit
  dsh --debug-tokens -c 'a|b'  # Dump the token stream
  dsh --debug-ast -c 'a|b'     # Dump the parsed command tree`,
		RunE:          app.run,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	app.setupFlags()

	return app
}

// Execute runs the application and returns the process exit code
func (a *App) Execute() int {
	if err := a.rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dsh: %v\n", err)
		return 2
	}
	return a.exitCode
}

// setupFlags sets up all command-line flags
func (a *App) setupFlags() {
	flags := a.rootCmd.Flags()

	flags.StringVarP(&a.command, "command", "c", "", "Run a single command line and exit")
	flags.BoolVar(&a.noRC, "norc", false, "Skip ~/"+config.RCFileName)
	flags.BoolVar(&a.noHistory, "no-history", false, "Do not load or persist command history")
	flags.BoolVar(&a.verbose, "verbose", false, "Log process and job-control activity to stderr")
	flags.BoolVarP(&a.showVersion, "version", "v", false, "Show version information")
	flags.BoolVar(&a.debugTokens, "debug-tokens", false, "Print the token stream for -c input and exit")
	flags.BoolVar(&a.debugAST, "debug-ast", false, "Print the command tree for -c input and exit")
}

// run is the root command handler
func (a *App) run(_ *cobra.Command, _ []string) error {
	if a.showVersion {
		return ShowVersion(a.version, a.commit, a.date)
	}

	cfg := config.Default()
	if !a.noRC {
		loaded, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "dsh: %v\n", err)
		} else {
			cfg = loaded
		}
	}
	if a.noHistory {
		cfg.NoHistory = true
	}
	if a.verbose {
		cfg.Verbose = true
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	if a.debugTokens || a.debugAST {
		if a.command == "" {
			return fmt.Errorf("--debug-tokens and --debug-ast require -c")
		}
		return a.runDebug(a.command)
	}

	if a.command != "" {
		cfg.NoHistory = true // one-shot commands leave no history
		sh, err := shell.New(shell.Options{Config: cfg, NonInteractive: true, Log: log})
		if err != nil {
			return err
		}
		a.exitCode = sh.RunCommand(a.command)
		return nil
	}

	sh, err := shell.New(shell.Options{Config: cfg, Log: log})
	if err != nil {
		return err
	}
	a.exitCode = sh.Run()
	return nil
}
