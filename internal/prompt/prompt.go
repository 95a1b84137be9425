// Package prompt renders the primary prompt line
package prompt

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/fatih/color"
)

// Renderer builds prompt strings from the current shell state
type Renderer struct {
	username string
	hostname string
	colored  bool
}

// New creates a prompt renderer. User and host are resolved once.
func New(colored bool) *Renderer {
	r := &Renderer{username: "user", colored: colored}

	if u, err := user.Current(); err == nil && u.Username != "" {
		r.username = u.Username
	}
	if host, err := os.Hostname(); err == nil {
		r.hostname = host
	}
	return r
}

// Render produces the prompt for the next read. The trailing '$' turns
// red after a failed command.
func (r *Renderer) Render(lastExitCode int) string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "?"
	}
	if home := os.Getenv("HOME"); home != "" && strings.HasPrefix(cwd, home) {
		cwd = "~" + cwd[len(home):]
	}

	if !r.colored {
		return fmt.Sprintf("%s@%s:%s$ ", r.username, r.hostname, cwd)
	}

	who := color.New(color.Bold, color.FgYellow).Sprintf("%s@%s", r.username, r.hostname)
	where := color.New(color.Bold, color.FgMagenta).Sprint(cwd)
	dollar := "$"
	if lastExitCode != 0 {
		dollar = color.New(color.FgRed).Sprint("$")
	}

	return fmt.Sprintf("%s:%s%s ", who, where, dollar)
}
