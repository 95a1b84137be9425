package executor

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/phillarmonic/dsh/internal/ast"
)

// redirEntry is one collected redirection from a wrapper chain
type redirEntry struct {
	kind ast.RedirKind
	path string
}

// targetFDs returns the file descriptors a redirection replaces
func (r redirEntry) targetFDs() []int {
	switch r.kind {
	case ast.RedirIn:
		return []int{0}
	case ast.RedirOut, ast.RedirOutAppend:
		return []int{1}
	case ast.RedirErr, ast.RedirErrAppend:
		return []int{2}
	case ast.RedirAll, ast.RedirAllAppend:
		return []int{1, 2}
	}
	return nil
}

// openFlags returns the open(2) flags for a redirection
func (r redirEntry) openFlags() int {
	switch r.kind {
	case ast.RedirIn:
		return unix.O_RDONLY
	case ast.RedirOut, ast.RedirErr, ast.RedirAll:
		return unix.O_WRONLY | unix.O_CREAT | unix.O_TRUNC
	default:
		return unix.O_WRONLY | unix.O_CREAT | unix.O_APPEND
	}
}

// evalRedirect applies a redirect chain to the shell's own fds, runs
// the wrapped node, and restores the originals. The chain is walked
// outermost-first, which is last-typed-first, so when redirects overlap
// on one target fd the last one typed wins and earlier ones are not
// even opened.
func (e *Executor) evalRedirect(n *ast.Redirect) int {
	var chain []redirEntry
	var node ast.Node = n
	for {
		r, ok := node.(*ast.Redirect)
		if !ok {
			break
		}
		chain = append(chain, redirEntry{kind: r.Kind, path: r.Path})
		node = r.Target
	}

	saved := make(map[int]int) // target fd -> dup of the original
	restore := func() {
		for fd, dup := range saved {
			if err := unix.Dup2(dup, fd); err != nil {
				fmt.Fprintf(os.Stderr, "dsh: restore fd %d: %v\n", fd, err)
			}
			unix.Close(dup)
		}
	}

	for _, entry := range chain {
		fds := entry.targetFDs()

		open := false
		for _, fd := range fds {
			if _, done := saved[fd]; !done {
				open = true
			}
		}
		if !open {
			continue // every target fd already claimed by a later-typed redirect
		}

		file, err := unix.Open(entry.path, entry.openFlags(), 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dsh: %s: %v\n", entry.path, err)
			restore()
			return 1
		}

		for _, fd := range fds {
			if _, done := saved[fd]; done {
				continue
			}
			dup, err := unix.Dup(fd)
			if err != nil {
				fmt.Fprintf(os.Stderr, "dsh: dup: %v\n", err)
				unix.Close(file)
				restore()
				return 1
			}
			if err := unix.Dup2(file, fd); err != nil {
				fmt.Fprintf(os.Stderr, "dsh: dup2: %v\n", err)
				unix.Close(dup)
				unix.Close(file)
				restore()
				return 1
			}
			saved[fd] = dup
		}
		unix.Close(file)
	}

	code := e.Eval(node)

	restore()
	return code
}
