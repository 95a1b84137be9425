// Package readline reads logically complete command lines from the
// terminal: raw-mode editing with cursor movement and history recall
// when stdin is a tty, a plain buffered reader otherwise. A line that
// ends inside an open quote or with a continuation backslash keeps
// reading under a secondary prompt, so the shell core always receives a
// finished command.
package readline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/phillarmonic/dsh/internal/history"
	"github.com/phillarmonic/dsh/internal/lexer"
)

const contPrompt = "> "

// Reader produces complete command lines
type Reader struct {
	hist        *history.Store
	prompt      func() string
	in          *os.File
	out         *os.File
	interactive bool
	buffered    *bufio.Reader
}

// New creates a reader on stdin. The prompt callback is re-invoked for
// every primary read.
func New(hist *history.Store, prompt func() string) *Reader {
	in := os.Stdin
	return &Reader{
		hist:        hist,
		prompt:      prompt,
		in:          in,
		out:         os.Stdout,
		interactive: term.IsTerminal(int(in.Fd())),
		buffered:    bufio.NewReader(in),
	}
}

// Interactive reports whether the reader edits on a terminal
func (r *Reader) Interactive() bool {
	return r.interactive
}

// ReadCommand reads one logically complete command. It returns io.EOF
// when the input is exhausted (ctrl-d on an empty line, or EOF on a
// non-terminal stdin).
func (r *Reader) ReadCommand() (string, error) {
	line, err := r.readLine(r.prompt())
	if err != nil {
		return "", err
	}

	// Keep reading while the lexer reports an unfinished construct;
	// the embedded newline keeps quoted strings and continuations
	// intact on the re-lex.
	for needsContinuation(line) {
		more, err := r.readLine(contPrompt)
		if err != nil {
			break
		}
		line = line + "\n" + more
	}

	return line, nil
}

// needsContinuation reports whether the accumulated input still has an
// open quote or a trailing continuation backslash.
func needsContinuation(input string) bool {
	tokens := lexer.NewLexer(input).AllTokens()
	for _, tok := range tokens {
		if tok.Type != lexer.ILLEGAL {
			continue
		}
		switch tok.Literal {
		case "unclosed single quote", "unclosed double quote", "dangling backslash":
			return true
		}
	}
	return false
}

// readLine reads one physical line
func (r *Reader) readLine(prompt string) (string, error) {
	if !r.interactive {
		line, err := r.buffered.ReadString('\n')
		if err != nil {
			if err == io.EOF && line != "" {
				return strings.TrimSuffix(line, "\n"), nil
			}
			return "", err
		}
		return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
	}

	return r.editLine(prompt)
}

// editLine runs the raw-mode editor for one line
func (r *Reader) editLine(prompt string) (string, error) {
	fd := int(r.in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// Terminal went away; degrade to buffered reads.
		r.interactive = false
		return r.readLine(prompt)
	}
	defer term.Restore(fd, oldState)

	ed := &editor{reader: r, prompt: prompt}
	return ed.run()
}

// editor holds the state of one raw-mode line edit
type editor struct {
	reader *Reader
	prompt string

	buf    []rune
	cursor int

	histIndex int // next recall position; counts back from the end
	draft     []rune
}

func (ed *editor) run() (string, error) {
	ed.reader.out.WriteString(ed.prompt)

	in := bufio.NewReader(ed.reader.in)
	for {
		key, ch, err := readKey(in)
		if err != nil {
			return "", err
		}

		switch key {
		case keyEnter:
			ed.reader.out.WriteString("\r\n")
			return string(ed.buf), nil

		case keyCtrlD:
			if len(ed.buf) == 0 {
				ed.reader.out.WriteString("\r\n")
				return "", io.EOF
			}
			ed.deleteAt(ed.cursor)

		case keyCtrlC:
			ed.reader.out.WriteString("^C\r\n")
			ed.buf = ed.buf[:0]
			ed.cursor = 0
			ed.histIndex = 0
			ed.reader.out.WriteString(ed.prompt)

		case keyChar:
			ed.buf = append(ed.buf, 0)
			copy(ed.buf[ed.cursor+1:], ed.buf[ed.cursor:])
			ed.buf[ed.cursor] = ch
			ed.cursor++
			ed.redraw()

		case keyBackspace:
			if ed.cursor > 0 {
				ed.deleteAt(ed.cursor - 1)
				ed.cursor--
				ed.redraw()
			}

		case keyDelete:
			ed.deleteAt(ed.cursor)

		case keyLeft:
			if ed.cursor > 0 {
				ed.cursor--
				ed.redraw()
			}

		case keyRight:
			if ed.cursor < len(ed.buf) {
				ed.cursor++
				ed.redraw()
			}

		case keyHome, keyCtrlA:
			ed.cursor = 0
			ed.redraw()

		case keyEnd, keyCtrlE:
			ed.cursor = len(ed.buf)
			ed.redraw()

		case keyCtrlU:
			ed.buf = append(ed.buf[:0], ed.buf[ed.cursor:]...)
			ed.cursor = 0
			ed.redraw()

		case keyCtrlK:
			ed.buf = ed.buf[:ed.cursor]
			ed.redraw()

		case keyCtrlW:
			ed.deleteWordBack()

		case keyCtrlL:
			ed.reader.out.WriteString("\x1b[2J\x1b[H")
			ed.redraw()

		case keyUp:
			ed.recall(1)

		case keyDown:
			ed.recall(-1)
		}
	}
}

// deleteAt removes the rune at index, when in range
func (ed *editor) deleteAt(index int) {
	if index < 0 || index >= len(ed.buf) {
		return
	}
	ed.buf = append(ed.buf[:index], ed.buf[index+1:]...)
	ed.redraw()
}

// deleteWordBack removes the word left of the cursor
func (ed *editor) deleteWordBack() {
	start := ed.cursor
	for start > 0 && ed.buf[start-1] == ' ' {
		start--
	}
	for start > 0 && ed.buf[start-1] != ' ' {
		start--
	}
	ed.buf = append(ed.buf[:start], ed.buf[ed.cursor:]...)
	ed.cursor = start
	ed.redraw()
}

// recall moves through the history: positive steps go back in time
func (ed *editor) recall(step int) {
	if ed.reader.hist == nil {
		return
	}
	count := ed.reader.hist.Count()

	next := ed.histIndex + step
	if next < 0 || next > count {
		return
	}

	if ed.histIndex == 0 && next > 0 {
		ed.draft = append([]rune(nil), ed.buf...)
	}

	ed.histIndex = next
	if next == 0 {
		ed.buf = append(ed.buf[:0], ed.draft...)
	} else {
		entry := ed.reader.hist.Get(count - next)
		ed.buf = append(ed.buf[:0], []rune(entry)...)
	}
	ed.cursor = len(ed.buf)
	ed.redraw()
}

// redraw repaints the edited line and parks the cursor
func (ed *editor) redraw() {
	var sb strings.Builder
	sb.WriteString("\r\x1b[K")
	sb.WriteString(ed.prompt)
	sb.WriteString(string(ed.buf))
	if back := len(ed.buf) - ed.cursor; back > 0 {
		fmt.Fprintf(&sb, "\x1b[%dD", back)
	}
	ed.reader.out.WriteString(sb.String())
}
