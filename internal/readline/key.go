package readline

import "bufio"

// keyType classifies one decoded keypress
type keyType int

const (
	keyNone keyType = iota
	keyChar
	keyEnter
	keyBackspace
	keyDelete
	keyUp
	keyDown
	keyLeft
	keyRight
	keyHome
	keyEnd
	keyCtrlA
	keyCtrlC
	keyCtrlD
	keyCtrlE
	keyCtrlK
	keyCtrlL
	keyCtrlU
	keyCtrlW
)

// readKey decodes the next keypress, following the usual xterm escape
// sequences for arrows, home/end and delete.
func readKey(in *bufio.Reader) (keyType, rune, error) {
	r, _, err := in.ReadRune()
	if err != nil {
		return keyNone, 0, err
	}

	switch r {
	case 1:
		return keyCtrlA, 0, nil
	case 3:
		return keyCtrlC, 0, nil
	case 4:
		return keyCtrlD, 0, nil
	case 5:
		return keyCtrlE, 0, nil
	case 11:
		return keyCtrlK, 0, nil
	case 12:
		return keyCtrlL, 0, nil
	case 21:
		return keyCtrlU, 0, nil
	case 23:
		return keyCtrlW, 0, nil
	case '\r', '\n':
		return keyEnter, 0, nil
	case 127, 8:
		return keyBackspace, 0, nil
	case '\x1b':
		return readEscape(in)
	}

	if r >= 32 {
		return keyChar, r, nil
	}
	return keyNone, 0, nil
}

// readEscape decodes the tail of an escape sequence
func readEscape(in *bufio.Reader) (keyType, rune, error) {
	b1, err := in.ReadByte()
	if err != nil {
		return keyNone, 0, nil
	}

	if b1 == 'O' {
		b2, err := in.ReadByte()
		if err != nil {
			return keyNone, 0, nil
		}
		switch b2 {
		case 'H':
			return keyHome, 0, nil
		case 'F':
			return keyEnd, 0, nil
		}
		return keyNone, 0, nil
	}

	if b1 != '[' {
		return keyNone, 0, nil
	}

	b2, err := in.ReadByte()
	if err != nil {
		return keyNone, 0, nil
	}
	switch b2 {
	case 'A':
		return keyUp, 0, nil
	case 'B':
		return keyDown, 0, nil
	case 'C':
		return keyRight, 0, nil
	case 'D':
		return keyLeft, 0, nil
	case 'H':
		return keyHome, 0, nil
	case 'F':
		return keyEnd, 0, nil
	case '1', '3', '4':
		// sequences like ESC [ 3 ~
		b3, err := in.ReadByte()
		if err != nil || b3 != '~' {
			return keyNone, 0, nil
		}
		switch b2 {
		case '1':
			return keyHome, 0, nil
		case '3':
			return keyDelete, 0, nil
		case '4':
			return keyEnd, 0, nil
		}
	}
	return keyNone, 0, nil
}
