//go:build darwin || freebsd || openbsd

package jobcontrol

import "golang.org/x/sys/unix"

const (
	reqGetTermios = unix.TIOCGETA
	reqSetTermios = unix.TIOCSETAW // drain output before switching
)
