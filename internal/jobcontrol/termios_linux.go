//go:build linux

package jobcontrol

import "golang.org/x/sys/unix"

const (
	reqGetTermios = unix.TCGETS
	reqSetTermios = unix.TCSETSW // drain output before switching
)
