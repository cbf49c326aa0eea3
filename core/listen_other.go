//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package core

import (
	"errors"
	"syscall"
)

func (e *Engine) control(network, address string, rc syscall.RawConn) error {
	if e.reusePort {
		return errors.New("reuse_port is not supported on this platform")
	}
	return nil
}
