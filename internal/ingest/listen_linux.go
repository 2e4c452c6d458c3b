//go:build linux

package ingest

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// receiveBufferControl sizes the kernel receive buffer so that bursts of
// sentences are not dropped while the loop is busy.
func receiveBufferControl(size int) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		if size <= 0 {
			return nil
		}

		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, size)
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}
