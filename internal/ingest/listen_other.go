//go:build !linux

package ingest

import "syscall"

func receiveBufferControl(int) func(network, address string, c syscall.RawConn) error {
	return nil
}
