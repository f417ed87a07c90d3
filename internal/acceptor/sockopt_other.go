//go:build !unix

package acceptor

import "syscall"

// controlReuseAddr is a no-op on non-Unix platforms.
func controlReuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
