//go:build linux

package addr

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenConfig sets SO_REUSEADDR on tcp listeners so a restarted server can
// rebind a still-lingering address immediately. Unix domain sockets
// (including abstract-namespace ones, which net already supports via a
// leading '@') need no such option.
func listenConfig(network Network) net.ListenConfig {
	if network != NetworkTCP {
		return net.ListenConfig{}
	}
	return net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
}
