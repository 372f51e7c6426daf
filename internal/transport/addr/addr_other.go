//go:build !linux

package addr

import "net"

func listenConfig(network Network) net.ListenConfig {
	return net.ListenConfig{}
}
