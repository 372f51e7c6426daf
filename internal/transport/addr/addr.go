// Package addr parses and dials/listens on the address grammar shared by
// the server's --listen flag and the client's LIBUSB_PROXY_HOST
// configuration: tcp://HOST[:PORT], local://PATH, bare HOST:PORT, and
// semicolon-joined lists of any of the above.
package addr

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// Network names an address's transport: "tcp" or "unix".
type Network string

const (
	NetworkTCP  Network = "tcp"
	NetworkUnix Network = "unix"
)

// Addr is one parsed endpoint from the address grammar.
type Addr struct {
	Network Network
	Target  string // host:port for tcp, filesystem/abstract path for unix
}

func (a Addr) String() string {
	switch a.Network {
	case NetworkUnix:
		return "local://" + a.Target
	default:
		return "tcp://" + a.Target
	}
}

// DefaultPort is used when a tcp:// address or bare host:port omits a port.
const DefaultPort = "5678"

// ParseList splits a ';'-joined address list and parses each entry.
func ParseList(s string) ([]Addr, error) {
	var out []Addr
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		a, err := Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("addr: empty address list")
	}
	return out, nil
}

// Parse parses a single address per the grammar in the external interfaces
// section: tcp://HOST[:PORT], local://PATH, or bare HOST:PORT.
func Parse(s string) (Addr, error) {
	switch {
	case strings.HasPrefix(s, "tcp://"):
		return parseTCP(strings.TrimPrefix(s, "tcp://"))
	case strings.HasPrefix(s, "local://"):
		path := strings.TrimPrefix(s, "local://")
		if path == "" {
			return Addr{}, fmt.Errorf("addr: empty local:// path")
		}
		return Addr{Network: NetworkUnix, Target: path}, nil
	default:
		return parseTCP(s)
	}
}

func parseTCP(hostport string) (Addr, error) {
	if hostport == "" {
		return Addr{}, fmt.Errorf("addr: empty tcp address")
	}
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		// No port present at all (covers "host", "[::1]" without a port).
		host = strings.Trim(hostport, "[]")
		port = DefaultPort
	}
	if port == "" {
		port = DefaultPort
	}
	return Addr{Network: NetworkTCP, Target: net.JoinHostPort(host, port)}, nil
}

// Dial connects to the first address in addrs that succeeds, trying each in
// order, matching the "tried in order (client)" rule from the address
// grammar.
func Dial(ctx context.Context, addrs []Addr) (net.Conn, error) {
	var lastErr error
	var d net.Dialer
	for _, a := range addrs {
		conn, err := d.DialContext(ctx, string(a.Network), a.Target)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("addr: failed to dial any of %d address(es): %w", len(addrs), lastErr)
}

// Listen binds every address in addrs in parallel, matching the "bound in
// parallel (server)" rule. On any failure it closes whatever it already
// opened and returns the error.
func Listen(ctx context.Context, addrs []Addr) ([]net.Listener, error) {
	var out []net.Listener
	for _, a := range addrs {
		l, err := listenOne(ctx, a)
		if err != nil {
			for _, opened := range out {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("addr: failed to listen on %s: %w", a, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func listenOne(ctx context.Context, a Addr) (net.Listener, error) {
	lc := listenConfig(a.Network)
	return lc.Listen(ctx, string(a.Network), a.Target)
}
