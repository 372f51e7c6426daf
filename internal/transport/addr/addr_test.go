package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTCP(t *testing.T) {
	a, err := Parse("tcp://localhost:5678")
	require.NoError(t, err)
	assert.Equal(t, NetworkTCP, a.Network)
	assert.Equal(t, "localhost:5678", a.Target)
}

func TestParseTCPDefaultPort(t *testing.T) {
	a, err := Parse("tcp://localhost")
	require.NoError(t, err)
	assert.Equal(t, "localhost:5678", a.Target)
}

func TestParseBareHostPort(t *testing.T) {
	a, err := Parse("example.com:1234")
	require.NoError(t, err)
	assert.Equal(t, NetworkTCP, a.Network)
	assert.Equal(t, "example.com:1234", a.Target)
}

func TestParseIPv6Bracketed(t *testing.T) {
	a, err := Parse("tcp://[::1]:5678")
	require.NoError(t, err)
	assert.Equal(t, "[::1]:5678", a.Target)
}

func TestParseLocal(t *testing.T) {
	a, err := Parse("local:///var/run/libusb-proxy.sock")
	require.NoError(t, err)
	assert.Equal(t, NetworkUnix, a.Network)
	assert.Equal(t, "/var/run/libusb-proxy.sock", a.Target)
}

func TestParseLocalEmptyPathRejected(t *testing.T) {
	_, err := Parse("local://")
	assert.Error(t, err)
}

func TestParseListSemicolonJoined(t *testing.T) {
	addrs, err := ParseList("tcp://localhost:1;local:///tmp/a.sock; tcp://host2:2")
	require.NoError(t, err)
	require.Len(t, addrs, 3)
	assert.Equal(t, NetworkTCP, addrs[0].Network)
	assert.Equal(t, NetworkUnix, addrs[1].Network)
	assert.Equal(t, "host2:2", addrs[2].Target)
}

func TestParseListEmptyRejected(t *testing.T) {
	_, err := ParseList("")
	assert.Error(t, err)
}
