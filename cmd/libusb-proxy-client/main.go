// Command libusb-proxy-client is a small diagnostic CLI for exercising a
// running libusb-proxy server: list its capabilities, enumerate its
// devices, or watch enumeration for changes.
package main

import (
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/jprendes/libusb-proxy/internal/log"
)

// CLI is the client binary's command tree.
type CLI struct {
	GetCapabilities GetCapabilitiesCmd `cmd:"" name:"get-capabilities" help:"Print the server's capability flags."`
	DevicesList     DevicesListCmd     `cmd:"" name:"devices-list" help:"Enumerate devices known to the server."`
	Watch           WatchCmd           `cmd:"" help:"Poll the server and print enumeration changes."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("libusb-proxy-client"),
		kong.Description("Diagnostic client for a libusb-proxy server."),
		kong.UsageOnError(),
	)

	level := levelFromDebugEnv()
	logger, _, err := log.SetupLogger(level, "")
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}

	var rawLogger log.RawLogger
	if level == "trace" {
		rawLogger = log.NewRaw(os.Stdout)
	} else {
		rawLogger = log.NewRaw(nil)
	}

	kctx.Bind(logger)
	kctx.BindTo(rawLogger, (*log.RawLogger)(nil))

	err = kctx.Run()
	kctx.FatalIfErrorf(err)
}

// levelFromDebugEnv maps LIBUSB_PROXY_DEBUG's 0..4 integer scale onto this
// module's slog level names.
func levelFromDebugEnv() string {
	v := os.Getenv("LIBUSB_PROXY_DEBUG")
	if v == "" {
		return "info"
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return "info"
	}
	switch {
	case n <= 0:
		return "error"
	case n == 1:
		return "warn"
	case n == 2:
		return "info"
	case n == 3:
		return "debug"
	default:
		return "trace"
	}
}

// hostAddr resolves the server address per LIBUSB_PROXY_HOST/LIBUSB_PROXY_PORT.
func hostAddr() string {
	host := os.Getenv("LIBUSB_PROXY_HOST")
	if host == "" {
		host = "tcp://localhost:5678"
	}
	if port := os.Getenv("LIBUSB_PROXY_PORT"); port != "" {
		host = appendPortIfMissing(host, port)
	}
	return host
}

// appendPortIfMissing supports the legacy LIBUSB_PROXY_PORT variable: it
// fills in port on every ';'-joined tcp:// or bare host entry that doesn't
// already specify one. local:// entries have no port and are left alone.
func appendPortIfMissing(hostList, port string) string {
	parts := strings.Split(hostList, ";")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "local://") {
			parts[i] = p
			continue
		}
		scheme := ""
		rest := p
		if strings.HasPrefix(p, "tcp://") {
			scheme = "tcp://"
			rest = strings.TrimPrefix(p, "tcp://")
		}
		if _, _, err := net.SplitHostPort(rest); err != nil {
			rest = net.JoinHostPort(strings.Trim(rest, "[]"), port)
		}
		parts[i] = scheme + rest
	}
	return strings.Join(parts, ";")
}
