package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oklog/run"

	"github.com/jprendes/libusb-proxy/internal/log"
	"github.com/jprendes/libusb-proxy/internal/metrics"
	"github.com/jprendes/libusb-proxy/internal/server"
	"github.com/jprendes/libusb-proxy/internal/transport/addr"
	"github.com/jprendes/libusb-proxy/internal/usbbackend"
)

// Serve is the default command: it opens the configured listeners and
// serves RPC connections on them until interrupted.
type Serve struct {
	Listen            []string      `help:"Address(es) to listen on; repeatable and/or ';'-joined. Accepts tcp://HOST[:PORT], local://PATH, or bare HOST:PORT." default:"tcp://localhost:5678" sep:";" env:"LIBUSB_PROXY_LISTEN"`
	MetricsListen     string        `help:"Address to serve Prometheus metrics on; empty disables metrics." env:"LIBUSB_PROXY_METRICS_LISTEN"`
	ConnectionTimeout time.Duration `help:"Idle connection timeout (accepted but not applied to connections)." default:"0s"`
}

// Run is called by Kong when no subcommand is given.
func (s *Serve) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := notifyContext()
	defer stop()
	return s.start(ctx, logger, rawLogger)
}

func (s *Serve) start(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	addrs, err := addr.ParseList(strings.Join(s.Listen, ";"))
	if err != nil {
		return fmt.Errorf("parsing --listen: %w", err)
	}
	listeners, err := addr.Listen(ctx, addrs)
	if err != nil {
		return fmt.Errorf("binding listeners: %w", err)
	}

	// The native library binding is the one piece of this system libusb
	// itself provides: a production build wires a cgo implementation in
	// here behind the usbbackend.NativeLibrary seam. Lacking real hardware
	// access in this environment, the fake in-memory library answers
	// get_capabilities honestly (no HID access, no kernel-driver support)
	// and reports zero devices.
	lib := usbbackend.NewFake(false, false)
	reg := metrics.New()
	disp := server.New(lib, logger, server.WithMetrics(reg))

	var g run.Group

	for i, ln := range listeners {
		ln := ln
		a := addrs[i]
		g.Add(func() error {
			logger.Info("listening", "addr", ln.Addr())
			return server.Serve(ctx, ln, disp, logger, rawLogger, reg)
		}, func(error) {
			_ = ln.Close()
			if a.Network == addr.NetworkUnix {
				if err := os.Remove(a.Target); err != nil && !os.IsNotExist(err) {
					logger.Warn("failed to remove socket file", "path", a.Target, "error", err)
				}
			}
		})
	}

	if s.MetricsListen != "" {
		metricsAddrs, err := addr.ParseList(s.MetricsListen)
		if err != nil {
			return fmt.Errorf("parsing --metrics-listen: %w", err)
		}
		metricsLns, err := addr.Listen(ctx, metricsAddrs)
		if err != nil {
			return fmt.Errorf("binding metrics listener: %w", err)
		}
		for _, ml := range metricsLns {
			ml := ml
			g.Add(func() error {
				logger.Info("metrics listening", "addr", ml.Addr())
				return reg.Serve(ctx, ml)
			}, func(error) {
				_ = ml.Close()
			})
		}
	}

	// Terminates the group once ctx is cancelled (SIGINT/SIGTERM), which in
	// turn runs every actor's interrupt func and closes the listeners.
	g.Add(func() error {
		<-ctx.Done()
		return nil
	}, func(error) {})

	logger.Info("libusb-proxy server starting")
	runErr := g.Run()
	disp.Close()
	return runErr
}
