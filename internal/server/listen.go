package server

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/jprendes/libusb-proxy/internal/log"
	"github.com/jprendes/libusb-proxy/internal/metrics"
	"github.com/jprendes/libusb-proxy/internal/rpcendpoint"
)

// Serve accepts connections off ln until ctx is cancelled or the listener
// fails, registering a fresh RPC endpoint with disp's method table for each
// one. Every connection is handled on its own goroutine and outlives no
// other connection: one client hanging does not block another. reg is
// optional; a nil Registry disables per-connection metrics.
func Serve(ctx context.Context, ln net.Listener, disp *Dispatcher, logger *slog.Logger, raw log.RawLogger, reg *metrics.Registry) error {
	if logger == nil {
		logger = slog.Default()
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		logger.Info("client connected", "remote", conn.RemoteAddr(), "local", ln.Addr())
		go serveConn(ctx, conn, disp, logger, raw, reg)
	}
}

func serveConn(ctx context.Context, conn net.Conn, disp *Dispatcher, logger *slog.Logger, raw log.RawLogger, reg *metrics.Registry) {
	defer conn.Close()
	var opts []rpcendpoint.Option
	if reg != nil {
		opts = append(opts,
			rpcendpoint.WithCallsInFlightGauge(reg.CallsInFlight),
			rpcendpoint.WithFrameCounters(reg.FramesRead, reg.FramesWritten),
		)
	}
	ep := rpcendpoint.New(conn, logger, raw, opts...)
	disp.Register(ep)
	if err := ep.Run(ctx); err != nil {
		logger.Info("client disconnected", "remote", conn.RemoteAddr(), "reason", err)
	}
}
