package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jprendes/libusb-proxy/internal/clientproxy"
	"github.com/jprendes/libusb-proxy/internal/log"
)

// GetCapabilitiesCmd prints the capability flags reported by the server at
// connect time.
type GetCapabilitiesCmd struct{}

func (c *GetCapabilitiesCmd) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend, err := clientproxy.Open(ctx, hostAddr(), nil, logger, rawLogger)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", hostAddr(), err)
	}
	defer backend.Close()

	caps := backend.Capabilities()
	fmt.Printf("has_hid_access: %t\n", caps.HasHIDAccess)
	fmt.Printf("supports_detach_kernel_driver: %t\n", caps.SupportsDetachKernelDriver)
	return nil
}

// DevicesListCmd enumerates the devices currently visible to the server and
// prints one line per device.
type DevicesListCmd struct{}

func (c *DevicesListCmd) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend, err := clientproxy.Open(ctx, hostAddr(), nil, logger, rawLogger)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", hostAddr(), err)
	}
	defer backend.Close()

	devices, err := backend.Enumerate(ctx)
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	printDevices(devices)
	return nil
}

// WatchCmd polls the server's device list on an interval and prints any
// device that appears or disappears between polls.
type WatchCmd struct {
	Interval time.Duration `help:"Polling interval." default:"1s"`
}

func (c *WatchCmd) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 10*time.Second)
	backend, err := clientproxy.Open(dialCtx, hostAddr(), nil, logger, rawLogger)
	dialCancel()
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", hostAddr(), err)
	}
	defer backend.Close()

	seen := map[uint32]*clientproxy.Device{}

	poll := func() error {
		pollCtx, pollCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pollCancel()
		devices, err := backend.Enumerate(pollCtx)
		if err != nil {
			return err
		}
		current := map[uint32]*clientproxy.Device{}
		for _, d := range devices {
			current[d.ID] = d
		}
		for id, d := range current {
			if _, ok := seen[id]; !ok {
				fmt.Printf("+ %s\n", describeDevice(d))
			}
		}
		for id, d := range seen {
			if _, ok := current[id]; !ok {
				fmt.Printf("- %s\n", describeDevice(d))
			}
		}
		seen = current
		return nil
	}

	if err := poll(); err != nil {
		return fmt.Errorf("polling devices: %w", err)
	}

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := poll(); err != nil {
			logger.Warn("poll failed", "error", err)
		}
	}
	return nil
}

func printDevices(devices []*clientproxy.Device) {
	for _, d := range devices {
		fmt.Println(describeDevice(d))
	}
}

func describeDevice(d *clientproxy.Device) string {
	return fmt.Sprintf(
		"id=%d bus=%d port=%d addr=%d vid=%04x pid=%04x class=%02x",
		d.ID, d.Bus, d.Port, d.Address,
		d.Descriptor.IDVendor, d.Descriptor.IDProduct, d.Descriptor.BDeviceClass,
	)
}
