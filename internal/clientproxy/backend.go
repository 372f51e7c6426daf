// Package clientproxy is the client-side backend adapter: it resolves a
// server address, holds one RPC endpoint open to it, and translates the
// wire's USB domain model into the calls a libusb-shaped frontend expects
// (enumerate, open/close, control state, submit/cancel transfer). Nothing
// downstream of this package should ever touch rpcendpoint or rpcwire
// directly.
package clientproxy

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/jprendes/libusb-proxy/internal/log"
	"github.com/jprendes/libusb-proxy/internal/rpcendpoint"
	"github.com/jprendes/libusb-proxy/internal/rpcerr"
	"github.com/jprendes/libusb-proxy/internal/transport/addr"
	"github.com/jprendes/libusb-proxy/internal/usbproxy"
)

// Device is the client-side view of a device known to the remote host: the
// enumeration summary plus its descriptor, fetched once and cached for the
// lifetime of the Backend.
type Device struct {
	ID         uint32
	Bus        uint8
	Port       uint8
	Address    uint8
	Descriptor usbproxy.Descriptor
}

// Backend owns one connection to a remote host and the RPC endpoint
// multiplexed over it. It is safe for concurrent use: the underlying
// endpoint already serializes writes and matches responses by correlation
// ID, so Backend methods only need to guard the local device cache.
type Backend struct {
	ep     *rpcendpoint.Endpoint
	conn   net.Conn
	cancel context.CancelFunc
	sink   CompletionSink

	mu      sync.Mutex
	devices map[uint32]*Device
	caps    usbproxy.Capabilities
}

// Open resolves addrList (a [[addr.ParseList]] string), dials the first
// address that accepts a connection, and fetches the remote host's
// capabilities before returning. sink, if non-nil, receives every completed
// or failed transfer submitted through this Backend.
func Open(ctx context.Context, addrList string, sink CompletionSink, logger *slog.Logger, raw log.RawLogger) (*Backend, error) {
	addrs, err := addr.ParseList(addrList)
	if err != nil {
		return nil, rpcerr.LocalDomainf("parsing address list: %v", err)
	}
	conn, err := addr.Dial(ctx, addrs)
	if err != nil {
		return nil, rpcerr.Transport(err)
	}

	ep := rpcendpoint.New(conn, logger, raw)
	runCtx, cancel := context.WithCancel(context.Background())
	go func() { _ = ep.Run(runCtx) }()

	b := &Backend{
		ep:      ep,
		conn:    conn,
		cancel:  cancel,
		sink:    sink,
		devices: make(map[uint32]*Device),
	}

	caps, err := b.fetchCapabilities(ctx)
	if err != nil {
		cancel()
		_ = conn.Close()
		return nil, err
	}
	b.caps = caps
	return b, nil
}

// Close tears down the endpoint and the underlying connection.
func (b *Backend) Close() error {
	b.cancel()
	return b.conn.Close()
}

// Capabilities returns the capabilities fetched when the Backend was opened.
func (b *Backend) Capabilities() usbproxy.Capabilities {
	return b.caps
}

func (b *Backend) fetchCapabilities(ctx context.Context) (usbproxy.Capabilities, error) {
	res, err := b.ep.Call(ctx, usbproxy.MethodGetCapabilities, nil)
	if err != nil {
		return usbproxy.Capabilities{}, err
	}
	return usbproxy.DecodeCapabilitiesResult(res)
}

// Enumerate lists every device the remote host currently reports, fetching
// and caching the descriptor for any device ID seen for the first time.
// Device IDs are stable for the lifetime of the remote host's process, so a
// device already known to this Backend is returned from the cache without a
// round trip.
func (b *Backend) Enumerate(ctx context.Context) ([]*Device, error) {
	res, err := b.ep.Call(ctx, usbproxy.MethodDevicesList, nil)
	if err != nil {
		return nil, err
	}
	list, err := usbproxy.DecodeDeviceListResult(res)
	if err != nil {
		return nil, rpcerr.Wrap(err)
	}

	out := make([]*Device, 0, len(list))
	for _, summary := range list {
		b.mu.Lock()
		dev, known := b.devices[summary.ID]
		b.mu.Unlock()
		if known {
			out = append(out, dev)
			continue
		}

		descRes, err := b.ep.Call(ctx, usbproxy.MethodDeviceDescriptor, usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: summary.ID}))
		if err != nil {
			return nil, err
		}
		desc, err := usbproxy.DecodeDescriptorResult(descRes)
		if err != nil {
			return nil, rpcerr.Wrap(err)
		}

		dev = &Device{
			ID:         summary.ID,
			Bus:        summary.BusNumber,
			Port:       summary.PortNumber,
			Address:    summary.DeviceAddress,
			Descriptor: desc,
		}
		b.mu.Lock()
		b.devices[summary.ID] = dev
		b.mu.Unlock()
		out = append(out, dev)
	}
	return out, nil
}

// ActiveConfigDescriptor copies the remote device's active configuration
// descriptor into out, truncating to len(out), and reports the number of
// bytes written.
func (b *Backend) ActiveConfigDescriptor(ctx context.Context, deviceID uint32, out []byte) (int, error) {
	res, err := b.ep.Call(ctx, usbproxy.MethodActiveConfigDescriptor, usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: deviceID}))
	if err != nil {
		return 0, err
	}
	blob, err := usbproxy.DecodeBytesResult(res)
	if err != nil {
		return 0, rpcerr.Wrap(err)
	}
	return copy(out, blob), nil
}

// ConfigDescriptor copies the descriptor for the configuration at index into
// out the same way ActiveConfigDescriptor does.
func (b *Backend) ConfigDescriptor(ctx context.Context, deviceID uint32, index uint8, out []byte) (int, error) {
	res, err := b.ep.Call(ctx, usbproxy.MethodConfigDescriptor, usbproxy.EncodeConfigDescriptorArgs(usbproxy.ConfigDescriptorArgs{DeviceID: deviceID, Index: index}))
	if err != nil {
		return 0, err
	}
	blob, err := usbproxy.DecodeBytesResult(res)
	if err != nil {
		return 0, rpcerr.Wrap(err)
	}
	return copy(out, blob), nil
}

// OpenDevice increments the remote device's open refcount, opening the
// native handle on the host side if this is the first open.
func (b *Backend) OpenDevice(ctx context.Context, deviceID uint32) error {
	_, err := b.ep.Call(ctx, usbproxy.MethodOpenDevice, usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: deviceID}))
	return err
}

// CloseDevice decrements the remote device's open refcount.
func (b *Backend) CloseDevice(ctx context.Context, deviceID uint32) error {
	_, err := b.ep.Call(ctx, usbproxy.MethodCloseDevice, usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: deviceID}))
	return err
}

// GetConfiguration returns the device's currently active configuration value.
func (b *Backend) GetConfiguration(ctx context.Context, deviceID uint32) (uint8, error) {
	res, err := b.ep.Call(ctx, usbproxy.MethodGetConfiguration, usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: deviceID}))
	if err != nil {
		return 0, err
	}
	return usbproxy.DecodeUint8Result(res)
}

// SetConfiguration sets the device's active configuration.
func (b *Backend) SetConfiguration(ctx context.Context, deviceID uint32, value int32) error {
	_, err := b.ep.Call(ctx, usbproxy.MethodSetConfiguration, usbproxy.EncodeSetConfigurationArgs(usbproxy.SetConfigurationArgs{DeviceID: deviceID, Value: value}))
	return err
}

// ClaimInterface claims iface for exclusive access.
func (b *Backend) ClaimInterface(ctx context.Context, deviceID uint32, iface uint8) error {
	_, err := b.ep.Call(ctx, usbproxy.MethodClaimInterface, usbproxy.EncodeDeviceIfaceArgs(usbproxy.DeviceIfaceArgs{DeviceID: deviceID, Iface: iface}))
	return err
}

// ReleaseInterface releases a previously claimed interface.
func (b *Backend) ReleaseInterface(ctx context.Context, deviceID uint32, iface uint8) error {
	_, err := b.ep.Call(ctx, usbproxy.MethodReleaseInterface, usbproxy.EncodeDeviceIfaceArgs(usbproxy.DeviceIfaceArgs{DeviceID: deviceID, Iface: iface}))
	return err
}

// SetInterfaceAltSetting selects an alternate setting on a claimed interface.
func (b *Backend) SetInterfaceAltSetting(ctx context.Context, deviceID uint32, iface, alt uint8) error {
	_, err := b.ep.Call(ctx, usbproxy.MethodSetInterfaceAltSetting, usbproxy.EncodeSetInterfaceAltSettingArgs(usbproxy.SetInterfaceAltSettingArgs{DeviceID: deviceID, Iface: iface, Alt: alt}))
	return err
}

// ClearHalt clears a stalled endpoint's halt condition.
func (b *Backend) ClearHalt(ctx context.Context, deviceID uint32, endpoint uint8) error {
	_, err := b.ep.Call(ctx, usbproxy.MethodClearHalt, usbproxy.EncodeClearHaltArgs(usbproxy.ClearHaltArgs{DeviceID: deviceID, Endpoint: endpoint}))
	return err
}

// ResetDevice issues a USB port reset.
func (b *Backend) ResetDevice(ctx context.Context, deviceID uint32) error {
	_, err := b.ep.Call(ctx, usbproxy.MethodResetDevice, usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: deviceID}))
	return err
}

// KernelDriverActive reports whether iface currently has a kernel driver attached.
func (b *Backend) KernelDriverActive(ctx context.Context, deviceID uint32, iface uint8) (bool, error) {
	res, err := b.ep.Call(ctx, usbproxy.MethodKernelDriverActive, usbproxy.EncodeDeviceIfaceArgs(usbproxy.DeviceIfaceArgs{DeviceID: deviceID, Iface: iface}))
	if err != nil {
		return false, err
	}
	return usbproxy.DecodeBoolResult(res)
}

// DetachKernelDriver detaches the kernel driver bound to iface.
func (b *Backend) DetachKernelDriver(ctx context.Context, deviceID uint32, iface uint8) error {
	_, err := b.ep.Call(ctx, usbproxy.MethodDetachKernelDriver, usbproxy.EncodeDeviceIfaceArgs(usbproxy.DeviceIfaceArgs{DeviceID: deviceID, Iface: iface}))
	return err
}

// AttachKernelDriver reattaches the kernel driver to iface.
func (b *Backend) AttachKernelDriver(ctx context.Context, deviceID uint32, iface uint8) error {
	_, err := b.ep.Call(ctx, usbproxy.MethodAttachKernelDriver, usbproxy.EncodeDeviceIfaceArgs(usbproxy.DeviceIfaceArgs{DeviceID: deviceID, Iface: iface}))
	return err
}
