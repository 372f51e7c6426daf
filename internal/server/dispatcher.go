package server

import (
	"context"
	"log/slog"

	"github.com/jprendes/libusb-proxy/internal/metrics"
	"github.com/jprendes/libusb-proxy/internal/rpcendpoint"
	"github.com/jprendes/libusb-proxy/internal/rpcerr"
	"github.com/jprendes/libusb-proxy/internal/usbbackend"
	"github.com/jprendes/libusb-proxy/internal/usbproxy"
)

// Dispatcher owns the device table and the native library handle, and
// registers the fixed method set from the server's method table onto an
// RPC endpoint.
type Dispatcher struct {
	lib     usbbackend.NativeLibrary
	table   *DeviceTable
	logger  *slog.Logger
	metrics *metrics.Registry
}

// Option configures optional Dispatcher behavior at construction time.
type Option func(*Dispatcher)

// WithMetrics reports device-table and transfer outcomes to reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(d *Dispatcher) { d.metrics = reg }
}

// New creates a Dispatcher backed by lib.
func New(lib usbbackend.NativeLibrary, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{lib: lib, table: NewDeviceTable(), logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register installs every handler in the server method set onto ep.
func (d *Dispatcher) Register(ep *rpcendpoint.Endpoint) {
	ep.Register(usbproxy.MethodGetCapabilities, d.handleGetCapabilities)
	ep.Register(usbproxy.MethodDevicesList, d.handleDevicesList)
	ep.Register(usbproxy.MethodDeviceDescriptor, d.handleDeviceDescriptor)
	ep.Register(usbproxy.MethodActiveConfigDescriptor, d.handleActiveConfigDescriptor)
	ep.Register(usbproxy.MethodConfigDescriptor, d.handleConfigDescriptor)
	ep.Register(usbproxy.MethodGetConfiguration, d.handleGetConfiguration)
	ep.Register(usbproxy.MethodSetConfiguration, d.handleSetConfiguration)
	ep.Register(usbproxy.MethodClaimInterface, d.handleClaimInterface)
	ep.Register(usbproxy.MethodReleaseInterface, d.handleReleaseInterface)
	ep.Register(usbproxy.MethodSetInterfaceAltSetting, d.handleSetInterfaceAltSetting)
	ep.Register(usbproxy.MethodClearHalt, d.handleClearHalt)
	ep.Register(usbproxy.MethodResetDevice, d.handleResetDevice)
	ep.Register(usbproxy.MethodKernelDriverActive, d.handleKernelDriverActive)
	ep.Register(usbproxy.MethodDetachKernelDriver, d.handleDetachKernelDriver)
	ep.Register(usbproxy.MethodAttachKernelDriver, d.handleAttachKernelDriver)
	ep.Register(usbproxy.MethodOpenDevice, d.handleOpenDevice)
	ep.Register(usbproxy.MethodCloseDevice, d.handleCloseDevice)
	ep.Register(usbproxy.MethodSubmitTransfer, d.handleSubmitTransfer)
}

// Close releases every remaining open handle and device reference. Call it
// once the endpoint has stopped serving.
func (d *Dispatcher) Close() {
	for _, rec := range d.table.Records() {
		if rec.OpenCount > 0 && rec.Handle != nil {
			d.lib.Close(rec.Handle)
		}
		d.lib.Unref(rec.Native)
	}
}

func (d *Dispatcher) getOpenedRecord(id uint32) (*Record, error) {
	rec, err := d.table.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.OpenCount == 0 {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorNoDevice)
	}
	return rec, nil
}

func (d *Dispatcher) handleGetCapabilities(ctx context.Context, args []byte) ([]byte, error) {
	c := usbproxy.Capabilities{
		HasHIDAccess:               d.lib.HasHIDAccess(),
		SupportsDetachKernelDriver: d.lib.SupportsDetachKernelDriver(),
	}
	return usbproxy.EncodeCapabilitiesResult(c), nil
}

func (d *Dispatcher) handleDevicesList(ctx context.Context, args []byte) ([]byte, error) {
	natives, err := d.lib.DeviceList()
	if err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorIO)
	}
	out := make(usbproxy.DeviceList, 0, len(natives))
	for _, n := range natives {
		rec, isNew := d.table.Observe(n)
		if !isNew {
			d.lib.Unref(n)
		}
		out = append(out, usbproxy.Device{
			ID:            rec.ID,
			BusNumber:     d.lib.BusNumber(rec.Native),
			PortNumber:    d.lib.PortNumber(rec.Native),
			DeviceAddress: d.lib.DeviceAddress(rec.Native),
		})
	}
	if d.metrics != nil {
		d.metrics.DevicesTracked.Set(float64(len(d.table.Records())))
	}
	return usbproxy.EncodeDeviceListResult(out), nil
}

func (d *Dispatcher) handleDeviceDescriptor(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeDeviceIDArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.table.Get(a.DeviceID)
	if err != nil {
		return nil, err
	}
	desc, err := d.lib.GetDeviceDescriptor(rec.Native)
	if err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorIO)
	}
	return usbproxy.EncodeDescriptorResult(desc), nil
}

// handleActiveConfigDescriptor and handleConfigDescriptor are not gated on
// open_count: fetching a config descriptor brackets its own transient open
// in the native library, independent of the dispatcher's refcount.
func (d *Dispatcher) handleActiveConfigDescriptor(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeDeviceIDArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.table.Get(a.DeviceID)
	if err != nil {
		return nil, err
	}
	blob, err := d.lib.GetActiveConfigDescriptor(rec.Native)
	if err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorNotFound)
	}
	return usbproxy.EncodeBytesResult(blob), nil
}

func (d *Dispatcher) handleConfigDescriptor(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeConfigDescriptorArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.table.Get(a.DeviceID)
	if err != nil {
		return nil, err
	}
	blob, err := d.lib.GetConfigDescriptor(rec.Native, a.Index)
	if err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorNotFound)
	}
	return usbproxy.EncodeBytesResult(blob), nil
}

func (d *Dispatcher) handleGetConfiguration(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeDeviceIDArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.getOpenedRecord(a.DeviceID)
	if err != nil {
		return nil, err
	}
	v, err := d.lib.GetConfiguration(rec.Handle)
	if err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorIO)
	}
	return usbproxy.EncodeUint8Result(v), nil
}

func (d *Dispatcher) handleSetConfiguration(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeSetConfigurationArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.getOpenedRecord(a.DeviceID)
	if err != nil {
		return nil, err
	}
	if err := d.lib.SetConfiguration(rec.Handle, a.Value); err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorIO)
	}
	return usbproxy.EncodeEmptyResult(), nil
}

func (d *Dispatcher) handleClaimInterface(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeDeviceIfaceArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.getOpenedRecord(a.DeviceID)
	if err != nil {
		return nil, err
	}
	if err := d.lib.ClaimInterface(rec.Handle, a.Iface); err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorAccess)
	}
	return usbproxy.EncodeEmptyResult(), nil
}

func (d *Dispatcher) handleReleaseInterface(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeDeviceIfaceArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.getOpenedRecord(a.DeviceID)
	if err != nil {
		return nil, err
	}
	if err := d.lib.ReleaseInterface(rec.Handle, a.Iface); err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorIO)
	}
	return usbproxy.EncodeEmptyResult(), nil
}

func (d *Dispatcher) handleSetInterfaceAltSetting(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeSetInterfaceAltSettingArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.getOpenedRecord(a.DeviceID)
	if err != nil {
		return nil, err
	}
	if err := d.lib.SetInterfaceAltSetting(rec.Handle, a.Iface, a.Alt); err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorIO)
	}
	return usbproxy.EncodeEmptyResult(), nil
}

func (d *Dispatcher) handleClearHalt(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeClearHaltArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.getOpenedRecord(a.DeviceID)
	if err != nil {
		return nil, err
	}
	if err := d.lib.ClearHalt(rec.Handle, a.Endpoint); err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorIO)
	}
	return usbproxy.EncodeEmptyResult(), nil
}

func (d *Dispatcher) handleResetDevice(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeDeviceIDArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.getOpenedRecord(a.DeviceID)
	if err != nil {
		return nil, err
	}
	if err := d.lib.ResetDevice(rec.Handle); err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorIO)
	}
	return usbproxy.EncodeEmptyResult(), nil
}

func (d *Dispatcher) handleKernelDriverActive(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeDeviceIfaceArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.getOpenedRecord(a.DeviceID)
	if err != nil {
		return nil, err
	}
	active, err := d.lib.KernelDriverActive(rec.Handle, a.Iface)
	if err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorIO)
	}
	return usbproxy.EncodeBoolResult(active), nil
}

func (d *Dispatcher) handleDetachKernelDriver(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeDeviceIfaceArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.getOpenedRecord(a.DeviceID)
	if err != nil {
		return nil, err
	}
	if err := d.lib.DetachKernelDriver(rec.Handle, a.Iface); err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorNotSupported)
	}
	return usbproxy.EncodeEmptyResult(), nil
}

func (d *Dispatcher) handleAttachKernelDriver(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeDeviceIfaceArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.getOpenedRecord(a.DeviceID)
	if err != nil {
		return nil, err
	}
	if err := d.lib.AttachKernelDriver(rec.Handle, a.Iface); err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorNotSupported)
	}
	return usbproxy.EncodeEmptyResult(), nil
}

func (d *Dispatcher) handleOpenDevice(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeDeviceIDArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.table.Get(a.DeviceID)
	if err != nil {
		return nil, err
	}

	var openErr error
	opened := false
	d.table.WithLock(func() {
		if rec.OpenCount == 0 {
			var handle usbbackend.NativeHandle
			handle, openErr = d.lib.Open(rec.Native)
			if openErr != nil {
				return
			}
			rec.Handle = handle
			opened = true
		}
		rec.OpenCount++
	})
	if openErr != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorAccess)
	}
	if opened && d.metrics != nil {
		d.metrics.DevicesOpen.Inc()
	}
	return usbproxy.EncodeEmptyResult(), nil
}

func (d *Dispatcher) handleCloseDevice(ctx context.Context, args []byte) ([]byte, error) {
	a, err := usbproxy.DecodeDeviceIDArgs(args)
	if err != nil {
		return nil, err
	}
	rec, err := d.table.Get(a.DeviceID)
	if err != nil {
		return nil, err
	}
	closed := false
	d.table.WithLock(func() {
		if rec.OpenCount == 0 {
			return
		}
		rec.OpenCount--
		if rec.OpenCount == 0 {
			d.lib.Close(rec.Handle)
			rec.Handle = nil
			closed = true
		}
	})
	if closed && d.metrics != nil {
		d.metrics.DevicesOpen.Dec()
	}
	return usbproxy.EncodeEmptyResult(), nil
}

func (d *Dispatcher) handleSubmitTransfer(ctx context.Context, args []byte) ([]byte, error) {
	req, err := usbproxy.DecodeTransferRequestArgs(args)
	if err != nil {
		return nil, err
	}
	if req.Type != usbproxy.TransferControl && req.Type != usbproxy.TransferBulk && req.Type != usbproxy.TransferInterrupt {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorNotSupported)
	}
	if !req.ValidateBufferLen() {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorInvalidParam)
	}

	rec, err := d.getOpenedRecord(req.DeviceID)
	if err != nil {
		return nil, err
	}

	completion := make(chan usbbackend.TransferCompletion, 1)
	nativeTransfer := usbbackend.Transfer{
		Handle:    rec.Handle,
		Endpoint:  req.Endpoint,
		Type:      req.Type,
		TimeoutMS: req.TimeoutMS,
		Length:    req.Length,
		Buffer:    req.Buffer,
	}
	if err := d.lib.SubmitTransfer(nativeTransfer, func(tc usbbackend.TransferCompletion) {
		select {
		case completion <- tc:
		default:
		}
	}); err != nil {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorIO)
	}

	select {
	case tc := <-completion:
		data := tc.Data
		if req.Type == usbproxy.TransferControl && len(data) >= 8 {
			data = data[8:]
		}
		if d.metrics != nil {
			d.metrics.TransfersTotal.WithLabelValues(transferStatusLabel(tc.Status)).Inc()
		}
		result := usbproxy.TransferResult{
			Status:       tc.Status,
			ActualLength: int32(len(data)),
			Data:         data,
		}
		return usbproxy.EncodeTransferResultResult(result), nil
	case <-ctx.Done():
		return nil, rpcerr.ConnectionClosed()
	}
}

// transferStatusLabel names a TransferStatus for the transfers_total metric.
func transferStatusLabel(s usbproxy.TransferStatus) string {
	switch s {
	case usbproxy.StatusCompleted:
		return "completed"
	case usbproxy.StatusError:
		return "error"
	case usbproxy.StatusTimedOut:
		return "timed_out"
	case usbproxy.StatusCancelled:
		return "cancelled"
	case usbproxy.StatusStall:
		return "stall"
	case usbproxy.StatusNoDevice:
		return "no_device"
	case usbproxy.StatusOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}
