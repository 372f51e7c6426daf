// Package usbbackend defines the contract the server dispatcher uses to
// talk to the native USB library (libusb) holding the physical devices.
// The native library itself is an external collaborator out of scope for
// this module: NativeLibrary is the seam, implemented for production by a
// cgo binding elsewhere and, for tests, by the in-memory fake in this
// package.
package usbbackend

import "github.com/jprendes/libusb-proxy/internal/usbproxy"

// NativeDevice is an opaque, owned reference to a device entry in the
// native library's device list. Implementations compare it by identity
// (==), matching libusb_device* pointer semantics.
type NativeDevice any

// NativeHandle is an opaque open handle to a device, valid only while the
// device's open count is greater than zero.
type NativeHandle any

// Common libusb_error codes, reused verbatim on the wire by rpcerr's
// RemoteDomain encoding.
const (
	ErrorIO           = -1
	ErrorInvalidParam = -2
	ErrorAccess       = -3
	ErrorNoDevice     = -4
	ErrorNotFound     = -5
	ErrorBusy         = -6
	ErrorTimeout      = -7
	ErrorOverflow     = -8
	ErrorPipe         = -9
	ErrorInterrupted  = -10
	ErrorNoMem        = -11
	ErrorNotSupported = -12
	ErrorOther        = -99
)

// Transfer describes a native transfer submission, mirroring the fields
// libusb_fill_control_transfer/libusb_fill_bulk_transfer/
// libusb_fill_interrupt_transfer take.
type Transfer struct {
	Handle    NativeHandle
	Endpoint  uint8
	Type      usbproxy.TransferType
	TimeoutMS uint32
	Length    uint32 // requested length: the read capacity for a device-to-host transfer
	Buffer    []byte // outbound bytes only; empty for device-to-host bulk/interrupt, the 8-byte setup for device-to-host control
}

// TransferCompletion is delivered exactly once to the callback passed to
// SubmitTransfer.
type TransferCompletion struct {
	Status       usbproxy.TransferStatus
	ActualLength int32
	Data         []byte
}

// NativeLibrary is the seam between the server dispatcher and libusb.
// Every method corresponds to one or a small group of libusb_* calls.
type NativeLibrary interface {
	// HasHIDAccess and SupportsDetachKernelDriver feed get_capabilities.
	HasHIDAccess() bool
	SupportsDetachKernelDriver() bool

	// DeviceList mirrors libusb_get_device_list; returned devices are
	// owned by the caller until passed to Unref.
	DeviceList() ([]NativeDevice, error)
	Unref(d NativeDevice)

	BusNumber(d NativeDevice) uint8
	PortNumber(d NativeDevice) uint8
	DeviceAddress(d NativeDevice) uint8

	GetDeviceDescriptor(d NativeDevice) (usbproxy.Descriptor, error)
	// GetActiveConfigDescriptor and GetConfigDescriptor each bracket
	// their own transient libusb_open/libusb_close, independent of the
	// dispatcher's open/close refcount.
	GetActiveConfigDescriptor(d NativeDevice) ([]byte, error)
	GetConfigDescriptor(d NativeDevice, index uint8) ([]byte, error)

	Open(d NativeDevice) (NativeHandle, error)
	Close(h NativeHandle)

	GetConfiguration(h NativeHandle) (uint8, error)
	SetConfiguration(h NativeHandle, value int32) error
	ClaimInterface(h NativeHandle, iface uint8) error
	ReleaseInterface(h NativeHandle, iface uint8) error
	SetInterfaceAltSetting(h NativeHandle, iface, alt uint8) error
	ClearHalt(h NativeHandle, endpoint uint8) error
	ResetDevice(h NativeHandle) error
	KernelDriverActive(h NativeHandle, iface uint8) (bool, error)
	DetachKernelDriver(h NativeHandle, iface uint8) error
	AttachKernelDriver(h NativeHandle, iface uint8) error

	// SubmitTransfer mirrors libusb_submit_transfer. complete is the
	// native transfer callback: it must be called exactly once and must
	// not block, matching libusb's own transfer_cb contract.
	SubmitTransfer(t Transfer, complete func(TransferCompletion)) error
}
