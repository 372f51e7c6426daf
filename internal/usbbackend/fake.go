package usbbackend

import (
	"fmt"
	"sync"

	"github.com/jprendes/libusb-proxy/internal/usbproxy"
)

// FakeDevice is one device tracked by Fake.
type FakeDevice struct {
	Bus, Port, Address uint8
	Descriptor         usbproxy.Descriptor
	ActiveConfig       []byte
	Configs            [][]byte
	Configuration      uint8
	KernelDriver       bool

	// Echo, when set, is used to answer SubmitTransfer: it receives the
	// outbound buffer and returns the data stage to report back.
	Echo func(t Transfer) TransferCompletion
}

type fakeHandle struct{ dev *FakeDevice }

// Fake is an in-memory NativeLibrary used by dispatcher and client adapter
// tests. It never touches real hardware.
type Fake struct {
	mu      sync.Mutex
	devices []*FakeDevice
	hid     bool
	detach  bool
}

// NewFake returns an empty Fake; add devices with AddDevice before use.
func NewFake(hasHIDAccess, supportsDetachKernelDriver bool) *Fake {
	return &Fake{hid: hasHIDAccess, detach: supportsDetachKernelDriver}
}

// AddDevice registers dev and returns the NativeDevice handle enumeration
// will hand back.
func (f *Fake) AddDevice(dev *FakeDevice) NativeDevice {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, dev)
	return dev
}

func (f *Fake) HasHIDAccess() bool               { return f.hid }
func (f *Fake) SupportsDetachKernelDriver() bool { return f.detach }

func (f *Fake) DeviceList() ([]NativeDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]NativeDevice, len(f.devices))
	for i, d := range f.devices {
		out[i] = d
	}
	return out, nil
}

func (f *Fake) Unref(d NativeDevice) {}

func (f *Fake) BusNumber(d NativeDevice) uint8     { return d.(*FakeDevice).Bus }
func (f *Fake) PortNumber(d NativeDevice) uint8    { return d.(*FakeDevice).Port }
func (f *Fake) DeviceAddress(d NativeDevice) uint8 { return d.(*FakeDevice).Address }

func (f *Fake) GetDeviceDescriptor(d NativeDevice) (usbproxy.Descriptor, error) {
	return d.(*FakeDevice).Descriptor, nil
}

func (f *Fake) GetActiveConfigDescriptor(d NativeDevice) ([]byte, error) {
	return d.(*FakeDevice).ActiveConfig, nil
}

func (f *Fake) GetConfigDescriptor(d NativeDevice, index uint8) ([]byte, error) {
	fd := d.(*FakeDevice)
	if int(index) >= len(fd.Configs) {
		return nil, fmt.Errorf("no such config index")
	}
	return fd.Configs[index], nil
}

func (f *Fake) Open(d NativeDevice) (NativeHandle, error) {
	return &fakeHandle{dev: d.(*FakeDevice)}, nil
}

func (f *Fake) Close(h NativeHandle) {}

func (f *Fake) GetConfiguration(h NativeHandle) (uint8, error) {
	return h.(*fakeHandle).dev.Configuration, nil
}

func (f *Fake) SetConfiguration(h NativeHandle, value int32) error {
	h.(*fakeHandle).dev.Configuration = uint8(value)
	return nil
}

func (f *Fake) ClaimInterface(h NativeHandle, iface uint8) error   { return nil }
func (f *Fake) ReleaseInterface(h NativeHandle, iface uint8) error { return nil }
func (f *Fake) SetInterfaceAltSetting(h NativeHandle, iface, alt uint8) error {
	return nil
}
func (f *Fake) ClearHalt(h NativeHandle, endpoint uint8) error { return nil }
func (f *Fake) ResetDevice(h NativeHandle) error                { return nil }

func (f *Fake) KernelDriverActive(h NativeHandle, iface uint8) (bool, error) {
	return h.(*fakeHandle).dev.KernelDriver, nil
}
func (f *Fake) DetachKernelDriver(h NativeHandle, iface uint8) error {
	h.(*fakeHandle).dev.KernelDriver = false
	return nil
}
func (f *Fake) AttachKernelDriver(h NativeHandle, iface uint8) error {
	h.(*fakeHandle).dev.KernelDriver = true
	return nil
}

func (f *Fake) SubmitTransfer(t Transfer, complete func(TransferCompletion)) error {
	dev := t.Handle.(*fakeHandle).dev
	go func() {
		if dev.Echo != nil {
			complete(dev.Echo(t))
			return
		}
		if len(t.Buffer) > 0 {
			// non-empty buffer (host-to-device data, or the setup packet of a
			// device-to-host control transfer): loop the outbound bytes back
			// as the report.
			complete(TransferCompletion{Status: usbproxy.StatusCompleted, ActualLength: int32(len(t.Buffer)), Data: t.Buffer})
			return
		}
		// empty buffer (device-to-host bulk/interrupt) with no canned Echo:
		// report Length zero bytes.
		data := make([]byte, t.Length)
		complete(TransferCompletion{Status: usbproxy.StatusCompleted, ActualLength: int32(len(data)), Data: data})
	}()
	return nil
}
