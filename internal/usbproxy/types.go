// Package usbproxy defines the USB domain model that crosses the wire: the
// device summary, device descriptor, capability flags, and transfer
// request/result shapes from the specification's data model, together with
// their field-for-field rpcwire encoders and decoders. Nothing in this
// package touches a socket or a native USB library; it only knows how to
// turn these structs into bytes and back.
package usbproxy

import "github.com/jprendes/libusb-proxy/internal/rpcwire"

// Device is the immutable summary produced by enumeration.
type Device struct {
	ID            uint32
	BusNumber     uint8
	PortNumber    uint8
	DeviceAddress uint8
}

func (d Device) Encode(w *rpcwire.Writer) {
	w.WriteUint32(d.ID)
	w.WriteUint8(d.BusNumber)
	w.WriteUint8(d.PortNumber)
	w.WriteUint8(d.DeviceAddress)
}

func DecodeDevice(r *rpcwire.Reader) (Device, error) {
	var d Device
	var err error
	if d.ID, err = r.ReadUint32(); err != nil {
		return Device{}, err
	}
	if d.BusNumber, err = r.ReadUint8(); err != nil {
		return Device{}, err
	}
	if d.PortNumber, err = r.ReadUint8(); err != nil {
		return Device{}, err
	}
	if d.DeviceAddress, err = r.ReadUint8(); err != nil {
		return Device{}, err
	}
	return d, nil
}

// DeviceList is the sequence<device summary> result of devices_list.
type DeviceList []Device

func (l DeviceList) Encode(w *rpcwire.Writer) {
	w.WriteUint32(uint32(len(l)))
	for _, d := range l {
		d.Encode(w)
	}
}

func DecodeDeviceList(r *rpcwire.Reader) (DeviceList, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	out := make(DeviceList, 0, n)
	for i := uint32(0); i < n; i++ {
		d, err := DecodeDevice(r)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Descriptor is a flat, bit-exact mirror of the USB 2.0 standard device
// descriptor (14 fields).
type Descriptor struct {
	BLength            uint8
	BDescriptorType    uint8
	BcdUSB             uint16
	BDeviceClass       uint8
	BDeviceSubClass    uint8
	BDeviceProtocol    uint8
	BMaxPacketSize0    uint8
	IDVendor           uint16
	IDProduct          uint16
	BcdDevice          uint16
	IManufacturer      uint8
	IProduct           uint8
	ISerialNumber      uint8
	BNumConfigurations uint8
}

func (d Descriptor) Encode(w *rpcwire.Writer) {
	w.WriteUint8(d.BLength)
	w.WriteUint8(d.BDescriptorType)
	w.WriteUint16(d.BcdUSB)
	w.WriteUint8(d.BDeviceClass)
	w.WriteUint8(d.BDeviceSubClass)
	w.WriteUint8(d.BDeviceProtocol)
	w.WriteUint8(d.BMaxPacketSize0)
	w.WriteUint16(d.IDVendor)
	w.WriteUint16(d.IDProduct)
	w.WriteUint16(d.BcdDevice)
	w.WriteUint8(d.IManufacturer)
	w.WriteUint8(d.IProduct)
	w.WriteUint8(d.ISerialNumber)
	w.WriteUint8(d.BNumConfigurations)
}

func DecodeDescriptor(r *rpcwire.Reader) (Descriptor, error) {
	var d Descriptor
	var err error
	if d.BLength, err = r.ReadUint8(); err != nil {
		return Descriptor{}, err
	}
	if d.BDescriptorType, err = r.ReadUint8(); err != nil {
		return Descriptor{}, err
	}
	if d.BcdUSB, err = r.ReadUint16(); err != nil {
		return Descriptor{}, err
	}
	if d.BDeviceClass, err = r.ReadUint8(); err != nil {
		return Descriptor{}, err
	}
	if d.BDeviceSubClass, err = r.ReadUint8(); err != nil {
		return Descriptor{}, err
	}
	if d.BDeviceProtocol, err = r.ReadUint8(); err != nil {
		return Descriptor{}, err
	}
	if d.BMaxPacketSize0, err = r.ReadUint8(); err != nil {
		return Descriptor{}, err
	}
	if d.IDVendor, err = r.ReadUint16(); err != nil {
		return Descriptor{}, err
	}
	if d.IDProduct, err = r.ReadUint16(); err != nil {
		return Descriptor{}, err
	}
	if d.BcdDevice, err = r.ReadUint16(); err != nil {
		return Descriptor{}, err
	}
	if d.IManufacturer, err = r.ReadUint8(); err != nil {
		return Descriptor{}, err
	}
	if d.IProduct, err = r.ReadUint8(); err != nil {
		return Descriptor{}, err
	}
	if d.ISerialNumber, err = r.ReadUint8(); err != nil {
		return Descriptor{}, err
	}
	if d.BNumConfigurations, err = r.ReadUint8(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Capabilities advertises what the server-side native library can do.
type Capabilities struct {
	HasHIDAccess               bool
	SupportsDetachKernelDriver bool
}

func (c Capabilities) Encode(w *rpcwire.Writer) {
	w.WriteBool(c.HasHIDAccess)
	w.WriteBool(c.SupportsDetachKernelDriver)
}

func DecodeCapabilities(r *rpcwire.Reader) (Capabilities, error) {
	var c Capabilities
	var err error
	if c.HasHIDAccess, err = r.ReadBool(); err != nil {
		return Capabilities{}, err
	}
	if c.SupportsDetachKernelDriver, err = r.ReadBool(); err != nil {
		return Capabilities{}, err
	}
	return c, nil
}

// TransferType enumerates the transfer types the proxy accepts.
// Isochronous is deliberately absent: see Non-goals.
type TransferType uint8

const (
	TransferControl TransferType = iota
	TransferBulk
	TransferInterrupt
)

// EndpointDirectionMask is bit 7 of the endpoint address; when set the
// transfer is device-to-host.
const EndpointDirectionMask uint8 = 0x80

func (r TransferRequest) DeviceToHost() bool {
	return r.Endpoint&EndpointDirectionMask != 0
}

// TransferRequest is submit_transfer's argument payload.
type TransferRequest struct {
	DeviceID  uint32
	TimeoutMS uint32
	Length    uint32
	Endpoint  uint8
	Type      TransferType
	Buffer    []byte
}

func (t TransferRequest) Encode(w *rpcwire.Writer) {
	w.WriteUint32(t.DeviceID)
	w.WriteUint32(t.TimeoutMS)
	w.WriteUint32(t.Length)
	w.WriteUint8(t.Endpoint)
	w.WriteUint8(uint8(t.Type))
	w.WriteBytes(t.Buffer)
}

func DecodeTransferRequest(r *rpcwire.Reader) (TransferRequest, error) {
	var t TransferRequest
	var err error
	if t.DeviceID, err = r.ReadUint32(); err != nil {
		return TransferRequest{}, err
	}
	if t.TimeoutMS, err = r.ReadUint32(); err != nil {
		return TransferRequest{}, err
	}
	if t.Length, err = r.ReadUint32(); err != nil {
		return TransferRequest{}, err
	}
	if t.Endpoint, err = r.ReadUint8(); err != nil {
		return TransferRequest{}, err
	}
	typ, err := r.ReadUint8()
	if err != nil {
		return TransferRequest{}, err
	}
	t.Type = TransferType(typ)
	if t.Buffer, err = r.ReadBytes(); err != nil {
		return TransferRequest{}, err
	}
	return t, nil
}

// ValidateBufferLen enforces the §3 buffer-length rules for a request,
// prior to it ever reaching the wire or the native library.
func (t TransferRequest) ValidateBufferLen() bool {
	if t.DeviceToHost() {
		if t.Type == TransferControl {
			return len(t.Buffer) == 8
		}
		return len(t.Buffer) == 0
	}
	return uint32(len(t.Buffer)) == t.Length
}

// TransferStatus mirrors libusb's transfer-status enumeration values.
type TransferStatus int32

const (
	StatusCompleted TransferStatus = 0
	StatusError     TransferStatus = 1
	StatusTimedOut  TransferStatus = 2
	StatusCancelled TransferStatus = 3
	StatusStall     TransferStatus = 4
	StatusNoDevice  TransferStatus = 5
	StatusOverflow  TransferStatus = 6
)

// TransferResult is submit_transfer's result payload.
type TransferResult struct {
	Status       TransferStatus
	ActualLength int32
	Data         []byte
}

func (t TransferResult) Encode(w *rpcwire.Writer) {
	w.WriteInt32(int32(t.Status))
	w.WriteInt32(t.ActualLength)
	w.WriteBytes(t.Data)
}

func DecodeTransferResult(r *rpcwire.Reader) (TransferResult, error) {
	var t TransferResult
	var err error
	status, err := r.ReadInt32()
	if err != nil {
		return TransferResult{}, err
	}
	t.Status = TransferStatus(status)
	if t.ActualLength, err = r.ReadInt32(); err != nil {
		return TransferResult{}, err
	}
	if t.Data, err = r.ReadBytes(); err != nil {
		return TransferResult{}, err
	}
	return t, nil
}
