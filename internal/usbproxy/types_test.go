package usbproxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jprendes/libusb-proxy/internal/rpcwire"
)

func TestDeviceRoundTrip(t *testing.T) {
	d := Device{ID: 42, BusNumber: 1, PortNumber: 2, DeviceAddress: 3}
	w := rpcwire.NewWriter()
	d.Encode(w)
	got, err := DecodeDevice(rpcwire.NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDeviceListRoundTrip(t *testing.T) {
	l := DeviceList{{ID: 42}, {ID: 43}, {ID: 44}}
	got, err := DecodeDeviceListResult(EncodeDeviceListResult(l))
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

func TestDescriptorRoundTrip(t *testing.T) {
	d := Descriptor{
		BLength: 18, BDescriptorType: 1, BcdUSB: 0x0200,
		BDeviceClass: 0, BDeviceSubClass: 0, BDeviceProtocol: 0,
		BMaxPacketSize0: 64, IDVendor: 0x1d6b, IDProduct: 0x0002,
		BcdDevice: 0x0100, IManufacturer: 1, IProduct: 2, ISerialNumber: 0,
		BNumConfigurations: 1,
	}
	got, err := DecodeDescriptorResult(EncodeDescriptorResult(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestTransferRequestDirectionAndValidation(t *testing.T) {
	hostToDevice := TransferRequest{Length: 4, Buffer: []byte{1, 2, 3, 4}, Type: TransferBulk}
	assert.False(t, hostToDevice.DeviceToHost())
	assert.True(t, hostToDevice.ValidateBufferLen())

	deviceToDeviceControl := TransferRequest{Endpoint: 0x80, Type: TransferControl, Buffer: make([]byte, 8)}
	assert.True(t, deviceToDeviceControl.DeviceToHost())
	assert.True(t, deviceToDeviceControl.ValidateBufferLen())

	deviceToHostBulkBadLen := TransferRequest{Endpoint: 0x81, Type: TransferBulk, Buffer: []byte{1}}
	assert.False(t, deviceToHostBulkBadLen.ValidateBufferLen())
}

func TestTransferRequestRoundTrip(t *testing.T) {
	req := TransferRequest{
		DeviceID: 7, TimeoutMS: 1000, Length: 3,
		Endpoint: 0x02, Type: TransferBulk, Buffer: []byte{9, 8, 7},
	}
	got, err := DecodeTransferRequestArgs(EncodeTransferRequestArgs(req))
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestTransferResultRoundTrip(t *testing.T) {
	res := TransferResult{Status: StatusCompleted, ActualLength: 2, Data: []byte{1, 2}}
	got, err := DecodeTransferResultResult(EncodeTransferResultResult(res))
	require.NoError(t, err)
	assert.Equal(t, res, got)
}

func TestCapabilitiesRoundTrip(t *testing.T) {
	c := Capabilities{HasHIDAccess: true, SupportsDetachKernelDriver: false}
	got, err := DecodeCapabilitiesResult(EncodeCapabilitiesResult(c))
	require.NoError(t, err)
	assert.Equal(t, c, got)
}
