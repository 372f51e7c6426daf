package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jprendes/libusb-proxy/internal/metrics"
	"github.com/jprendes/libusb-proxy/internal/rpcendpoint"
	"github.com/jprendes/libusb-proxy/internal/rpcerr"
	"github.com/jprendes/libusb-proxy/internal/usbbackend"
	"github.com/jprendes/libusb-proxy/internal/usbproxy"
)

func newClient(t *testing.T, lib usbbackend.NativeLibrary) *rpcendpoint.Endpoint {
	t.Helper()
	return newClientWithOpts(t, lib)
}

func newClientWithOpts(t *testing.T, lib usbbackend.NativeLibrary, opts ...Option) *rpcendpoint.Endpoint {
	t.Helper()
	a, b := net.Pipe()
	client := rpcendpoint.New(a, nil, nil)
	srv := rpcendpoint.New(b, nil, nil)
	New(lib, nil, opts...).Register(srv)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = client.Run(ctx) }()
	go func() { _ = srv.Run(ctx) }()
	return client
}

func call(t *testing.T, ep *rpcendpoint.Endpoint, method string, args []byte) ([]byte, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return ep.Call(ctx, method, args)
}

func TestGetCapabilities(t *testing.T) {
	fake := usbbackend.NewFake(true, false)
	client := newClient(t, fake)

	res, err := call(t, client, usbproxy.MethodGetCapabilities, nil)
	require.NoError(t, err)
	c, err := usbproxy.DecodeCapabilitiesResult(res)
	require.NoError(t, err)
	assert.True(t, c.HasHIDAccess)
	assert.False(t, c.SupportsDetachKernelDriver)
}

func TestDevicesListAssignsStableIDsStartingAt42(t *testing.T) {
	fake := usbbackend.NewFake(false, false)
	fake.AddDevice(&usbbackend.FakeDevice{Bus: 1, Port: 1, Address: 5})
	fake.AddDevice(&usbbackend.FakeDevice{Bus: 1, Port: 2, Address: 6})
	client := newClient(t, fake)

	res, err := call(t, client, usbproxy.MethodDevicesList, nil)
	require.NoError(t, err)
	list, err := usbproxy.DecodeDeviceListResult(res)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint32(42), list[0].ID)
	assert.Equal(t, uint32(43), list[1].ID)

	// A second enumeration must report the same ids for the same devices.
	res2, err := call(t, client, usbproxy.MethodDevicesList, nil)
	require.NoError(t, err)
	list2, err := usbproxy.DecodeDeviceListResult(res2)
	require.NoError(t, err)
	assert.Equal(t, list, list2)
}

func TestOperationOnUnknownDeviceFailsNoDevice(t *testing.T) {
	fake := usbbackend.NewFake(false, false)
	client := newClient(t, fake)

	_, err := call(t, client, usbproxy.MethodDeviceDescriptor, usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: 999}))
	require.Error(t, err)
	rerr, ok := err.(*rpcerr.Error)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindRemoteDomain, rerr.Kind)
	assert.Equal(t, usbbackend.ErrorNoDevice, rerr.Code)
}

func TestOperationRequiringOpenFailsBeforeOpen(t *testing.T) {
	fake := usbbackend.NewFake(false, false)
	fake.AddDevice(&usbbackend.FakeDevice{})
	client := newClient(t, fake)

	_, err := call(t, client, usbproxy.MethodDevicesList, nil)
	require.NoError(t, err)

	_, err = call(t, client, usbproxy.MethodGetConfiguration, usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: 42}))
	require.Error(t, err)
	rerr := err.(*rpcerr.Error)
	assert.Equal(t, usbbackend.ErrorNoDevice, rerr.Code)
}

func TestOpenCloseRefcounting(t *testing.T) {
	fake := usbbackend.NewFake(false, false)
	fake.AddDevice(&usbbackend.FakeDevice{Configuration: 1})
	client := newClient(t, fake)

	_, err := call(t, client, usbproxy.MethodDevicesList, nil)
	require.NoError(t, err)

	idArgs := usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: 42})

	_, err = call(t, client, usbproxy.MethodOpenDevice, idArgs)
	require.NoError(t, err)
	_, err = call(t, client, usbproxy.MethodOpenDevice, idArgs)
	require.NoError(t, err)

	res, err := call(t, client, usbproxy.MethodGetConfiguration, idArgs)
	require.NoError(t, err)
	v, err := usbproxy.DecodeUint8Result(res)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v)

	_, err = call(t, client, usbproxy.MethodCloseDevice, idArgs)
	require.NoError(t, err)
	// still open (refcount 1)
	_, err = call(t, client, usbproxy.MethodGetConfiguration, idArgs)
	require.NoError(t, err)

	_, err = call(t, client, usbproxy.MethodCloseDevice, idArgs)
	require.NoError(t, err)
	_, err = call(t, client, usbproxy.MethodGetConfiguration, idArgs)
	require.Error(t, err)
}

func TestSubmitTransferBulkEcho(t *testing.T) {
	fake := usbbackend.NewFake(false, false)
	fake.AddDevice(&usbbackend.FakeDevice{})
	client := newClient(t, fake)

	idArgs := usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: 42})
	_, err := call(t, client, usbproxy.MethodDevicesList, nil)
	require.NoError(t, err)
	_, err = call(t, client, usbproxy.MethodOpenDevice, idArgs)
	require.NoError(t, err)

	req := usbproxy.TransferRequest{
		DeviceID: 42, TimeoutMS: 1000, Length: 4,
		Endpoint: 0x02, Type: usbproxy.TransferBulk, Buffer: []byte{1, 2, 3, 4},
	}
	res, err := call(t, client, usbproxy.MethodSubmitTransfer, usbproxy.EncodeTransferRequestArgs(req))
	require.NoError(t, err)
	result, err := usbproxy.DecodeTransferResultResult(res)
	require.NoError(t, err)
	assert.Equal(t, usbproxy.StatusCompleted, result.Status)
	assert.Equal(t, []byte{1, 2, 3, 4}, result.Data)
	assert.EqualValues(t, 4, result.ActualLength)
}

func TestSubmitTransferControlStripsSetupPrefix(t *testing.T) {
	fake := usbbackend.NewFake(false, false)
	dev := &usbbackend.FakeDevice{}
	dev.Echo = func(tr usbbackend.Transfer) usbbackend.TransferCompletion {
		// The native buffer of a control transfer starts with the setup packet.
		data := append(append([]byte{}, tr.Buffer...), 0xAA, 0xBB)
		return usbbackend.TransferCompletion{Status: usbproxy.StatusCompleted, ActualLength: int32(len(data)), Data: data}
	}
	fake.AddDevice(dev)
	client := newClient(t, fake)

	idArgs := usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: 42})
	_, err := call(t, client, usbproxy.MethodDevicesList, nil)
	require.NoError(t, err)
	_, err = call(t, client, usbproxy.MethodOpenDevice, idArgs)
	require.NoError(t, err)

	req := usbproxy.TransferRequest{
		DeviceID: 42, Endpoint: 0x80, Type: usbproxy.TransferControl, Length: 2, Buffer: make([]byte, 8),
	}
	res, err := call(t, client, usbproxy.MethodSubmitTransfer, usbproxy.EncodeTransferRequestArgs(req))
	require.NoError(t, err)
	result, err := usbproxy.DecodeTransferResultResult(res)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, result.Data)
}

func TestSubmitTransferRejectsIsochronous(t *testing.T) {
	fake := usbbackend.NewFake(false, false)
	fake.AddDevice(&usbbackend.FakeDevice{})
	client := newClient(t, fake)

	idArgs := usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: 42})
	_, err := call(t, client, usbproxy.MethodDevicesList, nil)
	require.NoError(t, err)
	_, err = call(t, client, usbproxy.MethodOpenDevice, idArgs)
	require.NoError(t, err)

	req := usbproxy.TransferRequest{DeviceID: 42, Type: usbproxy.TransferType(99), Buffer: nil}
	_, err = call(t, client, usbproxy.MethodSubmitTransfer, usbproxy.EncodeTransferRequestArgs(req))
	require.Error(t, err)
	rerr := err.(*rpcerr.Error)
	assert.Equal(t, usbbackend.ErrorNotSupported, rerr.Code)
}

func TestSubmitTransferInvalidBufferLenReturnsRemoteDomainError(t *testing.T) {
	fake := usbbackend.NewFake(false, false)
	fake.AddDevice(&usbbackend.FakeDevice{})
	client := newClient(t, fake)

	idArgs := usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: 42})
	_, err := call(t, client, usbproxy.MethodDevicesList, nil)
	require.NoError(t, err)
	_, err = call(t, client, usbproxy.MethodOpenDevice, idArgs)
	require.NoError(t, err)

	// Length disagrees with the buffer actually attached: an argument this
	// side rejects, but only after it reached the wire, so it must be
	// classifiable by the caller rather than a bare local error string.
	req := usbproxy.TransferRequest{
		DeviceID: 42, Endpoint: 0x02, Type: usbproxy.TransferBulk,
		Length: 4, Buffer: []byte{1, 2},
	}
	_, err = call(t, client, usbproxy.MethodSubmitTransfer, usbproxy.EncodeTransferRequestArgs(req))
	require.Error(t, err)
	rerr, ok := err.(*rpcerr.Error)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindRemoteDomain, rerr.Kind)
	assert.Equal(t, usbbackend.ErrorInvalidParam, rerr.Code)
}

func TestMetricsTrackDevicesOpenCountAndTransfers(t *testing.T) {
	fake := usbbackend.NewFake(false, false)
	fake.AddDevice(&usbbackend.FakeDevice{})
	reg := metrics.New()
	client := newClientWithOpts(t, fake, WithMetrics(reg))

	idArgs := usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: 42})
	_, err := call(t, client, usbproxy.MethodDevicesList, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.DevicesTracked))

	_, err = call(t, client, usbproxy.MethodOpenDevice, idArgs)
	require.NoError(t, err)
	_, err = call(t, client, usbproxy.MethodOpenDevice, idArgs)
	require.NoError(t, err)
	// second open only bumps the refcount, not the open-devices gauge
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.DevicesOpen))

	req := usbproxy.TransferRequest{
		DeviceID: 42, Endpoint: 0x02, Type: usbproxy.TransferBulk,
		Length: 2, Buffer: []byte{1, 2},
	}
	_, err = call(t, client, usbproxy.MethodSubmitTransfer, usbproxy.EncodeTransferRequestArgs(req))
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.TransfersTotal.WithLabelValues("completed")))

	_, err = call(t, client, usbproxy.MethodCloseDevice, idArgs)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.DevicesOpen))
	_, err = call(t, client, usbproxy.MethodCloseDevice, idArgs)
	require.NoError(t, err)
	assert.Equal(t, float64(0), testutil.ToFloat64(reg.DevicesOpen))
}

func TestClaimInterfaceUsesNativeLibraryMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := usbbackend.NewMockNativeLibrary(ctrl)

	dev := &usbbackend.FakeDevice{}
	handle := &struct{}{}
	mock.EXPECT().DeviceList().Return([]usbbackend.NativeDevice{dev}, nil)
	mock.EXPECT().BusNumber(dev).Return(uint8(1))
	mock.EXPECT().PortNumber(dev).Return(uint8(1))
	mock.EXPECT().DeviceAddress(dev).Return(uint8(1))
	mock.EXPECT().Open(dev).Return(usbbackend.NativeHandle(handle), nil)
	mock.EXPECT().ClaimInterface(usbbackend.NativeHandle(handle), uint8(3)).Return(nil)

	client := newClient(t, mock)
	idArgs := usbproxy.EncodeDeviceIDArgs(usbproxy.DeviceIDArgs{DeviceID: 42})
	_, err := call(t, client, usbproxy.MethodDevicesList, nil)
	require.NoError(t, err)
	_, err = call(t, client, usbproxy.MethodOpenDevice, idArgs)
	require.NoError(t, err)
	_, err = call(t, client, usbproxy.MethodClaimInterface, usbproxy.EncodeDeviceIfaceArgs(usbproxy.DeviceIfaceArgs{DeviceID: 42, Iface: 3}))
	require.NoError(t, err)
}
