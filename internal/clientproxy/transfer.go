package clientproxy

import (
	"context"

	"github.com/jprendes/libusb-proxy/internal/rpcerr"
	"github.com/jprendes/libusb-proxy/internal/usbbackend"
	"github.com/jprendes/libusb-proxy/internal/usbproxy"
)

// setupLen is the fixed size of a USB control transfer's setup packet.
const setupLen = 8

// Transfer is one in-flight (or completed) transfer submitted through a
// Backend. Callers fill in the request fields and pass a pointer to
// SubmitTransfer; the same pointer is handed back to CompletionSink once a
// result (or failure) is known.
type Transfer struct {
	DeviceID  uint32
	Endpoint  uint8
	Type      usbproxy.TransferType
	TimeoutMS uint32

	// Setup holds the 8-byte control setup packet; only meaningful when
	// Type is TransferControl.
	Setup [setupLen]byte

	// Data is the host-to-device payload on submission; on completion it
	// holds the device-to-host payload, truncated to ActualLength.
	Data []byte

	// Capacity bounds how many data-stage bytes a device-to-host transfer
	// may return; it is ignored for host-to-device transfers, where the
	// length of Data itself is authoritative.
	Capacity int

	// User is opaque, caller-owned context threaded through to
	// CompletionSink unchanged.
	User any

	Status       int32
	ActualLength int
}

// DeviceToHost reports the direction implied by Endpoint.
func (t *Transfer) DeviceToHost() bool {
	return t.Endpoint&usbproxy.EndpointDirectionMask != 0
}

// CompletionSink receives every transfer this Backend submits once it
// completes or fails. CancelTransfer reports nothing to it.
type CompletionSink interface {
	TransferCompleted(t *Transfer)
}

// SubmitTransfer validates t, issues it to the remote host, and returns
// immediately: completion is reported asynchronously to the Backend's
// CompletionSink, mirroring libusb's own submit-then-callback shape. A
// non-nil return means the transfer was never sent to the host at all
// (programming error caught before any RPC call).
func (b *Backend) SubmitTransfer(ctx context.Context, t *Transfer) error {
	switch t.Type {
	case usbproxy.TransferControl, usbproxy.TransferBulk, usbproxy.TransferInterrupt:
	default:
		return rpcerr.LocalDomain("unsupported transfer type")
	}

	req := usbproxy.TransferRequest{
		DeviceID:  t.DeviceID,
		TimeoutMS: t.TimeoutMS,
		Endpoint:  t.Endpoint,
		Type:      t.Type,
	}

	if t.DeviceToHost() {
		req.Length = uint32(t.Capacity)
		if t.Type == usbproxy.TransferControl {
			req.Buffer = t.Setup[:]
		}
	} else {
		if t.Type == usbproxy.TransferControl {
			req.Buffer = append(append([]byte{}, t.Setup[:]...), t.Data...)
		} else {
			req.Buffer = t.Data
		}
		req.Length = uint32(len(req.Buffer))
	}
	if !req.ValidateBufferLen() {
		return rpcerr.LocalDomain("transfer buffer length does not match direction/type")
	}

	go b.runTransfer(ctx, req, t)
	return nil
}

func (b *Backend) runTransfer(ctx context.Context, req usbproxy.TransferRequest, t *Transfer) {
	res, err := b.ep.Call(ctx, usbproxy.MethodSubmitTransfer, usbproxy.EncodeTransferRequestArgs(req))
	if err != nil {
		t.Status = mapError(err)
		t.ActualLength = 0
		t.Data = nil
		b.report(t)
		return
	}

	result, err := usbproxy.DecodeTransferResultResult(res)
	if err != nil {
		t.Status = usbbackend.ErrorIO
		t.ActualLength = 0
		t.Data = nil
		b.report(t)
		return
	}

	if t.DeviceToHost() && int(result.ActualLength) > t.Capacity {
		// The host returned more data than the caller's buffer can hold;
		// report Overflow instead of handing back a Data slice the caller
		// never sized for.
		t.Status = usbbackend.ErrorOverflow
		t.ActualLength = t.Capacity
		t.Data = result.Data[:t.Capacity]
		b.report(t)
		return
	}

	t.Status = int32(result.Status)
	t.ActualLength = int(result.ActualLength)
	t.Data = result.Data
	b.report(t)
}

func (b *Backend) report(t *Transfer) {
	if b.sink != nil {
		b.sink.TransferCompleted(t)
	}
}

// CancelTransfer always succeeds: per-transfer cancellation is not carried
// over the wire, only the per-call back-pressure a blocking RPC already
// gives a caller that stops waiting on it.
func (b *Backend) CancelTransfer(ctx context.Context, t *Transfer) error {
	return nil
}

// mapError reduces an RPC-level error to a libusb error code, for callers
// that need a single integer rather than an *rpcerr.Error to report up
// through a libusb-shaped API.
func mapError(err error) int32 {
	if err == nil {
		return 0
	}
	rerr, ok := err.(*rpcerr.Error)
	if !ok {
		return usbbackend.ErrorOther
	}
	switch rerr.Kind {
	case rpcerr.KindRemoteDomain:
		return int32(rerr.Code)
	case rpcerr.KindMethodNotFound:
		return usbbackend.ErrorNotFound
	case rpcerr.KindConnectionClosed:
		return usbbackend.ErrorNoDevice
	case rpcerr.KindTransport:
		return usbbackend.ErrorIO
	default:
		return usbbackend.ErrorOther
	}
}
