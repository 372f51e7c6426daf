package rpcendpoint

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jprendes/libusb-proxy/internal/rpcerr"
)

func newPair(t *testing.T) (*Endpoint, *Endpoint) {
	t.Helper()
	a, b := net.Pipe()
	ea := New(a, nil, nil)
	eb := New(b, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = ea.Run(ctx) }()
	go func() { _ = eb.Run(ctx) }()
	return ea, eb
}

func TestCallRoundTrip(t *testing.T) {
	ea, eb := newPair(t)
	eb.Register("echo", func(ctx context.Context, args []byte) ([]byte, error) {
		out := make([]byte, len(args))
		copy(out, args)
		return out, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := ea.Call(ctx, "echo", []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), result)
}

func TestCallMethodNotFound(t *testing.T) {
	ea, _ := newPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := ea.Call(ctx, "does_not_exist", nil)
	require.Error(t, err)
	rerr, ok := err.(*rpcerr.Error)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindMethodNotFound, rerr.Kind)
}

func TestCallRemoteDomainError(t *testing.T) {
	ea, eb := newPair(t)
	eb.Register("open_device", func(ctx context.Context, args []byte) ([]byte, error) {
		return nil, rpcerr.RemoteDomain(-5) // LIBUSB_ERROR_NOT_FOUND
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := ea.Call(ctx, "open_device", nil)
	require.Error(t, err)
	rerr, ok := err.(*rpcerr.Error)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindRemoteDomain, rerr.Kind)
	assert.Equal(t, -5, rerr.Code)
}

func TestHandlerPanicBecomesInternalError(t *testing.T) {
	ea, eb := newPair(t)
	eb.Register("boom", func(ctx context.Context, args []byte) ([]byte, error) {
		panic("kaboom")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := ea.Call(ctx, "boom", nil)
	require.Error(t, err)
	rerr, ok := err.(*rpcerr.Error)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindLocalDomain, rerr.Kind)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	e := New(newLoopbackConn(), nil, nil)
	e.Register("m", func(ctx context.Context, args []byte) ([]byte, error) { return nil, nil })
	assert.Panics(t, func() {
		e.Register("m", func(ctx context.Context, args []byte) ([]byte, error) { return nil, nil })
	})
}

func TestCloseFailsPendingCalls(t *testing.T) {
	a, b := net.Pipe()
	ea := New(a, nil, nil)
	_ = New(b, nil, nil) // peer never registers a handler and never responds

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ea.Run(ctx) }()

	done := make(chan error, 1)
	go func() {
		callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer callCancel()
		_, err := ea.Call(callCtx, "never_answered", nil)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, ea.Close())

	select {
	case err := <-done:
		require.Error(t, err)
		rerr, ok := err.(*rpcerr.Error)
		require.True(t, ok)
		assert.Equal(t, rpcerr.KindConnectionClosed, rerr.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("Call did not unblock after Close")
	}
}

func TestDeliverToTombstonedCorrelationIDIsSilentlyDropped(t *testing.T) {
	e := New(newLoopbackConn(), nil, nil)
	e.tombstones[7] = struct{}{}

	err := e.deliver(7, pendingResult{payload: []byte("late")})
	require.NoError(t, err)
	_, stillTombstoned := e.tombstones[7]
	assert.False(t, stillTombstoned)
}

func TestDeliverToUnknownCorrelationIDDropsConnection(t *testing.T) {
	e := New(newLoopbackConn(), nil, nil)

	err := e.deliver(99, pendingResult{payload: []byte("unexpected")})
	require.Error(t, err)
	rerr, ok := err.(*rpcerr.Error)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindLocalDomain, rerr.Kind)
}

func TestCancelledCallTombstonesLateResponse(t *testing.T) {
	ea, eb := newPair(t)
	release := make(chan struct{})
	eb.Register("slow", func(ctx context.Context, args []byte) ([]byte, error) {
		<-release
		return []byte("done"), nil
	})

	callCtx, callCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer callCancel()
	_, err := ea.Call(callCtx, "slow", nil)
	require.Error(t, err)
	rerr, ok := err.(*rpcerr.Error)
	require.True(t, ok)
	assert.Equal(t, rpcerr.KindTransport, rerr.Kind)

	close(release)
	// The response now lands after ea gave up waiting on it: it must be
	// discarded as a tombstoned correlation id, not treated as unknown and
	// drop the connection out from under a second, unrelated call.
	time.Sleep(100 * time.Millisecond)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	eb.Register("echo", func(ctx context.Context, args []byte) ([]byte, error) {
		return args, nil
	})
	result, err := ea.Call(ctx2, "echo", []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), result)
}

type fakeGauge struct{ value int }

func (g *fakeGauge) Inc() { g.value++ }
func (g *fakeGauge) Dec() { g.value-- }

type fakeCounter struct{ count int }

func (c *fakeCounter) Inc() { c.count++ }

func TestFrameCountersIncrementOnEveryFrame(t *testing.T) {
	a, b := net.Pipe()
	readA, writtenA := &fakeCounter{}, &fakeCounter{}
	ea := New(a, nil, nil, WithFrameCounters(readA, writtenA))
	eb := New(b, nil, nil)
	eb.Register("echo", func(ctx context.Context, args []byte) ([]byte, error) { return args, nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ea.Run(ctx) }()
	go func() { _ = eb.Run(ctx) }()

	callCtx, callCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer callCancel()
	_, err := ea.Call(callCtx, "echo", []byte("ping"))
	require.NoError(t, err)

	assert.Equal(t, 1, writtenA.count) // the call frame
	assert.Equal(t, 1, readA.count)    // the response frame
}

func TestCallsInFlightGaugeTracksHandlerExecution(t *testing.T) {
	a, b := net.Pipe()
	gauge := &fakeGauge{}
	ea := New(a, nil, nil)
	eb := New(b, nil, nil, WithCallsInFlightGauge(gauge))

	inHandler := make(chan struct{})
	release := make(chan struct{})
	eb.Register("slow", func(ctx context.Context, args []byte) ([]byte, error) {
		close(inHandler)
		<-release
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ea.Run(ctx) }()
	go func() { _ = eb.Run(ctx) }()

	done := make(chan struct{})
	go func() {
		callCtx, callCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer callCancel()
		_, _ = ea.Call(callCtx, "slow", nil)
		close(done)
	}()

	<-inHandler
	assert.Equal(t, 1, gauge.value)
	close(release)
	<-done
	assert.Equal(t, 0, gauge.value)
}

func newLoopbackConn() net.Conn {
	a, _ := net.Pipe()
	return a
}
