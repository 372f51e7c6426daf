// Package rpcendpoint implements the bidirectional multiplexed RPC endpoint
// that sits on top of rpcwire: one goroutine reads frames off the
// connection and dispatches them, one goroutine owns writing, and a
// correlation-ID-keyed map matches responses back to the call that is
// waiting on them. Either side of a connection can call and be called; the
// same Endpoint type is used by both the server and the client backend
// adapter.
package rpcendpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/jprendes/libusb-proxy/internal/log"
	"github.com/jprendes/libusb-proxy/internal/rpcerr"
	"github.com/jprendes/libusb-proxy/internal/rpcwire"
)

// HandlerFunc answers an incoming call. It receives the raw argument
// payload and returns the raw result payload; both are opaque to the
// endpoint, which never interprets method-specific field layouts. Returning
// a non-nil error sends a response-err frame back to the caller. Panics are
// recovered and reported to the caller as a LocalDomain "internal" error.
type HandlerFunc func(ctx context.Context, args []byte) ([]byte, error)

const outboundQueueSize = 256

// gaugeMetric and counterMetric are satisfied structurally by
// prometheus.Gauge and prometheus.Counter, without this package importing
// the metrics package: an Endpoint only needs to poke a couple of numbers,
// not know what collects them.
type gaugeMetric interface {
	Inc()
	Dec()
}

type counterMetric interface {
	Inc()
}

// Option configures optional Endpoint behavior at construction time.
type Option func(*Endpoint)

// WithCallsInFlightGauge reports the number of calls this endpoint is
// currently dispatching to a registered handler.
func WithCallsInFlightGauge(g gaugeMetric) Option {
	return func(e *Endpoint) { e.callsInFlight = g }
}

// WithFrameCounters reports every frame this endpoint reads and writes.
func WithFrameCounters(read, written counterMetric) Option {
	return func(e *Endpoint) { e.framesRead = read; e.framesWritten = written }
}

// Endpoint multiplexes calls and responses over a single connection.
type Endpoint struct {
	conn      io.ReadWriteCloser
	logger    *slog.Logger
	raw       log.RawLogger
	maxFrame  uint32
	outbound  chan []byte
	nextCorID atomic.Uint64

	callsInFlight gaugeMetric
	framesRead    counterMetric
	framesWritten counterMetric

	handlersMu sync.RWMutex
	handlers   map[string]HandlerFunc

	pendingMu  sync.Mutex
	pending    map[uint64]chan pendingResult
	tombstones map[uint64]struct{}

	inFlightMu sync.Mutex
	inFlight   map[uint64]struct{}

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

type pendingResult struct {
	payload []byte
	err     *rpcerr.Error
}

// New creates an Endpoint over conn. logger receives structured
// diagnostics; raw (if non-nil) receives a hex dump of every frame in each
// direction. Register handlers before calling Run.
func New(conn io.ReadWriteCloser, logger *slog.Logger, raw log.RawLogger, opts ...Option) *Endpoint {
	if logger == nil {
		logger = slog.Default()
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	e := &Endpoint{
		conn:       conn,
		logger:     logger,
		raw:        raw,
		maxFrame:   rpcwire.DefaultMaxFrameSize,
		outbound:   make(chan []byte, outboundQueueSize),
		handlers:   make(map[string]HandlerFunc),
		pending:    make(map[uint64]chan pendingResult),
		tombstones: make(map[uint64]struct{}),
		inFlight:   make(map[uint64]struct{}),
		closed:     make(chan struct{}),
	}
	e.nextCorID.Store(1)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register installs the handler for method. Registering the same method
// twice is a programming error and panics, the same way net/http's
// ServeMux panics on a duplicate pattern.
func (e *Endpoint) Register(method string, h HandlerFunc) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	if _, exists := e.handlers[method]; exists {
		panic(fmt.Sprintf("rpcendpoint: method %q already registered", method))
	}
	e.handlers[method] = h
}

// Call issues a call and blocks until a response arrives, ctx is done, or
// the endpoint is closed. args and the returned payload are opaque to the
// endpoint.
func (e *Endpoint) Call(ctx context.Context, method string, args []byte) ([]byte, error) {
	corID := e.nextCorID.Add(1) - 1
	ch := make(chan pendingResult, 1)

	e.pendingMu.Lock()
	e.pending[corID] = ch
	e.pendingMu.Unlock()

	// A cancelled/timed-out call leaves a tombstone behind instead of a
	// plain delete: a response for this correlation ID can still arrive
	// after we stop waiting on it, and deliver() needs to tell that
	// legitimate-but-late case (discard silently) apart from a response to
	// an ID that was never issued at all (drop the connection, per §4.2).
	cleanup := func() {
		e.pendingMu.Lock()
		delete(e.pending, corID)
		e.tombstones[corID] = struct{}{}
		e.pendingMu.Unlock()
	}

	frame := rpcwire.EncodeCall(method, corID, args)
	select {
	case e.outbound <- frame:
	case <-e.closed:
		cleanup()
		return nil, rpcerr.ConnectionClosed()
	case <-ctx.Done():
		cleanup()
		return nil, rpcerr.Transport(ctx.Err())
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.payload, nil
	case <-e.closed:
		cleanup()
		return nil, rpcerr.ConnectionClosed()
	case <-ctx.Done():
		cleanup()
		return nil, rpcerr.Transport(ctx.Err())
	}
}

// Run drives the endpoint's reader and writer loops until ctx is cancelled,
// the connection fails, or Close is called. It always returns a non-nil
// error: rpcerr.ConnectionClosed() on a clean shutdown, or the underlying
// transport failure otherwise.
func (e *Endpoint) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var readErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		readErr = e.readLoop(ctx)
		cancel()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.writeLoop(ctx)
	}()

	<-ctx.Done()
	_ = e.conn.Close()
	wg.Wait()

	e.failAllPending(rpcerr.ConnectionClosed())
	e.closeOnce.Do(func() { close(e.closed) })

	if readErr != nil {
		return readErr
	}
	return rpcerr.ConnectionClosed()
}

// Close terminates the endpoint's connection, causing Run to return.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}

func (e *Endpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case frame := <-e.outbound:
			e.raw.Log(false, frame)
			if err := rpcwire.WriteFrame(e.conn, frame); err != nil {
				return
			}
			if e.framesWritten != nil {
				e.framesWritten.Inc()
			}
		case <-ctx.Done():
			return
		}
	}
}

func (e *Endpoint) readLoop(ctx context.Context) error {
	for {
		body, err := rpcwire.ReadFrame(e.conn, e.maxFrame)
		if err != nil {
			return e.classifyReadErr(err)
		}
		if e.framesRead != nil {
			e.framesRead.Inc()
		}
		e.raw.Log(true, body)

		msg, err := rpcwire.DecodeMessage(body)
		if err != nil {
			e.logger.Error("dropping connection: malformed frame", "error", err)
			return rpcerr.Transport(err)
		}

		switch msg.Kind {
		case rpcwire.KindCall:
			if !e.markInFlight(msg.CorrelationID) {
				e.logger.Error("dropping connection: duplicate correlation id", "correlation_id", msg.CorrelationID)
				return rpcerr.LocalDomainf("duplicate correlation id %d", msg.CorrelationID)
			}
			go e.dispatchCall(ctx, msg)
		case rpcwire.KindResponseOk:
			if err := e.deliver(msg.CorrelationID, pendingResult{payload: msg.Payload}); err != nil {
				return err
			}
		case rpcwire.KindResponseErr:
			code, ok := rpcerr.ParseRemoteDomain(msg.ErrorText)
			var rerr *rpcerr.Error
			if ok {
				rerr = rpcerr.RemoteDomain(code)
			} else if msg.ErrorText == "method not found" {
				rerr = rpcerr.MethodNotFound("")
			} else {
				rerr = rpcerr.LocalDomain(msg.ErrorText)
			}
			if err := e.deliver(msg.CorrelationID, pendingResult{err: rerr}); err != nil {
				return err
			}
		}
	}
}

func (e *Endpoint) classifyReadErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return rpcerr.ConnectionClosed()
	}
	// The connection was closed on this side (Close or ctx cancellation).
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return rpcerr.ConnectionClosed()
	}
	return rpcerr.Transport(err)
}

func (e *Endpoint) markInFlight(corID uint64) bool {
	e.inFlightMu.Lock()
	defer e.inFlightMu.Unlock()
	if _, exists := e.inFlight[corID]; exists {
		return false
	}
	e.inFlight[corID] = struct{}{}
	return true
}

func (e *Endpoint) clearInFlight(corID uint64) {
	e.inFlightMu.Lock()
	delete(e.inFlight, corID)
	e.inFlightMu.Unlock()
}

// deliver routes a response to the call waiting on corID. A response for a
// tombstoned ID (a call this side stopped waiting on, via cancellation or
// timeout) is a legitimate race and is discarded silently. A response for an
// ID that is in neither map was never issued by this side at all, which per
// §4.2 means the connection is desynchronized and must be dropped.
func (e *Endpoint) deliver(corID uint64, res pendingResult) error {
	e.pendingMu.Lock()
	ch, ok := e.pending[corID]
	if ok {
		delete(e.pending, corID)
	} else if _, tombstoned := e.tombstones[corID]; tombstoned {
		delete(e.tombstones, corID)
		e.pendingMu.Unlock()
		return nil
	}
	e.pendingMu.Unlock()
	if !ok {
		e.logger.Error("dropping connection: response for unknown correlation id", "correlation_id", corID)
		return rpcerr.LocalDomainf("response for unknown correlation id %d", corID)
	}
	ch <- res
	return nil
}

func (e *Endpoint) dispatchCall(ctx context.Context, msg rpcwire.Message) {
	defer e.clearInFlight(msg.CorrelationID)

	if e.callsInFlight != nil {
		e.callsInFlight.Inc()
		defer e.callsInFlight.Dec()
	}

	e.handlersMu.RLock()
	h, ok := e.handlers[msg.Method]
	e.handlersMu.RUnlock()

	if !ok {
		e.enqueue(rpcwire.EncodeResponseErr(msg.CorrelationID, "method not found"))
		return
	}

	result, err := e.invoke(ctx, h, msg.Payload)
	if err != nil {
		e.enqueue(rpcwire.EncodeResponseErr(msg.CorrelationID, err.Error()))
		return
	}
	e.enqueue(rpcwire.EncodeResponseOk(msg.CorrelationID, result))
}

func (e *Endpoint) invoke(ctx context.Context, h HandlerFunc, args []byte) (result []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked", "panic", r)
			err = rpcerr.LocalDomain("internal")
		}
	}()
	return h(ctx, args)
}

func (e *Endpoint) enqueue(frame []byte) {
	select {
	case e.outbound <- frame:
	case <-e.closed:
	}
}

func (e *Endpoint) failAllPending(err *rpcerr.Error) {
	e.pendingMu.Lock()
	pending := e.pending
	e.pending = make(map[uint64]chan pendingResult)
	e.tombstones = make(map[uint64]struct{})
	e.pendingMu.Unlock()
	for _, ch := range pending {
		ch <- pendingResult{err: err}
	}
}
