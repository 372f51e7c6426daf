// Package server implements the dispatcher that sits on the RPC endpoint
// on the side holding the physical USB devices: the device table and the
// method handlers from the server method set.
package server

import (
	"sync"

	"github.com/jprendes/libusb-proxy/internal/rpcerr"
	"github.com/jprendes/libusb-proxy/internal/usbbackend"
)

// firstDeviceID is the seed the id counter starts from; confirmed against
// the native implementation this protocol was modeled on, which literally
// starts its counter at 42.
const firstDeviceID uint32 = 42

// Record is the local device record: the device table's unit of storage.
// Invariant: Handle is non-nil iff OpenCount > 0.
type Record struct {
	ID        uint32
	Native    usbbackend.NativeDevice
	OpenCount int
	Handle    usbbackend.NativeHandle
}

// DeviceTable is the process-wide id -> record mapping. All access is
// serialized by mu; the dispatcher never reaches into a Record directly
// from outside this package without holding that lock.
type DeviceTable struct {
	mu       sync.Mutex
	byID     map[uint32]*Record
	byNative map[usbbackend.NativeDevice]*Record
	nextID   uint32
}

// NewDeviceTable returns an empty table seeded at firstDeviceID.
func NewDeviceTable() *DeviceTable {
	return &DeviceTable{
		byID:     make(map[uint32]*Record),
		byNative: make(map[usbbackend.NativeDevice]*Record),
		nextID:   firstDeviceID,
	}
}

// Observe looks up the record for native, allocating a new id and record on
// first sight. The returned bool reports whether this is the first
// observation; callers must release the redundant native reference
// (lib.Unref) when it is false, since the table already owns one.
func (t *DeviceTable) Observe(native usbbackend.NativeDevice) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.byNative[native]; ok {
		return r, false
	}
	id := t.nextID
	t.nextID++
	r := &Record{ID: id, Native: native}
	t.byNative[native] = r
	t.byID[id] = r
	return r, true
}

// Get looks up a record by id, failing with NoDevice if it was never
// observed. A record that was observed but has since vanished from the
// native device list is still returned here; an operation on it fails when
// its native call fails, and the dispatcher reports that failure with the
// fixed error code the handler uses (for example ErrorIO), not with a code
// taken from the native error.
func (t *DeviceTable) Get(id uint32) (*Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.byID[id]
	if !ok {
		return nil, rpcerr.RemoteDomain(usbbackend.ErrorNoDevice)
	}
	return r, nil
}

// WithLock runs fn while holding the table's mutex, for mutating a record's
// OpenCount/Handle atomically with respect to other operations on the same
// or a different device.
func (t *DeviceTable) WithLock(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn()
}

// Records returns a snapshot of every tracked record, for shutdown cleanup.
func (t *DeviceTable) Records() []*Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Record, 0, len(t.byID))
	for _, r := range t.byID {
		out = append(out, r)
	}
	return out
}
