package rpcwire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteUint8(0xAB)
	w.WriteBool(true)
	w.WriteUint16(0x1234)
	w.WriteInt32(-42)
	w.WriteUint64(0xdeadbeefcafef00d)
	w.WriteBytes([]byte{1, 2, 3})
	w.WriteString("hello")

	r := NewReader(w.Bytes())
	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)

	b, err := r.ReadBool()
	require.NoError(t, err)
	assert.True(t, b)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	i32, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-42), i32)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdeadbeefcafef00d), u64)

	bs, err := r.ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, bs)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	assert.NoError(t, r.Finish())
}

func TestReaderUnderrun(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.ReadUint32()
	require.Error(t, err)
	var mf *MalformedFrame
	assert.ErrorAs(t, err, &mf)
}

func TestReaderTrailingBytesRejected(t *testing.T) {
	w := NewWriter()
	w.WriteUint8(1)
	w.WriteUint8(2)
	r := NewReader(w.Bytes())
	_, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Error(t, r.Finish())
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("a wire frame body")
	require.NoError(t, WriteFrame(&buf, body))

	got, err := ReadFrame(&buf, DefaultMaxFrameSize)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 100)))
	_, err := ReadFrame(&buf, 10)
	require.Error(t, err)
	var mf *MalformedFrame
	assert.ErrorAs(t, err, &mf)
}

func TestFrameTruncatedBodyIsUnexpectedEOF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))
	truncated := buf.Bytes()[:len(buf.Bytes())-2]
	_, err := ReadFrame(bytes.NewReader(truncated), DefaultMaxFrameSize)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestMessageRoundTripCall(t *testing.T) {
	body := EncodeCall("devices_list", 7, []byte{9, 9})
	m, err := DecodeMessage(body)
	require.NoError(t, err)
	assert.Equal(t, KindCall, m.Kind)
	assert.Equal(t, "devices_list", m.Method)
	assert.Equal(t, uint64(7), m.CorrelationID)
	assert.Equal(t, []byte{9, 9}, m.Payload)
}

func TestMessageRoundTripResponseOk(t *testing.T) {
	body := EncodeResponseOk(3, []byte{1})
	m, err := DecodeMessage(body)
	require.NoError(t, err)
	assert.Equal(t, KindResponseOk, m.Kind)
	assert.Equal(t, uint64(3), m.CorrelationID)
	assert.Equal(t, []byte{1}, m.Payload)
}

func TestMessageRoundTripResponseErr(t *testing.T) {
	body := EncodeResponseErr(3, "host error: libusb::error::-5")
	m, err := DecodeMessage(body)
	require.NoError(t, err)
	assert.Equal(t, KindResponseErr, m.Kind)
	assert.Equal(t, "host error: libusb::error::-5", m.ErrorText)
}

func TestMessageUnknownTag(t *testing.T) {
	_, err := DecodeMessage([]byte{0xFF})
	require.Error(t, err)
	var mf *MalformedFrame
	assert.ErrorAs(t, err, &mf)
}
