package rpcwire

import (
	"encoding/binary"
	"io"
)

// DefaultMaxFrameSize bounds how large a single frame body is allowed to be.
// It exists only to stop a corrupt or hostile length prefix from making the
// reader allocate an unbounded buffer; legitimate transfer payloads are
// expected to stay well under it.
const DefaultMaxFrameSize = 16 * 1024 * 1024

// WriteFrame writes a u32 little-endian length prefix followed by body.
func WriteFrame(w io.Writer, body []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadFrame reads one length-prefixed frame body from r. It returns the
// underlying read error unchanged (typically io.EOF on a clean peer
// disconnect) so callers can distinguish "connection closed" from
// "malformed data" without string matching.
func ReadFrame(r io.Reader, maxSize uint32) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxSize {
		return nil, malformedf("frame length %d exceeds maximum %d", n, maxSize)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return body, nil
}

// Kind discriminates the three message shapes sharing the outer frame.
type Kind uint8

const (
	KindCall Kind = iota
	KindResponseOk
	KindResponseErr
)

// Message is the decoded shape of one frame body: a call, or a response
// (success or failure) correlated back to an earlier call by CorrelationID.
// Payload carries the call arguments or the success result, both opaque to
// this package; ErrorText carries the failure message for KindResponseErr.
type Message struct {
	Kind          Kind
	Method        string
	CorrelationID uint64
	Payload       []byte
	ErrorText     string
}

// EncodeCall builds the frame body for an outgoing call.
func EncodeCall(method string, correlationID uint64, args []byte) []byte {
	w := NewWriter()
	w.WriteUint8(uint8(KindCall))
	w.WriteString(method)
	w.WriteUint64(correlationID)
	w.WriteBytes(args)
	return w.Bytes()
}

// EncodeResponseOk builds the frame body for a successful response.
func EncodeResponseOk(correlationID uint64, result []byte) []byte {
	w := NewWriter()
	w.WriteUint8(uint8(KindResponseOk))
	w.WriteUint64(correlationID)
	w.WriteBytes(result)
	return w.Bytes()
}

// EncodeResponseErr builds the frame body for a failed response.
func EncodeResponseErr(correlationID uint64, errText string) []byte {
	w := NewWriter()
	w.WriteUint8(uint8(KindResponseErr))
	w.WriteUint64(correlationID)
	w.WriteString(errText)
	return w.Bytes()
}

// DecodeMessage parses a frame body produced by one of the Encode* functions.
func DecodeMessage(body []byte) (Message, error) {
	r := NewReader(body)
	tag, err := r.ReadUint8()
	if err != nil {
		return Message{}, err
	}
	var m Message
	switch Kind(tag) {
	case KindCall:
		m.Kind = KindCall
		if m.Method, err = r.ReadString(); err != nil {
			return Message{}, err
		}
		if m.CorrelationID, err = r.ReadUint64(); err != nil {
			return Message{}, err
		}
		if m.Payload, err = r.ReadBytes(); err != nil {
			return Message{}, err
		}
	case KindResponseOk:
		m.Kind = KindResponseOk
		if m.CorrelationID, err = r.ReadUint64(); err != nil {
			return Message{}, err
		}
		if m.Payload, err = r.ReadBytes(); err != nil {
			return Message{}, err
		}
	case KindResponseErr:
		m.Kind = KindResponseErr
		if m.CorrelationID, err = r.ReadUint64(); err != nil {
			return Message{}, err
		}
		if m.ErrorText, err = r.ReadString(); err != nil {
			return Message{}, err
		}
	default:
		return Message{}, malformedf("unknown message tag %d", tag)
	}
	if err := r.Finish(); err != nil {
		return Message{}, err
	}
	return m, nil
}
