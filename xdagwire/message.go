package xdagwire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MaxMessagePayload bounds a single frame's body to guard against a
// malicious or corrupt length prefix allocating unbounded memory.
const MaxMessagePayload = 1 << 20 // 1 MiB; largest real body is a 512-byte block

// Message is one variant of the wire protocol's tagged union: every
// concrete message type knows its own opcode and how to encode/decode
// its body.
type Message interface {
	Opcode() Opcode
	Encode() []byte
	Decode(body []byte) error
}

// PriorityOpcodes is the configured priority set msgqueue.Queue uses to
// choose which sub-queue a message belongs to (spec.md §4.5). Control
// messages pre-empt block relay traffic.
var PriorityOpcodes = map[Opcode]bool{
	OpDisconnect: true,
	OpHello:      true,
	OpPing:       true,
}

// ReadFrame reads one frame — [4-byte length BE | 1-byte opcode | body]
// — from r and decodes it into the Message constructed by newMessage.
func ReadFrame(r io.Reader) (Message, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length == 0 {
		return nil, errors.New("xdagwire: frame length is zero, missing opcode byte")
	}
	if length > MaxMessagePayload {
		return nil, errors.Errorf("xdagwire: frame length %d exceeds maximum %d", length, MaxMessagePayload)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	opcode := Opcode(body[0])
	msg, err := newMessage(opcode)
	if err != nil {
		return nil, err
	}
	if err := msg.Decode(body[1:]); err != nil {
		return nil, errors.Wrapf(err, "decoding %s body", opcode)
	}
	return msg, nil
}

// WriteFrame encodes msg as a complete frame and writes it to w.
func WriteFrame(w io.Writer, msg Message) error {
	body := msg.Encode()
	frame := make([]byte, 4+1+len(body))
	binary.BigEndian.PutUint32(frame[:4], uint32(1+len(body)))
	frame[4] = byte(msg.Opcode())
	copy(frame[5:], body)

	_, err := w.Write(frame)
	return err
}

// EncodeFrame is WriteFrame's allocation-only counterpart: it returns
// the exact bytes WriteFrame would write, without touching a transport.
func EncodeFrame(msg Message) []byte {
	body := msg.Encode()
	frame := make([]byte, 4+1+len(body))
	binary.BigEndian.PutUint32(frame[:4], uint32(1+len(body)))
	frame[4] = byte(msg.Opcode())
	copy(frame[5:], body)
	return frame
}

func newMessage(opcode Opcode) (Message, error) {
	switch opcode {
	case OpDisconnect:
		return &MsgDisconnect{}, nil
	case OpHello:
		return &MsgHello{}, nil
	case OpPing:
		return &MsgPing{}, nil
	case OpMainBlock:
		return &MsgMainBlock{}, nil
	case OpGetMainBlock:
		return &MsgGetMainBlock{}, nil
	case OpMainBlockHeader:
		return &MsgMainBlockHeader{}, nil
	case OpGetMainBlockHeader:
		return &MsgGetMainBlockHeader{}, nil
	case OpNewBlock:
		return &MsgNewBlock{}, nil
	default:
		return nil, errors.Errorf("xdagwire: unrecognised opcode 0x%02x", byte(opcode))
	}
}
