package xdagwire

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/xdagjgo/xdagd/xdagtype"
)

// nodeIDSize is the length of the self-identifying node ID carried in a
// handshake, matching the 160-bit hash160 of a node's public key.
const nodeIDSize = 20

// MsgHello is both the HELLO and WORLD message body: the two directions
// of the handshake exchange an identical shape, differing only in which
// side sends first (spec.md §6).
type MsgHello struct {
	NetworkID uint32
	Version   uint16
	TipLow    xdagtype.Hash256
	Port      uint16
	NodeID    [nodeIDSize]byte
}

func (m *MsgHello) Opcode() Opcode { return OpHello }

func (m *MsgHello) Encode() []byte {
	out := make([]byte, 4+2+xdagtype.HashSize+2+nodeIDSize)
	binary.BigEndian.PutUint32(out[0:4], m.NetworkID)
	binary.BigEndian.PutUint16(out[4:6], m.Version)
	copy(out[6:6+xdagtype.HashSize], m.TipLow[:])
	off := 6 + xdagtype.HashSize
	binary.BigEndian.PutUint16(out[off:off+2], m.Port)
	copy(out[off+2:], m.NodeID[:])
	return out
}

func (m *MsgHello) Decode(body []byte) error {
	want := 4 + 2 + xdagtype.HashSize + 2 + nodeIDSize
	if len(body) != want {
		return errors.Errorf("HELLO/WORLD body: expected %d bytes, got %d", want, len(body))
	}
	m.NetworkID = binary.BigEndian.Uint32(body[0:4])
	m.Version = binary.BigEndian.Uint16(body[4:6])
	copy(m.TipLow[:], body[6:6+xdagtype.HashSize])
	off := 6 + xdagtype.HashSize
	m.Port = binary.BigEndian.Uint16(body[off : off+2])
	copy(m.NodeID[:], body[off+2:])
	return nil
}

// MsgPing is both the PING and PONG message body: an echoed nonce lets
// the sender match a PONG to the PING that provoked it.
type MsgPing struct {
	Nonce uint64
}

func (m *MsgPing) Opcode() Opcode { return OpPing }

func (m *MsgPing) Encode() []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, m.Nonce)
	return out
}

func (m *MsgPing) Decode(body []byte) error {
	if len(body) != 8 {
		return errors.Errorf("PING/PONG body: expected 8 bytes, got %d", len(body))
	}
	m.Nonce = binary.BigEndian.Uint64(body)
	return nil
}

// MsgDisconnect announces the reason a peer is about to close the
// connection (spec.md §6).
type MsgDisconnect struct {
	Reason DisconnectReason
}

func (m *MsgDisconnect) Opcode() Opcode { return OpDisconnect }

func (m *MsgDisconnect) Encode() []byte {
	return []byte{byte(m.Reason)}
}

func (m *MsgDisconnect) Decode(body []byte) error {
	if len(body) != 1 {
		return errors.Errorf("DISCONNECT body: expected 1 byte, got %d", len(body))
	}
	m.Reason = DisconnectReason(body[0])
	return nil
}
