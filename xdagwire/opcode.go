// Package xdagwire implements the wire protocol of spec.md §6: frame
// framing, the opcode catalogue, and per-opcode message encode/decode.
// Each opcode is a distinct variant of a tagged union; dispatch is a
// switch on the opcode byte rather than a class hierarchy (spec.md §9
// "Polymorphic messages").
package xdagwire

// Opcode identifies a wire message's body layout.
type Opcode uint8

// The stable opcode catalogue of spec.md §6.
const (
	OpDisconnect         Opcode = 0x00
	OpHello              Opcode = 0x01
	OpWorld              Opcode = 0x01 // same wire opcode as HELLO; direction is contextual
	OpPing               Opcode = 0x02
	OpPong               Opcode = 0x02 // same wire opcode as PING; direction is contextual
	OpMainBlock          Opcode = 0x10
	OpGetMainBlock       Opcode = 0x11
	OpMainBlockHeader    Opcode = 0x12
	OpGetMainBlockHeader Opcode = 0x13
	OpNewBlock           Opcode = 0x20
)

func (o Opcode) String() string {
	switch o {
	case OpDisconnect:
		return "DISCONNECT"
	case OpHello:
		return "HELLO/WORLD"
	case OpPing:
		return "PING/PONG"
	case OpMainBlock:
		return "MAIN_BLOCK"
	case OpGetMainBlock:
		return "GET_MAIN_BLOCK"
	case OpMainBlockHeader:
		return "MAIN_BLOCK_HEADER"
	case OpGetMainBlockHeader:
		return "GET_MAIN_BLOCK_HEADER"
	case OpNewBlock:
		return "NEW_BLOCK"
	default:
		return "UNKNOWN"
	}
}

// DisconnectReason is the stable reason enumeration carried by a
// DISCONNECT message body (spec.md §6).
type DisconnectReason uint8

const (
	ReasonTimeout            DisconnectReason = 0
	ReasonBadProtocol        DisconnectReason = 1
	ReasonBadNetwork         DisconnectReason = 2
	ReasonDuplicatedPeerID   DisconnectReason = 3
	ReasonMessageQueueFull   DisconnectReason = 4
	ReasonAlreadyConnected   DisconnectReason = 5
	ReasonInvalidHandshake   DisconnectReason = 6
	ReasonUnexpectedMessage  DisconnectReason = 7
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonTimeout:
		return "TIMEOUT"
	case ReasonBadProtocol:
		return "BAD_PROTOCOL"
	case ReasonBadNetwork:
		return "BAD_NETWORK"
	case ReasonDuplicatedPeerID:
		return "DUPLICATED_PEER_ID"
	case ReasonMessageQueueFull:
		return "MESSAGE_QUEUE_FULL"
	case ReasonAlreadyConnected:
		return "ALREADY_CONNECTED"
	case ReasonInvalidHandshake:
		return "INVALID_HANDSHAKE"
	case ReasonUnexpectedMessage:
		return "UNEXPECTED_MESSAGE"
	default:
		return "UNKNOWN"
	}
}
