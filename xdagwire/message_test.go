package xdagwire

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/xdagjgo/xdagd/xdagtype"
)

func sampleBlock() *xdagtype.Block {
	b := &xdagtype.Block{Timestamp: 1700000000123}
	b.SetRemark(0, "round-trip sample")
	return b
}

func TestRoundTripAllOpcodes(t *testing.T) {
	hash := xdagtype.HashData([]byte("xdagwire round-trip"))

	cases := []Message{
		&MsgDisconnect{Reason: ReasonMessageQueueFull},
		&MsgHello{
			NetworkID: 3,
			Version:   1,
			TipLow:    hash.LowHash(),
			Port:      8001,
			NodeID:    [nodeIDSize]byte{1, 2, 3, 4, 5},
		},
		&MsgPing{Nonce: 0xdeadbeefcafe},
		&MsgMainBlock{Block: sampleBlock()},
		&MsgGetMainBlock{LowHash: hash.LowHash()},
		&MsgMainBlockHeader{
			Height:     42,
			HashLow:    hash.LowHash(),
			Difficulty: [32]byte{0xff},
			Timestamp:  1700000000123,
		},
		&MsgGetMainBlockHeader{Height: 42},
		&MsgNewBlock{Block: sampleBlock()},
	}

	for _, want := range cases {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, want); err != nil {
			t.Fatalf("%s: WriteFrame: %v", want.Opcode(), err)
		}

		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("%s: ReadFrame: %v", want.Opcode(), err)
		}

		if got.Opcode() != want.Opcode() {
			t.Fatalf("opcode mismatch: got %s, want %s", got.Opcode(), want.Opcode())
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: round-trip mismatch:\n got  %#v\n want %#v", want.Opcode(), got, want)
		}
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var lengthBuf [4]byte
	lengthBuf[0] = 0xFF // absurd length, far beyond MaxMessagePayload
	buf := bytes.NewBuffer(lengthBuf[:])

	if _, err := ReadFrame(buf); err == nil {
		t.Fatal("expected an error for an oversized frame length")
	}
}

func TestReadFrameRejectsZeroLength(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	if _, err := ReadFrame(buf); err == nil {
		t.Fatal("expected an error for a zero-length frame")
	}
}

func TestReadFrameRejectsUnknownOpcode(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 1, 0x7F}) // length=1, opcode=0x7F (unassigned)
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatal("expected an error for an unrecognised opcode")
	}
}

func TestEncodeFrameMatchesWriteFrame(t *testing.T) {
	msg := &MsgPing{Nonce: 7}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, msg); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	if !bytes.Equal(buf.Bytes(), EncodeFrame(msg)) {
		t.Fatal("EncodeFrame output diverges from WriteFrame output")
	}
}
