package msgqueue

import (
	"testing"

	"github.com/xdagjgo/xdagd/xdagwire"
)

func collectingSender(out *[]xdagwire.Message) Sender {
	return func(msg xdagwire.Message) error {
		*out = append(*out, msg)
		return nil
	}
}

func TestTickDrainsPriorityBeforeNormal(t *testing.T) {
	var sent []xdagwire.Message
	q := New(0, collectingSender(&sent))
	q.Activate()

	if err := q.Send(&xdagwire.MsgNewBlock{Block: nil}); err != nil {
		t.Fatalf("Send normal: %v", err)
	}
	if err := q.Send(&xdagwire.MsgPing{Nonce: 1}); err != nil {
		t.Fatalf("Send priority: %v", err)
	}

	if err := q.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if len(sent) != 2 {
		t.Fatalf("got %d sent messages, want 2", len(sent))
	}
	if sent[0].Opcode() != xdagwire.OpPing {
		t.Fatalf("priority message should drain first, got %s", sent[0].Opcode())
	}
}

func TestTickRespectsDrainCap(t *testing.T) {
	var sent []xdagwire.Message
	q := New(0, collectingSender(&sent))
	q.Activate()

	for i := 0; i < DrainPerTick+3; i++ {
		if err := q.Send(&xdagwire.MsgPing{Nonce: uint64(i)}); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}

	if err := q.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(sent) != DrainPerTick {
		t.Fatalf("first tick drained %d messages, want %d", len(sent), DrainPerTick)
	}
	if q.Len() != 3 {
		t.Fatalf("queue depth after first tick = %d, want 3", q.Len())
	}
}

func TestSendRejectsOverCapacityNormalLane(t *testing.T) {
	var sent []xdagwire.Message
	q := New(1, collectingSender(&sent))
	q.Activate()

	if err := q.Send(&xdagwire.MsgNewBlock{}); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := q.Send(&xdagwire.MsgNewBlock{}); err != ErrQueueFull {
		t.Fatalf("second send: got %v, want ErrQueueFull", err)
	}
}

func TestSendOverflowEmitsDisconnectAndCloses(t *testing.T) {
	var sent []xdagwire.Message
	q := New(1, collectingSender(&sent))
	q.Activate()

	if err := q.Send(&xdagwire.MsgNewBlock{}); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := q.Send(&xdagwire.MsgNewBlock{}); err != ErrQueueFull {
		t.Fatalf("second send: got %v, want ErrQueueFull", err)
	}
	if q.State() != StateClosed {
		t.Fatalf("state after overflow = %s, want CLOSED", q.State())
	}
	if err := q.Send(&xdagwire.MsgPing{}); err != ErrQueueClosed {
		t.Fatalf("send after overflow: got %v, want ErrQueueClosed", err)
	}

	if err := q.Tick(); err != nil {
		t.Fatalf("Tick after overflow: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("got %d sent messages, want 2 (the overflow DISCONNECT plus the original block)", len(sent))
	}
	disc, ok := sent[0].(*xdagwire.MsgDisconnect)
	if !ok {
		t.Fatalf("first drained message is %T, want *MsgDisconnect (priority lane drains first)", sent[0])
	}
	if disc.Reason != xdagwire.ReasonMessageQueueFull {
		t.Fatalf("disconnect reason = %s, want MESSAGE_QUEUE_FULL", disc.Reason)
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	var sent []xdagwire.Message
	q := New(0, collectingSender(&sent))
	q.Activate()
	q.Close()

	if err := q.Send(&xdagwire.MsgPing{}); err != ErrQueueClosed {
		t.Fatalf("got %v, want ErrQueueClosed", err)
	}
}

func TestIdleQueueDoesNotDrain(t *testing.T) {
	var sent []xdagwire.Message
	q := New(0, collectingSender(&sent))

	if err := q.Send(&xdagwire.MsgPing{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := q.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(sent) != 0 {
		t.Fatalf("idle queue drained %d messages, want 0", len(sent))
	}
}
