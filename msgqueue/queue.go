// Package msgqueue implements the per-peer outbound message queue of
// spec.md §4.5: two priority lanes, a bounded drain rate per tick, and
// a single flush per tick, modeled on the teacher's netadapter router
// idiom of routing messages through a small typed state machine rather
// than writing straight to the socket from arbitrary goroutines.
package msgqueue

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/xdagjgo/xdagd/internal/logs"
	"github.com/xdagjgo/xdagd/xdagwire"
)

var log = logs.Get(logs.TagQUEU)

// State is the queue's lifecycle state (spec.md §4.5).
type State int

const (
	StateIdle State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// DrainPerTick bounds how many messages a single tick flushes, so one
// overloaded peer can't starve the scheduler's other peers.
const DrainPerTick = 5

// ErrQueueClosed is returned by Send once the queue has transitioned to
// StateClosed.
var ErrQueueClosed = errors.New("msgqueue: queue is closed")

// ErrQueueFull is returned by Send when the normal lane is saturated;
// the caller is expected to disconnect the peer with
// ReasonMessageQueueFull, matching spec.md §4.5's overflow behavior.
var ErrQueueFull = errors.New("msgqueue: normal lane is full")

// Sender delivers a single already-framed message to the transport. It
// is supplied by the peer session that owns the queue, keeping this
// package free of any knowledge of net.Conn.
type Sender func(msg xdagwire.Message) error

// Queue is one peer's outbound message queue: a priority lane (control
// messages: DISCONNECT, HELLO/WORLD, PING/PONG) and a normal lane
// (block relay), drained at most DrainPerTick messages per Tick call.
type Queue struct {
	mu    sync.Mutex
	state State

	priority []xdagwire.Message
	normal   []xdagwire.Message
	capacity int

	send Sender
}

// New creates a Queue in StateIdle with the given normal-lane capacity.
// The priority lane is never bounded: control messages (in particular
// DISCONNECT) must never be dropped for capacity reasons.
func New(capacity int, send Sender) *Queue {
	return &Queue{
		state:    StateIdle,
		capacity: capacity,
		send:     send,
	}
}

// Activate transitions the queue from Idle to Active, the point at
// which Tick starts actually draining messages. Sends before Activate
// still enqueue; they simply wait for the first Tick after activation.
func (q *Queue) Activate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == StateIdle {
		q.state = StateActive
	}
}

// Send enqueues msg onto the lane selected by xdagwire.PriorityOpcodes.
// If the normal lane is already at capacity, the queue itself emits a
// DISCONNECT(MESSAGE_QUEUE_FULL) onto the priority lane and transitions
// to StateClosed before returning ErrQueueFull (spec.md §4.5, §8.4): the
// caller is expected to treat ErrQueueFull as a signal to tear down the
// connection, not merely to log it.
func (q *Queue) Send(msg xdagwire.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state == StateClosed {
		return ErrQueueClosed
	}

	if xdagwire.PriorityOpcodes[msg.Opcode()] {
		q.priority = append(q.priority, msg)
		return nil
	}

	if q.capacity > 0 && len(q.normal) >= q.capacity {
		q.priority = append(q.priority, &xdagwire.MsgDisconnect{Reason: xdagwire.ReasonMessageQueueFull})
		q.state = StateClosed
		return ErrQueueFull
	}
	q.normal = append(q.normal, msg)
	return nil
}

// Tick drains up to DrainPerTick messages, priority lane first, and
// performs at most one flush of the underlying Sender's buffering (the
// Sender itself is responsible for any internal buffering; Tick's
// contract is simply "call send at most DrainPerTick times"). A closed
// queue still drains once the lanes are left non-empty by an overflow
// Send — this is what gets that last DISCONNECT onto the wire — but an
// Idle queue (never activated) never drains.
func (q *Queue) Tick() error {
	q.mu.Lock()
	if q.state == StateIdle {
		q.mu.Unlock()
		return nil
	}

	var batch []xdagwire.Message
	for len(batch) < DrainPerTick && len(q.priority) > 0 {
		batch = append(batch, q.priority[0])
		q.priority = q.priority[1:]
	}
	for len(batch) < DrainPerTick && len(q.normal) > 0 {
		batch = append(batch, q.normal[0])
		q.normal = q.normal[1:]
	}
	q.mu.Unlock()

	for _, msg := range batch {
		if err := q.send(msg); err != nil {
			return errors.Wrapf(err, "sending %s", msg.Opcode())
		}
	}
	return nil
}

// Close transitions the queue to StateClosed and discards both lanes;
// subsequent Send calls fail. Unlike the overflow path in Send, it does
// not flush anything first — the caller is expected to have already
// sent (or decided to drop) a final DISCONNECT before calling Close.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.state = StateClosed
	q.priority = nil
	q.normal = nil
}

// State reports the queue's current lifecycle state.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Len reports the combined depth of both lanes, for tests and metrics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.priority) + len(q.normal)
}
