// Package ipc implements the bounded message-queue IPC between processes:
// a fixed-capacity ring buffer with blocking producers/consumers and a
// direct-handoff fast path that bypasses the buffer entirely.
package ipc

import (
	"errors"

	"github.com/kacchi-os/kacchios/internal/constants"
	"github.com/kacchi-os/kacchios/internal/logging"
	"github.com/kacchi-os/kacchios/internal/process"
)

// ErrNilQueue is returned by Send/Recv on a nil *Queue, rather than
// panicking.
var ErrNilQueue = errors.New("ipc: nil queue")

// ProcessTable is the slice of process-table behavior a queue needs:
// identifying the caller and parking it. Defined here, at the point of
// use, so this package never imports package process's sibling
// scheduler — only the Descriptor type.
type ProcessTable interface {
	Current() *process.Descriptor
	BlockCurrent()
}

// Unblocker is the scheduler operation a queue needs to wake a waiter.
type Unblocker interface {
	Unblock(d *process.Descriptor)
}

// Observer receives Send/Recv events, for metrics collection by a wrapping
// package. A nil Observer may be passed to NewQueue, which substitutes
// noopObserver for it.
type Observer interface {
	ObserveSend(blocked bool)
	ObserveRecv(blocked bool)
	ObserveHandoff()
}

type noopObserver struct{}

func (noopObserver) ObserveSend(bool) {}
func (noopObserver) ObserveRecv(bool) {}
func (noopObserver) ObserveHandoff()  {}

// handoff is the direct-handoff carrier stored in a woken consumer's Arg
// field: a typed struct instead of an encoded sentinel, so there's no
// ambiguity between "no value" (Arg is nil) and "value 0".
type handoff struct {
	value uint32
}

// Queue is a bounded FIFO of uint32 values, fixed at a capacity of 16,
// with waiting-producer/waiting-consumer lists and the direct-handoff
// fast path.
type Queue struct {
	buf   [constants.QueueCapacity]uint32
	head  uint32
	tail  uint32
	count uint32

	// waitingProducers/waitingConsumers are external containers (not
	// Descriptor.Next) so a descriptor can sit in one of these and in
	// the scheduler's blocked set simultaneously — see DESIGN.md. Both
	// are LIFO: push and pop at the tail.
	waitingProducers []*process.Descriptor
	waitingConsumers []*process.Descriptor

	table     ProcessTable
	unblocker Unblocker
	observer  Observer
	logger    *logging.Logger
}

// NewQueue creates an empty queue backed by table (for identifying and
// parking the calling process) and unblocker (for waking waiters). observer
// may be nil; a nil observer records nothing.
func NewQueue(table ProcessTable, unblocker Unblocker, observer Observer) *Queue {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Queue{table: table, unblocker: unblocker, observer: observer}
}

// SetLogger installs l as the queue's diagnostic logger. A nil l (the
// default) silences logging entirely.
func (q *Queue) SetLogger(l *logging.Logger) {
	q.logger = l
}

func popLIFO(list []*process.Descriptor) ([]*process.Descriptor, *process.Descriptor) {
	if len(list) == 0 {
		return list, nil
	}
	n := len(list) - 1
	p := list[n]
	return list[:n], p
}

// Send is the producer operation: blocks while the buffer is full, hands
// the value directly to a waiting consumer if one exists, otherwise
// writes it into the ring.
func (q *Queue) Send(value uint32) error {
	if q == nil {
		return ErrNilQueue
	}

	blocked := false
	for q.count == constants.QueueCapacity {
		blocked = true
		q.waitingProducers = append(q.waitingProducers, q.table.Current())
		q.table.BlockCurrent()
	}
	if blocked && q.logger != nil {
		q.logger.Debug("send unblocked after full buffer")
	}
	q.observer.ObserveSend(blocked)

	var consumer *process.Descriptor
	q.waitingConsumers, consumer = popLIFO(q.waitingConsumers)
	if consumer != nil {
		consumer.Arg = handoff{value: value}
		q.unblocker.Unblock(consumer)
		q.observer.ObserveHandoff()
		return nil
	}

	q.buf[q.tail] = value
	q.tail = (q.tail + 1) % constants.QueueCapacity
	q.count++
	return nil
}

// Recv is the consumer operation: drains the buffer when non-empty,
// otherwise blocks as a waiting consumer. On wake it inspects its Arg
// slot: a handoff value means direct delivery bypassing the buffer; no
// handoff means loop and re-test the buffer.
func (q *Queue) Recv() (uint32, error) {
	if q == nil {
		return 0, ErrNilQueue
	}

	var value uint32
	blocked := false
	for {
		if q.count > 0 {
			value = q.buf[q.head]
			q.head = (q.head + 1) % constants.QueueCapacity
			q.count--
			break
		}

		blocked = true
		self := q.table.Current()
		q.waitingConsumers = append(q.waitingConsumers, self)
		q.table.BlockCurrent()

		if h, ok := self.Arg.(handoff); ok {
			value = h.value
			self.Arg = nil
			break
		}
	}
	if blocked && q.logger != nil {
		q.logger.Debug("recv unblocked after empty buffer")
	}
	q.observer.ObserveRecv(blocked)

	var sender *process.Descriptor
	q.waitingProducers, sender = popLIFO(q.waitingProducers)
	if sender != nil {
		q.unblocker.Unblock(sender)
	}

	return value, nil
}

// Len reports the number of buffered values currently in the ring,
// excluding anything in flight via direct handoff.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return int(q.count)
}
