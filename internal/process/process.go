// Package process implements the fixed-capacity process table and the
// process-lifecycle API: descriptor allocation, the bootstrap trampoline,
// and the block/exit calls user code invokes directly.
package process

import (
	"errors"

	"github.com/kacchi-os/kacchios/internal/constants"
	"github.com/kacchi-os/kacchios/internal/ctxswitch"
	"github.com/kacchi-os/kacchios/internal/memalloc"
)

// State is a process descriptor's lifecycle state.
type State int

const (
	Unused State = iota
	Current
	Ready
	Blocked
	Terminated
)

func (s State) String() string {
	switch s {
	case Unused:
		return "UNUSED"
	case Current:
		return "CURRENT"
	case Ready:
		return "READY"
	case Blocked:
		return "BLOCKED"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Entry is the body of a process: the function invoked by the bootstrap
// trampoline, taking the single opaque argument supplied at creation.
type Entry func(arg any)

// Descriptor is one process-table slot. Next is read and written only by
// the scheduler's ready queue; the blocked set and IPC waiter lists use
// external slices instead of this field, since a descriptor can belong to
// a waiter list and the blocked set at once — see DESIGN.md.
type Descriptor struct {
	ID    uint64
	State State

	ctx *ctxswitch.Context

	stack     []byte
	stackSize uint32

	entry Entry
	Arg   any

	Next *Descriptor

	Aging     uint32
	TimeSlice uint32
}

// Context exposes the descriptor's opaque execution context to the
// scheduler and nothing else.
func (d *Descriptor) Context() *ctxswitch.Context { return d.ctx }

// StackSize reports the byte size of the stack allocated for this
// process, for inspection tools like the demo shell's "ps" command.
func (d *Descriptor) StackSize() uint32 { return d.stackSize }

// Scheduler is the slice of scheduler behavior the process table needs:
// admitting a freshly created descriptor, and the two block/exit calls
// that hand control away. Defined here, at the point of use, so package
// process never imports package scheduler — scheduler imports process for
// *Descriptor, and its concrete type satisfies this interface
// structurally, avoiding an import cycle between the two packages.
type Scheduler interface {
	Add(d *Descriptor)
	BlockCurrent()
	ExitCurrent()
	Current() *Descriptor
}

var (
	// ErrNoEntry is returned when Create is given a nil entry function.
	ErrNoEntry = errors.New("process: entry function is nil")
	// ErrNoSlot is returned when every table slot is occupied by a
	// non-reclaimable descriptor.
	ErrNoSlot = errors.New("process: no free slot")
)

// Table is the fixed-capacity process table: a fixed-slot descriptor
// array plus the monotonic identifier counter.
type Table struct {
	slots  []Descriptor
	nextID uint64
	alloc  *memalloc.Allocator
	sched  Scheduler
}

// NewTable creates a table of the given capacity, backed by alloc for
// stack memory and wired to sched for lifecycle transitions.
func NewTable(capacity int, alloc *memalloc.Allocator, sched Scheduler) *Table {
	return &Table{
		slots:  make([]Descriptor, capacity),
		nextID: 1,
		alloc:  alloc,
		sched:  sched,
	}
}

// allocSlot finds the first UNUSED or TERMINATED slot.
func (t *Table) allocSlot() *Descriptor {
	for i := range t.slots {
		if t.slots[i].State == Unused || t.slots[i].State == Terminated {
			return &t.slots[i]
		}
	}
	return nil
}

// Create allocates a descriptor, requests a stack from the allocator
// (defaulting to constants.DefaultStackSize when stackSize is zero), and
// rigs the bootstrap trampoline so the descriptor's first resumption runs
// entry(arg) and then exits. Returns ErrNoSlot or a memalloc error on
// failure, and the descriptor is handed to the scheduler's Add on
// success.
func (t *Table) Create(entry Entry, arg any, stackSize uint32) (*Descriptor, error) {
	if entry == nil {
		return nil, ErrNoEntry
	}

	desc := t.allocSlot()
	if desc == nil {
		return nil, ErrNoSlot
	}

	need := stackSize
	if need == 0 {
		need = constants.DefaultStackSize
	}
	stack, err := t.alloc.Alloc(need)
	if err != nil {
		return nil, err
	}

	*desc = Descriptor{
		ID:        t.nextID,
		State:     Ready,
		ctx:       ctxswitch.New(),
		stack:     stack,
		stackSize: need,
		entry:     entry,
		Arg:       arg,
		Aging:     0,
		TimeSlice: 0,
	}
	t.nextID++

	go t.bootstrap(desc)

	t.sched.Add(desc)
	return desc, nil
}

// bootstrap is the process trampoline: it parks on the descriptor's own
// context until the scheduler hands it the baton for the first time,
// then runs entry(arg) and exits.
func (t *Table) bootstrap(d *Descriptor) {
	d.Context().Await()
	d.entry(d.Arg)
	t.exitDescriptor(d)
}

// Current returns the descriptor currently running (a thin pass-through
// to the scheduler's own accessor).
func (t *Table) Current() *Descriptor {
	return t.sched.Current()
}

// BlockCurrent marks the current descriptor BLOCKED and hands off to the
// scheduler's block-current operation. Calling it with no current
// process is a no-op.
func (t *Table) BlockCurrent() {
	cur := t.sched.Current()
	if cur == nil {
		return
	}
	cur.State = Blocked
	t.sched.BlockCurrent()
}

// Exit marks the current descriptor TERMINATED, releases its stack, and
// hands off to the scheduler's exit-current operation. It returns to its
// caller once control has been handed on; it does not end the calling
// goroutine itself (Kernel.Exit does that after this returns).
func (t *Table) Exit() {
	cur := t.sched.Current()
	if cur == nil {
		return
	}
	t.exitDescriptor(cur)
}

func (t *Table) exitDescriptor(d *Descriptor) {
	d.State = Terminated
	if d.stack != nil {
		t.alloc.Free(d.stack)
		d.stack = nil
	}
	t.sched.ExitCurrent()
}

// MarkReady sets a descriptor's state to READY directly, without
// touching the scheduler's queues. The core itself never calls this; it
// exists for external collaborators (the demo shell) that need to force
// a state transition outside the normal block/unblock path.
func (t *Table) MarkReady(d *Descriptor) {
	if d == nil {
		return
	}
	d.State = Ready
}

// Count returns the table's fixed slot capacity, for the "ps" listing.
func (t *Table) Count() int { return len(t.slots) }

// ByIndex returns the descriptor at the given slot, or nil if out of
// range. Indexing is by slot, not identifier.
func (t *Table) ByIndex(idx int) *Descriptor {
	if idx < 0 || idx >= len(t.slots) {
		return nil
	}
	return &t.slots[idx]
}
