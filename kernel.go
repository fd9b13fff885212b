// Package kacchios provides the public API for the cooperative kernel
// core: process table, scheduler, and IPC queues, wired together by Boot.
package kacchios

import (
	"context"
	"fmt"
	"runtime"

	"github.com/kacchi-os/kacchios/internal/constants"
	"github.com/kacchi-os/kacchios/internal/ipc"
	"github.com/kacchi-os/kacchios/internal/logging"
	"github.com/kacchi-os/kacchios/internal/memalloc"
	"github.com/kacchi-os/kacchios/internal/process"
	"github.com/kacchi-os/kacchios/internal/scheduler"
)

// Params configures a Kernel created by Boot.
type Params struct {
	// TableCapacity is the fixed number of process-descriptor slots.
	TableCapacity int

	// StackSize is the default per-process stack size used when Spawn is
	// given a zero stackSize.
	StackSize uint32

	// HeapSize is the size of the backing arena stacks are carved out of.
	HeapSize uint32

	// TimeQuantum is the scheduler's initial time quantum.
	TimeQuantum uint32
}

// DefaultParams returns the reference configuration: 8 process slots,
// 4KB stacks, a 256KB heap, and a quantum of 1.
func DefaultParams() Params {
	return Params{
		TableCapacity: constants.DefaultTableCapacity,
		StackSize:     constants.DefaultStackSize,
		HeapSize:      constants.HeapSize,
		TimeQuantum:   constants.DefaultTimeQuantum,
	}
}

// Options carries optional collaborators for Boot.
type Options struct {
	// Context, if set, is checked once before Boot constructs anything; a
	// cancelled context fails Boot immediately. Present for the same
	// reason CreateAndServe accepts one, even though the kernel's own run
	// loop is cooperative and cannot itself be preempted mid-quantum.
	Context context.Context

	// Logger receives lifecycle messages. Defaults to a logger that writes
	// only Error-level messages to stderr.
	Logger *logging.Logger

	// Observer receives scheduler/IPC events for metrics collection.
	// Defaults to NewMetricsObserver wrapping a fresh Metrics.
	Observer Observer
}

// Kernel wires a process.Table, a scheduler.Scheduler, and a
// memalloc.Allocator into a runnable cooperative system.
type Kernel struct {
	table    *process.Table
	sched    *scheduler.Scheduler
	alloc    *memalloc.Allocator
	metrics  *Metrics
	observer Observer
	logger   *logging.Logger
	params   Params
}

// Boot constructs a Kernel from params: an allocator over a fresh heap, a
// scheduler, and a process table wired to both, ready for Spawn calls
// before the first Run.
func Boot(params Params, options *Options) (*Kernel, error) {
	if options == nil {
		options = &Options{}
	}
	if options.Context != nil {
		if err := options.Context.Err(); err != nil {
			return nil, WrapError("Boot", err)
		}
	}

	if params.TableCapacity <= 0 {
		params.TableCapacity = constants.DefaultTableCapacity
	}
	if params.StackSize == 0 {
		params.StackSize = constants.DefaultStackSize
	}
	if params.HeapSize == 0 {
		params.HeapSize = constants.HeapSize
	}
	if params.TimeQuantum == 0 {
		params.TimeQuantum = constants.DefaultTimeQuantum
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.NewLogger(&logging.Config{Level: logging.LevelError})
	}

	metrics := NewMetrics()
	observer := options.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	alloc := memalloc.New(params.HeapSize)
	sched := scheduler.New()
	sched.SetTimeQuantum(params.TimeQuantum)
	sched.SetObserver(observer)
	sched.SetLogger(logger.WithPrefix("scheduler"))
	table := process.NewTable(params.TableCapacity, alloc, sched)

	logger.Info("kernel booted", "slots", params.TableCapacity, "heap", params.HeapSize)

	return &Kernel{
		table:    table,
		sched:    sched,
		alloc:    alloc,
		metrics:  metrics,
		observer: observer,
		logger:   logger,
		params:   params,
	}, nil
}

// Spawn creates a process running entry(arg), admitting it to the ready
// queue. A zero stackSize uses the kernel's configured default.
func (k *Kernel) Spawn(entry process.Entry, arg any, stackSize uint32) (*process.Descriptor, error) {
	if stackSize == 0 {
		stackSize = k.params.StackSize
	}
	desc, err := k.table.Create(entry, arg, stackSize)
	if err != nil {
		return nil, WrapError("Spawn", err)
	}
	k.observer.ObserveCreate(desc.ID)
	return desc, nil
}

// NewQueue creates an IPC queue wired to this kernel's process table and
// scheduler, ready for Send/Recv calls from spawned processes. Queue
// activity is reported to the kernel's Observer.
func (k *Kernel) NewQueue() *ipc.Queue {
	q := ipc.NewQueue(k.table, &observingUnblocker{sched: k.sched, observer: k.observer}, k.observer)
	q.SetLogger(k.logger.WithPrefix("ipc"))
	return q
}

// observingUnblocker adapts the scheduler's Unblock into ipc.Unblocker
// while reporting the event to the kernel's observer, so IPC-driven wakeups
// show up in metrics the same as scheduler-driven ones.
type observingUnblocker struct {
	sched    *scheduler.Scheduler
	observer Observer
}

func (u *observingUnblocker) Unblock(d *process.Descriptor) {
	u.sched.Unblock(d)
	u.observer.ObserveUnblock(d.ID)
}

// Run starts the scheduler: it pops the first ready process and runs until
// every process has exited or the system has deadlocked. Run returns once
// the boot context regains control, i.e. once the whole system has halted.
func (k *Kernel) Run() {
	k.observer.ObserveContextSwitch()
	k.sched.Start()
	k.logger.Info("kernel halted")
}

// Yield performs a voluntary cooperative reschedule of the calling
// process.
func (k *Kernel) Yield() {
	k.observer.ObserveYield()
	k.sched.Yield()
}

// Block marks the calling process BLOCKED and hands off to another
// runnable process. IPC queues block their callers through the process
// table directly, so their blocks do not pass through here and are not
// counted in Metrics.Blocks.
func (k *Kernel) Block() {
	k.observer.ObserveBlock()
	k.table.BlockCurrent()
}

// Exit terminates the calling process, reclaiming its stack and process
// slot. Never returns.
func (k *Kernel) Exit() {
	k.observer.ObserveExit()
	cur := k.table.Current()
	k.table.Exit()
	if cur != nil {
		runtime.Goexit()
	}
}

// Unblock wakes a blocked descriptor directly, for collaborators (like the
// demo shell) that need to resume a process without going through IPC.
func (k *Kernel) Unblock(d *process.Descriptor) {
	k.sched.Unblock(d)
	k.observer.ObserveUnblock(d.ID)
}

// Current returns the descriptor currently running, or nil.
func (k *Kernel) Current() *process.Descriptor {
	return k.table.Current()
}

// Halted reports whether the kernel has run out of runnable processes.
func (k *Kernel) Halted() bool {
	return k.sched.Halted()
}

// Table exposes the process table directly, for inspection ("ps").
func (k *Kernel) Table() *process.Table {
	return k.table
}

// Allocator exposes the heap allocator directly, for inspection ("mem").
func (k *Kernel) Allocator() *memalloc.Allocator {
	return k.alloc
}

// Metrics returns the kernel's built-in metrics, populated only when Boot
// was not given a custom Observer.
func (k *Kernel) Metrics() *Metrics {
	return k.metrics
}

// String renders a one-line summary, for the shell's banner and logs.
func (k *Kernel) String() string {
	total, largest := k.alloc.Stats()
	return fmt.Sprintf("kacchios: %d/%d slots, heap %d/%d free (largest %d)",
		k.table.Count(), k.params.TableCapacity, total, k.params.HeapSize, largest)
}
