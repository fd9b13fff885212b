// Package scheduler implements the cooperative, aging-aware round-robin
// scheduler: the ready queue, the blocked set, the current-process
// pointer, and every suspension point that hands the baton to another
// process.
package scheduler

import (
	"github.com/kacchi-os/kacchios/internal/constants"
	"github.com/kacchi-os/kacchios/internal/ctxswitch"
	"github.com/kacchi-os/kacchios/internal/logging"
	"github.com/kacchi-os/kacchios/internal/process"
)

// Observer receives scheduler events, for metrics collection by a
// wrapping package. Defined here, at the point of use, the same way
// internal/ipc defines its own narrower Observer.
type Observer interface {
	ObserveAgingBoost()
}

type noopObserver struct{}

func (noopObserver) ObserveAgingBoost() {}

// Scheduler owns the ready queue, the blocked set, and the current
// pointer. Only the goroutine currently holding the baton ever touches
// these fields, so none of it is mutex-guarded — see DESIGN.md.
type Scheduler struct {
	readyHead *process.Descriptor
	readyTail *process.Descriptor

	// blockedSet tracks every BLOCKED descriptor as an external
	// container rather than reusing Descriptor.Next, so a descriptor
	// blocked by IPC can sit in both the blocked set and an IPC waiter
	// list at once without the two links colliding. See DESIGN.md.
	blockedSet []*process.Descriptor

	current *process.Descriptor
	bootCtx *ctxswitch.Context

	quantum  uint32
	observer Observer
	logger   *logging.Logger
}

// New creates an empty scheduler with the default time quantum and a
// no-op observer.
func New() *Scheduler {
	return &Scheduler{
		bootCtx:  ctxswitch.New(),
		quantum:  constants.DefaultTimeQuantum,
		observer: noopObserver{},
	}
}

// SetObserver installs o as the scheduler's event observer, replacing the
// default no-op. A nil o resets it back to the no-op.
func (s *Scheduler) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	s.observer = o
}

// SetLogger installs l as the scheduler's diagnostic logger. A nil l
// (the default) silences logging entirely.
func (s *Scheduler) SetLogger(l *logging.Logger) {
	s.logger = l
}

// SetTimeQuantum sets the quantum recorded on subsequent insertions,
// clamped to a minimum of 1. It has no effect on an already-running
// process.
func (s *Scheduler) SetTimeQuantum(ticks uint32) {
	if ticks == 0 {
		ticks = 1
	}
	s.quantum = ticks
}

// Current returns the descriptor currently running, or nil if the
// scheduler has not started or has halted.
func (s *Scheduler) Current() *process.Descriptor {
	return s.current
}

func (s *Scheduler) popReady() *process.Descriptor {
	p := s.readyHead
	if p == nil {
		return nil
	}
	s.readyHead = p.Next
	if s.readyHead == nil {
		s.readyTail = nil
	}
	p.Next = nil
	return p
}

// placeReady performs the aging-aware ready-queue insertion: a descriptor
// whose aging counter has crossed AgingThreshold jumps to the head (and
// its counter resets); otherwise it goes to the tail. In every case state
// becomes READY and time slice is set to the current quantum.
func (s *Scheduler) placeReady(p *process.Descriptor) {
	p.State = process.Ready
	p.TimeSlice = s.quantum

	if s.readyHead == nil {
		s.readyHead = p
		s.readyTail = p
		p.Next = nil
		return
	}

	if p.Aging >= constants.AgingThreshold {
		p.Next = s.readyHead
		s.readyHead = p
		if s.readyTail == nil {
			s.readyTail = p
		}
		p.Aging = 0
		s.observer.ObserveAgingBoost()
		return
	}

	p.Next = nil
	s.readyTail.Next = p
	s.readyTail = p
}

// ageReady increments every ready-queue descriptor's aging counter,
// saturating at the maximum uint32. Descriptors in the blocked set do
// not age.
func (s *Scheduler) ageReady() {
	for p := s.readyHead; p != nil; p = p.Next {
		if p.Aging < ^uint32(0) {
			p.Aging++
		}
	}
}

// AgeReady runs the aging pass on demand; Yield already calls it before
// selecting the next process, so this is exposed for callers (tests,
// instrumentation) that want the pass without a full yield.
func (s *Scheduler) AgeReady() {
	s.ageReady()
}

// Add admits a new or returning descriptor: its aging counter resets to
// 0, then it is placed via the aging-aware insertion rule.
func (s *Scheduler) Add(p *process.Descriptor) {
	if p == nil {
		return
	}
	p.Aging = 0
	s.placeReady(p)
}

// Start pops the head of the ready queue, marks it CURRENT, and switches
// from the scheduler's reserved boot context into it. If the ready queue
// is empty it returns immediately without switching. Start blocks until
// the system halts (the ready queue runs dry and nothing remains to
// resume it) or, in tests, until a test explicitly switches back to the
// boot context.
func (s *Scheduler) Start() {
	next := s.popReady()
	if next == nil {
		return
	}
	s.current = next
	next.State = process.Current
	ctxswitch.Switch(s.bootCtx, next.Context())
}

// Yield performs a voluntary cooperative reschedule: it ages the ready
// queue, pops the new head, reinserts the outgoing current process (if
// it is still CURRENT) via the aging-aware rule, and switches. With an
// empty ready queue it is a no-op and the caller simply continues.
func (s *Scheduler) Yield() {
	prev := s.current
	s.ageReady()
	next := s.popReady()
	if next == nil {
		return
	}

	if prev != nil && prev.State == process.Current {
		prev.Aging = 0
		s.placeReady(prev)
	}

	next.State = process.Current
	s.current = next
	ctxswitch.Switch(prev.Context(), next.Context())
}

// BlockCurrent transitions the current descriptor into the blocked set
// (its state is assumed already BLOCKED, set by the caller — see
// process.Table.BlockCurrent), resets its aging counter, and switches to
// a newly popped ready descriptor. With no ready descriptor, it halts
// permanently by switching back to the boot context — see DESIGN.md for
// why that, rather than an infinite spin, is this module's halt.
func (s *Scheduler) BlockCurrent() {
	self := s.current
	if self == nil {
		return
	}
	self.Aging = 0
	s.blockedSet = append(s.blockedSet, self)

	next := s.popReady()
	if next == nil {
		// Deadlock: nothing left to run. Wake the boot context so its
		// caller (Start) can observe the halt, and park this goroutine
		// forever — it is never resumed.
		if s.logger != nil {
			s.logger.Warn("scheduler halting permanently", "blocked", len(s.blockedSet))
		}
		s.current = nil
		ctxswitch.Switch(self.Context(), s.bootCtx)
		return
	}

	next.State = process.Current
	s.current = next
	ctxswitch.Switch(self.Context(), next.Context())
}

// Unblock removes p from the blocked set and reinserts it into the ready
// queue via the aging-aware rule, resetting its aging counter. A no-op
// if p is nil or not BLOCKED. Never switches contexts itself; the newly
// ready process runs at the caller's next yield/block/exit.
func (s *Scheduler) Unblock(p *process.Descriptor) {
	if p == nil || p.State != process.Blocked {
		return
	}

	for i, b := range s.blockedSet {
		if b == p {
			s.blockedSet = append(s.blockedSet[:i], s.blockedSet[i+1:]...)
			break
		}
	}

	if s.logger != nil {
		s.logger.Debug("unblocking process", "pid", p.ID)
	}

	p.Aging = 0
	s.placeReady(p)
}

// ExitCurrent pops a new ready descriptor and switches to it, or halts
// permanently (switches to the boot context) if none exists. The
// outgoing context is never resumed.
func (s *Scheduler) ExitCurrent() {
	next := s.popReady()
	s.current = next
	if next == nil {
		// No survivors: wake the boot context so Start can return, and
		// let this goroutine fall off the end of its trampoline.
		ctxswitch.SwitchAway(s.bootCtx)
		return
	}
	next.State = process.Current
	ctxswitch.SwitchAway(next.Context())
}

// Halted reports whether the scheduler has run out of runnable processes
// (both current and ready queue empty) after Start has returned.
func (s *Scheduler) Halted() bool {
	return s.current == nil && s.readyHead == nil
}
