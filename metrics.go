package kacchios

import "sync/atomic"

// Metrics tracks scheduling and IPC activity for a Kernel. Every field is
// an atomic counter; Metrics itself is safe to read concurrently even
// though only one goroutine ever holds the scheduler baton at a time.
type Metrics struct {
	ContextSwitches atomic.Uint64 // Total baton hand-offs (Start + every Yield/Block/Exit resumption)
	Yields          atomic.Uint64 // Voluntary reschedules
	Blocks          atomic.Uint64 // Kernel.Block calls (IPC-driven blocks are not counted)
	Unblocks        atomic.Uint64 // Times a blocked process was woken
	Exits           atomic.Uint64 // Process exits
	Creates         atomic.Uint64 // Process creations

	AgingBoosts atomic.Uint64 // Ready-queue insertions that hit the aging threshold

	IPCSends        atomic.Uint64 // Queue.Send calls
	IPCRecvs        atomic.Uint64 // Queue.Recv calls
	IPCHandoffs     atomic.Uint64 // Sends delivered via direct handoff (no buffer write)
	IPCBlockedSends atomic.Uint64 // Sends that blocked on a full buffer
	IPCBlockedRecvs atomic.Uint64 // Recvs that blocked on an empty buffer
}

// NewMetrics returns a zeroed Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to hold onto
// after the kernel continues running.
type MetricsSnapshot struct {
	ContextSwitches uint64
	Yields          uint64
	Blocks          uint64
	Unblocks        uint64
	Exits           uint64
	Creates         uint64
	AgingBoosts     uint64
	IPCSends        uint64
	IPCRecvs        uint64
	IPCHandoffs     uint64
	IPCBlockedSends uint64
	IPCBlockedRecvs uint64
}

// Snapshot copies every counter's current value.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ContextSwitches: m.ContextSwitches.Load(),
		Yields:          m.Yields.Load(),
		Blocks:          m.Blocks.Load(),
		Unblocks:        m.Unblocks.Load(),
		Exits:           m.Exits.Load(),
		Creates:         m.Creates.Load(),
		AgingBoosts:     m.AgingBoosts.Load(),
		IPCSends:        m.IPCSends.Load(),
		IPCRecvs:        m.IPCRecvs.Load(),
		IPCHandoffs:     m.IPCHandoffs.Load(),
		IPCBlockedSends: m.IPCBlockedSends.Load(),
		IPCBlockedRecvs: m.IPCBlockedRecvs.Load(),
	}
}

// Reset zeroes every counter, for reuse across test cases.
func (m *Metrics) Reset() {
	m.ContextSwitches.Store(0)
	m.Yields.Store(0)
	m.Blocks.Store(0)
	m.Unblocks.Store(0)
	m.Exits.Store(0)
	m.Creates.Store(0)
	m.AgingBoosts.Store(0)
	m.IPCSends.Store(0)
	m.IPCRecvs.Store(0)
	m.IPCHandoffs.Store(0)
	m.IPCBlockedSends.Store(0)
	m.IPCBlockedRecvs.Store(0)
}

// Observer lets callers plug in their own metrics collection in place of
// the built-in Metrics. Its method set is a superset of ipc.Observer, so
// a Kernel-bound Queue can report directly into whatever Observer the
// Kernel was booted with.
type Observer interface {
	ObserveContextSwitch()
	ObserveYield()
	ObserveBlock()
	ObserveUnblock(processID uint64)
	ObserveExit()
	ObserveCreate(processID uint64)
	ObserveAgingBoost()

	ObserveSend(blocked bool)
	ObserveRecv(blocked bool)
	ObserveHandoff()
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) ObserveContextSwitch() {}
func (NoOpObserver) ObserveYield()         {}
func (NoOpObserver) ObserveBlock()         {}
func (NoOpObserver) ObserveUnblock(uint64) {}
func (NoOpObserver) ObserveExit()          {}
func (NoOpObserver) ObserveCreate(uint64)  {}
func (NoOpObserver) ObserveAgingBoost()    {}
func (NoOpObserver) ObserveSend(bool)      {}
func (NoOpObserver) ObserveRecv(bool)      {}
func (NoOpObserver) ObserveHandoff()       {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveContextSwitch() {
	o.metrics.ContextSwitches.Add(1)
}

func (o *MetricsObserver) ObserveYield() {
	o.metrics.Yields.Add(1)
	o.metrics.ContextSwitches.Add(1)
}

func (o *MetricsObserver) ObserveBlock() {
	o.metrics.Blocks.Add(1)
	o.metrics.ContextSwitches.Add(1)
}

func (o *MetricsObserver) ObserveUnblock(uint64) {
	o.metrics.Unblocks.Add(1)
}

func (o *MetricsObserver) ObserveExit() {
	o.metrics.Exits.Add(1)
	o.metrics.ContextSwitches.Add(1)
}

func (o *MetricsObserver) ObserveCreate(uint64) {
	o.metrics.Creates.Add(1)
}

func (o *MetricsObserver) ObserveAgingBoost() {
	o.metrics.AgingBoosts.Add(1)
}

func (o *MetricsObserver) ObserveSend(blocked bool) {
	o.metrics.IPCSends.Add(1)
	if blocked {
		o.metrics.IPCBlockedSends.Add(1)
	}
}

func (o *MetricsObserver) ObserveRecv(blocked bool) {
	o.metrics.IPCRecvs.Add(1)
	if blocked {
		o.metrics.IPCBlockedRecvs.Add(1)
	}
}

func (o *MetricsObserver) ObserveHandoff() {
	o.metrics.IPCHandoffs.Add(1)
}

// Compile-time interface checks.
var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = NoOpObserver{}
)
