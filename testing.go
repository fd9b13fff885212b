package kacchios

import (
	"sync"

	"github.com/kacchi-os/kacchios/internal/process"
)

// RecordingEntry wraps a process entry and appends its name to a shared
// log on every invocation, for tests asserting scheduling order without
// giving each process real work to do.
type RecordingEntry struct {
	mu    sync.Mutex
	name  string
	log   *[]string
	calls int
}

// NewRecordingEntry creates a RecordingEntry named name, appending to log
// (which may be shared across several RecordingEntry values to capture a
// single interleaved order). log may be nil if only the call count matters.
func NewRecordingEntry(name string, log *[]string) *RecordingEntry {
	return &RecordingEntry{name: name, log: log}
}

// Entry returns the process.Entry to pass to Kernel.Spawn.
func (r *RecordingEntry) Entry() process.Entry {
	return func(any) {
		r.mu.Lock()
		r.calls++
		if r.log != nil {
			*r.log = append(*r.log, r.name)
		}
		r.mu.Unlock()
	}
}

// Calls reports how many times the entry has run.
func (r *RecordingEntry) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// YieldLoop returns a process.Entry that appends name to log and calls
// k.Yield() n times before returning (causing the process to exit). It
// exercises the scheduler's round-robin and aging behavior without any
// other side effects, for scheduler tests built on a real Kernel.
func YieldLoop(k *Kernel, name string, n int, log *[]string) process.Entry {
	return func(any) {
		for i := 0; i < n; i++ {
			if log != nil {
				*log = append(*log, name)
			}
			k.Yield()
		}
	}
}

// BlockingConsumer returns a process.Entry that calls q.Recv() n times,
// appending each received value to results under mu. Each Recv blocks
// only when the queue is empty at the time of the call; values already
// buffered are read without blocking.
func BlockingConsumer(q interface {
	Recv() (uint32, error)
}, n int, results *[]uint32, mu *sync.Mutex) process.Entry {
	return func(any) {
		for i := 0; i < n; i++ {
			v, err := q.Recv()
			if err != nil {
				return
			}
			mu.Lock()
			*results = append(*results, v)
			mu.Unlock()
		}
	}
}
