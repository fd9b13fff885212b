package scheduler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kacchi-os/kacchios/internal/constants"
	"github.com/kacchi-os/kacchios/internal/memalloc"
	"github.com/kacchi-os/kacchios/internal/process"
)

// newFixture builds a scheduler and process table wired together, the way
// Kernel.Boot does, so scheduler behavior can be exercised through real
// process lifecycles rather than hand-built descriptors.
func newFixture(t *testing.T) (*Scheduler, *process.Table) {
	t.Helper()
	sched := New()
	alloc := memalloc.New(64 * 1024)
	table := process.NewTable(8, alloc, sched)
	return sched, table
}

func TestRoundRobinFIFOOrder(t *testing.T) {
	sched, table := newFixture(t)

	var mu sync.Mutex
	var order []string
	recordingYield := func(name string, n int) process.Entry {
		return func(any) {
			for i := 0; i < n; i++ {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				sched.Yield()
			}
		}
	}

	_, err := table.Create(recordingYield("p1", 3), nil, 0)
	require.NoError(t, err)
	_, err = table.Create(recordingYield("p2", 3), nil, 0)
	require.NoError(t, err)
	_, err = table.Create(recordingYield("p3", 3), nil, 0)
	require.NoError(t, err)

	sched.Start()

	require.True(t, sched.Halted())
	require.Equal(t, []string{
		"p1", "p2", "p3",
		"p1", "p2", "p3",
		"p1", "p2", "p3",
	}, order)
}

// TestPlaceReadyAgingBoost exercises the aging-aware insertion rule
// directly: a descriptor whose Aging has reached AgingThreshold jumps to
// the head of the ready queue on its next placement, and its counter
// resets. Built white-box (this file is package scheduler) since driving
// AgingThreshold real yields through goroutines to provoke the same
// boost would make the expected interleaving far harder to state than the
// rule it's meant to verify.
func TestPlaceReadyAgingBoost(t *testing.T) {
	sched := New()

	first := &process.Descriptor{ID: 1}
	sched.placeReady(first)

	second := &process.Descriptor{ID: 2}
	sched.placeReady(second)

	aged := &process.Descriptor{ID: 3, Aging: constants.AgingThreshold}
	sched.placeReady(aged)

	require.Same(t, aged, sched.readyHead, "a descriptor at the aging threshold must jump to the head")
	require.Equal(t, uint32(0), aged.Aging, "placement at the head resets the aging counter")

	require.Same(t, aged, sched.popReady())
	require.Same(t, first, sched.popReady())
	require.Same(t, second, sched.popReady())
	require.Nil(t, sched.popReady())
}

func TestAgeReadyIncrementsReadyQueueOnly(t *testing.T) {
	sched := New()

	waiting := &process.Descriptor{ID: 1}
	sched.placeReady(waiting)

	sched.ageReady()
	sched.ageReady()
	require.Equal(t, uint32(2), waiting.Aging)

	// A descriptor that was never placed in the ready queue (e.g. BLOCKED)
	// is untouched by ageReady.
	blocked := &process.Descriptor{ID: 2}
	sched.ageReady()
	require.Equal(t, uint32(0), blocked.Aging)
}

func TestAgingSaturatesAtMaxUint32(t *testing.T) {
	sched := New()
	p := &process.Descriptor{ID: 1, Aging: ^uint32(0)}
	sched.placeReady(p)
	// placeReady resets Aging only via the boost branch (which also needs
	// a populated queue); here the queue was empty, so Aging survives as
	// set, letting ageReady's saturation check run against the max value.
	sched.ageReady()
	require.Equal(t, ^uint32(0), p.Aging, "aging must saturate instead of wrapping to 0")
}

func TestBlockAndUnblock(t *testing.T) {
	sched, table := newFixture(t)

	var mu sync.Mutex
	var order []string

	_, err := table.Create(func(any) {
		mu.Lock()
		order = append(order, "blocker-before")
		mu.Unlock()
		table.BlockCurrent()
		mu.Lock()
		order = append(order, "blocker-after")
		mu.Unlock()
	}, nil, 0)
	require.NoError(t, err)

	var blocked *process.Descriptor
	_, err = table.Create(func(any) {
		mu.Lock()
		order = append(order, "unblocker")
		blocked = table.ByIndex(0)
		mu.Unlock()
		sched.Unblock(blocked)
	}, nil, 0)
	require.NoError(t, err)

	sched.Start()

	require.True(t, sched.Halted())
	require.Equal(t, []string{"blocker-before", "unblocker", "blocker-after"}, order)
}

func TestBlockWithNoReadyProcessHaltsPermanently(t *testing.T) {
	sched, table := newFixture(t)

	ran := false
	_, err := table.Create(func(any) {
		ran = true
		table.BlockCurrent()
		t.Error("blocked process resumed after a permanent halt")
	}, nil, 0)
	require.NoError(t, err)

	sched.Start()

	require.True(t, ran)
	require.True(t, sched.Halted())
}
