package kacchios

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotAndReset(t *testing.T) {
	m := NewMetrics()
	m.ContextSwitches.Add(3)
	m.Yields.Add(2)
	m.Blocks.Add(1)
	m.Unblocks.Add(1)
	m.Exits.Add(1)
	m.Creates.Add(2)
	m.AgingBoosts.Add(1)
	m.IPCSends.Add(4)
	m.IPCRecvs.Add(4)
	m.IPCHandoffs.Add(1)
	m.IPCBlockedSends.Add(1)
	m.IPCBlockedRecvs.Add(1)

	snap := m.Snapshot()
	require.Equal(t, MetricsSnapshot{
		ContextSwitches: 3,
		Yields:          2,
		Blocks:          1,
		Unblocks:        1,
		Exits:           1,
		Creates:         2,
		AgingBoosts:     1,
		IPCSends:        4,
		IPCRecvs:        4,
		IPCHandoffs:     1,
		IPCBlockedSends: 1,
		IPCBlockedRecvs: 1,
	}, snap)

	m.Reset()
	require.Equal(t, MetricsSnapshot{}, m.Snapshot())
}

func TestMetricsObserverContextSwitchBookkeeping(t *testing.T) {
	m := NewMetrics()
	o := NewMetricsObserver(m)

	o.ObserveContextSwitch()
	o.ObserveYield()
	o.ObserveBlock()
	o.ObserveExit()

	snap := m.Snapshot()
	require.EqualValues(t, 4, snap.ContextSwitches, "each of these events is itself a hand-off")
	require.EqualValues(t, 1, snap.Yields)
	require.EqualValues(t, 1, snap.Blocks)
	require.EqualValues(t, 1, snap.Exits)
}

func TestMetricsObserverCreateAndUnblockTakeNoSwitch(t *testing.T) {
	m := NewMetrics()
	o := NewMetricsObserver(m)

	o.ObserveCreate(7)
	o.ObserveUnblock(7)

	snap := m.Snapshot()
	require.EqualValues(t, 1, snap.Creates)
	require.EqualValues(t, 1, snap.Unblocks)
	require.EqualValues(t, 0, snap.ContextSwitches, "admitting or waking a process doesn't itself switch the baton")
}

func TestMetricsObserverAgingBoost(t *testing.T) {
	m := NewMetrics()
	o := NewMetricsObserver(m)
	o.ObserveAgingBoost()
	o.ObserveAgingBoost()
	require.EqualValues(t, 2, m.Snapshot().AgingBoosts)
}

func TestMetricsObserverIPC(t *testing.T) {
	m := NewMetrics()
	o := NewMetricsObserver(m)

	o.ObserveSend(false)
	o.ObserveSend(true)
	o.ObserveRecv(false)
	o.ObserveRecv(true)
	o.ObserveHandoff()

	snap := m.Snapshot()
	require.EqualValues(t, 2, snap.IPCSends)
	require.EqualValues(t, 1, snap.IPCBlockedSends)
	require.EqualValues(t, 2, snap.IPCRecvs)
	require.EqualValues(t, 1, snap.IPCBlockedRecvs)
	require.EqualValues(t, 1, snap.IPCHandoffs)
}

func TestNoOpObserverDiscardsEverything(t *testing.T) {
	var o Observer = NoOpObserver{}
	// Must not panic; there is nothing to assert on since NoOpObserver
	// keeps no state.
	o.ObserveContextSwitch()
	o.ObserveYield()
	o.ObserveBlock()
	o.ObserveUnblock(1)
	o.ObserveExit()
	o.ObserveCreate(1)
	o.ObserveAgingBoost()
	o.ObserveSend(true)
	o.ObserveRecv(true)
	o.ObserveHandoff()
}
