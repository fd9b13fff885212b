package memalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocBasic(t *testing.T) {
	a := New(1024)

	r, err := a.Alloc(100)
	require.NoError(t, err)
	require.Len(t, r, 112) // aligned up to 16

	total, largest := a.Stats()
	require.Equal(t, uint32(1024-112), total)
	require.Equal(t, uint32(1024-112), largest)
}

func TestAllocZeroSize(t *testing.T) {
	a := New(1024)
	_, err := a.Alloc(0)
	require.ErrorIs(t, err, ErrZeroSize)
}

func TestAllocOutOfMemory(t *testing.T) {
	a := New(64)
	_, err := a.Alloc(128)
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestFreeCoalesces(t *testing.T) {
	a := New(256)

	r1, err := a.Alloc(64)
	require.NoError(t, err)
	r2, err := a.Alloc(64)
	require.NoError(t, err)
	r3, err := a.Alloc(64)
	require.NoError(t, err)

	a.Free(r1)
	a.Free(r3)
	a.Free(r2)

	total, largest := a.Stats()
	require.Equal(t, uint32(256), total)
	require.Equal(t, uint32(256), largest, "freeing all three blocks regardless of order must coalesce into one")
}

func TestAllocFirstFit(t *testing.T) {
	a := New(256)

	r1, _ := a.Alloc(64)
	r2, _ := a.Alloc(64)
	_, _ = a.Alloc(64)

	a.Free(r1)
	a.Free(r2)

	// First-fit should reuse the earlier, now-coalesced 128-byte hole
	// rather than carving from the tail.
	r4, err := a.Alloc(100)
	require.NoError(t, err)
	require.Len(t, r4, 112)

	total, _ := a.Stats()
	require.Equal(t, uint32(256-64-112), total)
}

func TestCapacity(t *testing.T) {
	a := New(4096)
	require.Equal(t, uint32(4096), a.Capacity())
}
