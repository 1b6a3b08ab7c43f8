package multiarena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddrTablePutTakeRoundTrip(t *testing.T) {
	src := mustAllocator(t, 4, 4096)
	tbl := newAddrTable(src)

	require.NoError(t, tbl.Put(Address(0x1000), 16))
	require.NoError(t, tbl.Put(Address(0x2000), 32))
	require.Equal(t, 2, tbl.Len())

	size, ok := tbl.Take(Address(0x1000))
	require.True(t, ok)
	require.EqualValues(t, 16, size)
	require.Equal(t, 1, tbl.Len())

	_, ok = tbl.Take(Address(0x1000))
	require.False(t, ok, "second Take of the same address must report ok=false")
}

func TestAddrTableTakeUnknownAddress(t *testing.T) {
	src := mustAllocator(t, 4, 4096)
	tbl := newAddrTable(src)
	require.NoError(t, tbl.Put(Address(0x1000), 16))

	_, ok := tbl.Take(Address(0xDEAD))
	require.False(t, ok)
}

func TestAddrTableGrowsAndRetainsEntries(t *testing.T) {
	// The table's backing slab is one contiguous allocation, so the
	// arena size must accommodate the largest capacity this test grows
	// into (a handful of doublings past 200 entries).
	src := mustAllocator(t, 4, 16384)
	tbl := newAddrTable(src)

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, tbl.Put(Address(uintptr(i+1)<<8), uintptr(i)))
	}
	require.Equal(t, n, tbl.Len())
	require.GreaterOrEqual(t, tbl.cap(), n*4/3)

	for i := 0; i < n; i++ {
		size, ok := tbl.Take(Address(uintptr(i+1) << 8))
		require.True(t, ok, "entry %d lost across growth", i)
		require.EqualValues(t, i, size)
	}
	require.Zero(t, tbl.Len())
}

func TestAddrTableEachOrdersByAddress(t *testing.T) {
	src := mustAllocator(t, 4, 4096)
	tbl := newAddrTable(src)

	addrs := []Address{0x3000, 0x1000, 0x2000}
	for _, a := range addrs {
		require.NoError(t, tbl.Put(a, 8))
	}

	var seen []Address
	tbl.Each(func(addr Address, size uintptr) {
		seen = append(seen, addr)
		require.EqualValues(t, 8, size)
	})
	require.Equal(t, []Address{0x1000, 0x2000, 0x3000}, seen)
}

func TestAddrTableReclaimsTombstonesOnGrowth(t *testing.T) {
	src := mustAllocator(t, 8, 4096)
	tbl := newAddrTable(src)

	for round := 0; round < 50; round++ {
		addr := Address(uintptr(round+1) << 8)
		require.NoError(t, tbl.Put(addr, 4))
		_, ok := tbl.Take(addr)
		require.True(t, ok)
	}
	require.Zero(t, tbl.Len())

	require.NoError(t, tbl.Put(Address(0x9999), 64))
	size, ok := tbl.Take(Address(0x9999))
	require.True(t, ok)
	require.EqualValues(t, 64, size)
}

func TestAddrTableRelease(t *testing.T) {
	src := mustAllocator(t, 4, 4096)
	tbl := newAddrTable(src)
	require.NoError(t, tbl.Put(Address(0x1000), 16))
	tbl.Release()
	require.Zero(t, tbl.slabSize)
}
