package multiarena

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// S4: a fixed distribution of double-sized blocks, checked against the
// derived histogram/percentile/mean operations.
func TestScenarioS4Statistics(t *testing.T) {
	base := mustAllocator(t, 16, 256)
	s := NewStatsAllocator(base)

	counts := []int{1, 2, 2, 4, 8, 8, 16, 20, 20, 20, 20, 30}
	const doubleSize = 8
	for _, n := range counts {
		addr, err := s.Allocate(uintptr(n)*doubleSize, 8)
		require.NoError(t, err)
		require.NotZero(t, addr)
	}

	require.EqualValues(t, len(counts), s.NumAllocations())

	hist := s.Histogram()
	want := map[uintptr]int{8: 1, 16: 2, 32: 1, 64: 2, 128: 1, 160: 4, 240: 1}
	require.Equal(t, want, hist)

	var sumCount int
	var sumBytes uintptr
	for size, n := range hist {
		sumCount += n
		sumBytes += size * uintptr(n)
	}
	require.EqualValues(t, s.NumAllocations(), sumCount)
	require.EqualValues(t, s.BytesAllocated(), sumBytes)

	median := s.Percentile(0.5)
	require.NotZero(t, median)

	var total float64
	for _, n := range counts {
		total += float64(n) * doubleSize
	}
	require.InDelta(t, total/float64(len(counts)), s.Mean(), 1e-9)
}

func TestStatsPercentileClamping(t *testing.T) {
	base := mustAllocator(t, 4, 256)
	s := NewStatsAllocator(base)
	require.Zero(t, s.Percentile(0.5)) // no live allocations

	for _, n := range []int{10, 20, 30, 40} {
		_, err := s.Allocate(uintptr(n), 8)
		require.NoError(t, err)
	}
	require.Zero(t, s.Percentile(0)) // p=0 is a literal 0, not the minimum block size
	require.EqualValues(t, 40, s.Percentile(1))
	require.Zero(t, s.Percentile(-1))           // clamped to 0
	require.EqualValues(t, 40, s.Percentile(2)) // clamped to 1
}

func TestStatsDoubleFreeDetection(t *testing.T) {
	base := mustAllocator(t, 4, 256)
	s := NewStatsAllocator(base)
	addr, err := s.Allocate(16, 8)
	require.NoError(t, err)
	s.Deallocate(addr, 16, 8)

	require.Panics(t, func() { s.Deallocate(addr, 16, 8) })
}

func TestStatsMaxima(t *testing.T) {
	base := mustAllocator(t, 4, 256)
	s := NewStatsAllocator(base)

	var addrs []Address
	for i := 0; i < 4; i++ {
		addr, err := s.Allocate(256, 8)
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}
	require.EqualValues(t, 4, s.MaxBusyArenas())
	require.EqualValues(t, 4, s.MaxNumAllocations())

	for _, addr := range addrs {
		s.Deallocate(addr, 256, 8)
	}
	// Maxima are monotonic: they must not decrease after draining.
	require.EqualValues(t, 4, s.MaxBusyArenas())
	require.EqualValues(t, 4, s.MaxNumAllocations())
}

func TestStatsAddressMapOrdering(t *testing.T) {
	base := mustAllocator(t, 4, 1024)
	s := NewStatsAllocator(base)
	for i := 0; i < 10; i++ {
		_, err := s.Allocate(16, 8)
		require.NoError(t, err)
	}
	m := s.AddressMap()
	require.Len(t, m, 10)
	for i := 1; i < len(m); i++ {
		require.Less(t, m[i-1].Address, m[i].Address)
	}
}

// TestStatsWithMapSource exercises the 100%-heap-free configuration:
// both the pool backing and the statistics bookkeeping are routed
// through multiarena allocators.
func TestStatsWithMapSource(t *testing.T) {
	mapPool := mustAllocator(t, 4, 4096)
	base := mustAllocator(t, 8, 256)
	s := NewStatsAllocator(base, WithMapSource(mapPool))

	var addrs []Address
	for i := 0; i < 50; i++ {
		addr, err := s.Allocate(16, 8)
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}
	require.EqualValues(t, 50, s.NumAllocations())
	for _, addr := range addrs {
		s.Deallocate(addr, 16, 8)
	}
	require.Zero(t, s.NumAllocations())
}

func TestStatsPrometheusCollector(t *testing.T) {
	base := mustAllocator(t, 4, 256)
	s := NewStatsAllocator(base)
	reg := prometheus.NewRegistry()
	require.NoError(t, s.RegisterMetrics(reg))

	addr, err := s.Allocate(32, 8)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	found := map[string]bool{}
	for _, fam := range families {
		found[fam.GetName()] = true
		if fam.GetName() == "multiarena_num_allocations" {
			require.EqualValues(t, 1, fam.GetMetric()[0].GetGauge().GetValue())
		}
	}
	require.True(t, found["multiarena_bytes_allocated"])
	require.True(t, found["multiarena_block_size_bytes"])

	s.Deallocate(addr, 32, 8)
}
