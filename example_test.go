package multiarena_test

import (
	"fmt"
	"unsafe"

	"github.com/pavanmanishd/multiarena"
)

// Example demonstrates the basic allocate/deallocate cycle against an
// unsynchronized, runtime-sized pool.
func Example() {
	a, err := multiarena.NewAllocator(4, 1024)
	if err != nil {
		panic(err)
	}
	defer a.Close()

	addr, err := a.Allocate(32, 8)
	if err != nil {
		panic(err)
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), 32)
	buf[0] = 0xFF

	a.Deallocate(addr, 32, 8)
	fmt.Println(a.NumAllocations())
	// Output: 0
}

// ExampleFixed shows the compile-time-fixed-capacity variant, which
// embeds its backing storage inline and never consults a byte source.
func ExampleFixed() {
	// The trailing 64 bytes are reserved slack for cache-line alignment;
	// the usable capacity is 4*1024 bytes, split into four 1024-byte
	// arenas.
	type Backing [4*1024 + 64]byte
	f, err := multiarena.NewFixed[Backing](1024)
	if err != nil {
		panic(err)
	}
	fmt.Println(f.NumArenas())
	// Output: 4
}

// ExampleSyncAllocator shows the synchronized variant used across
// multiple goroutines; any goroutine may free memory another allocated.
func ExampleSyncAllocator() {
	a, err := multiarena.NewSyncAllocator(8, 4096)
	if err != nil {
		panic(err)
	}
	defer a.Close()

	addr, err := a.Allocate(64, 8)
	if err != nil {
		panic(err)
	}

	done := make(chan struct{})
	go func() {
		a.Deallocate(addr, 64, 8)
		close(done)
	}()
	<-done

	fmt.Println(a.NumAllocations())
	// Output: 0
}

// ExampleStatsAllocator wraps a pool with capacity-planning statistics:
// a live address->size map, a block-size histogram, and percentile/mean
// over the currently-live allocations.
func ExampleStatsAllocator() {
	base, err := multiarena.NewAllocator(16, 256)
	if err != nil {
		panic(err)
	}
	defer base.Close()

	s := multiarena.NewStatsAllocator(base)
	for _, n := range []uintptr{8, 16, 16, 32} {
		if _, err := s.Allocate(n, 8); err != nil {
			panic(err)
		}
	}

	fmt.Println(s.NumAllocations(), s.BytesAllocated())
	// Output: 4 72
}
