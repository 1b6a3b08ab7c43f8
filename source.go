package multiarena

import (
	"os"
	"unsafe"

	"braces.dev/errtrace"
	mmap "github.com/edsrzf/mmap-go"
)

// cacheLine is the assumed platform cache-line size used to align
// every pool's base address, inline-backed or not.
const cacheLine = 64

// alignedInlineBuffer carves the cache-line-aligned sub-slice out of an
// inline backing value, the Fixed[B]/FixedSync[B] analogue of
// HeapSource.Get's over-allocate-and-round trick. Since ptr's address is
// whatever the runtime happened to place the value at, the first
// cache-line boundary at or after ptr can land anywhere within the first
// cacheLine bytes of ptr; alignedInlineBuffer always reserves a full
// cacheLine of slack and returns exactly total-cacheLine bytes starting
// at that boundary, so the length is fixed at compile time and doesn't
// vary with where the runtime happens to place the value. Callers
// declaring B should size it at N*S + cacheLine for exactly this reason.
// Returns nil if total <= cacheLine.
func alignedInlineBuffer(ptr unsafe.Pointer, total uintptr) []byte {
	if total <= cacheLine {
		return nil
	}
	base := uintptr(ptr)
	off := (cacheLine - base%cacheLine) % cacheLine
	return unsafe.Slice((*byte)(unsafe.Add(ptr, off)), total-cacheLine)
}

// ByteSource is the upstream collaborator consulted once at construction
// to obtain a pool's backing buffer, and once at destruction to release
// it. Allocate/Deallocate never touch it. HeapSource, MmapSource and
// FileMmapSource below are the sources this module ships out of the box.
type ByteSource interface {
	// Get returns a buffer of at least n bytes, cache-line aligned.
	Get(n uintptr) ([]byte, error)
	// Release returns a buffer previously obtained from Get.
	Release(buf []byte)
}

// HeapSource obtains backing storage from the Go heap. It is the default
// upstream for every runtime-fixed-geometry constructor.
type HeapSource struct{}

// Get implements ByteSource.
func (HeapSource) Get(n uintptr) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n+cacheLine)
	base := uintptr(unsafe.Pointer(&buf[0]))
	off := (cacheLine - base%cacheLine) % cacheLine
	return buf[off : off+n : off+n], nil
}

// Release implements ByteSource. The Go GC owns heap-sourced buffers, so
// there is nothing to do.
func (HeapSource) Release([]byte) {}

// MmapSource obtains backing storage from an anonymous mmap region,
// bypassing the Go heap and GC scanning entirely. Useful when N*S is
// large enough that keeping it off-heap materially helps GC pause
// times.
type MmapSource struct{}

// Get implements ByteSource.
func (MmapSource) Get(n uintptr) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	m, err := mmap.MapRegion(nil, int(n), mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return []byte(m), nil
}

// Release implements ByteSource.
func (MmapSource) Release(buf []byte) {
	if len(buf) == 0 {
		return
	}
	m := mmap.MMap(buf)
	_ = m.Unmap()
}

// FileMmapSource maps an on-disk file as backing storage, letting a pool
// survive process restarts or be shared across processes. Construction
// fails with the underlying os/mmap error if the file cannot be sized or
// mapped.
type FileMmapSource struct {
	Path string
}

// Get implements ByteSource.
func (s FileMmapSource) Get(n uintptr) ([]byte, error) {
	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	defer f.Close()
	if err := f.Truncate(int64(n)); err != nil {
		return nil, errtrace.Wrap(err)
	}
	m, err := mmap.MapRegion(f, int(n), mmap.RDWR, 0, 0)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return []byte(m), nil
}

// Release implements ByteSource.
func (FileMmapSource) Release(buf []byte) {
	if len(buf) == 0 {
		return
	}
	m := mmap.MMap(buf)
	_ = m.Unmap()
}
