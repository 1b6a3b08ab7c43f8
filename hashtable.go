package multiarena

import (
	"sort"
	"unsafe"
)

// MapSource is a second, independent upstream byte-source the
// statistics layer can accept: any allocator from this package can
// back the live-allocation table itself, so a StatsAllocator can run
// with zero Go-heap involvement end to end. When nil, StatsAllocator
// falls back to a native Go map.
type MapSource interface {
	Allocate(bytes, align uintptr) (Address, error)
	Deallocate(addr Address, bytes, align uintptr)
}

const tableEntrySize = unsafe.Sizeof(tableEntry{})
const tableEntryAlign = unsafe.Alignof(tableEntry{})

type tableState uint8

const (
	slotEmpty tableState = iota
	slotUsed
	slotTomb
)

type tableEntry struct {
	addr  Address
	size  uintptr
	state tableState
}

// addrTable is an open-addressing address→size map whose backing slab
// is obtained from a MapSource instead of the Go heap, so the
// statistics layer can be 100%-heap-free. Growth doubles capacity and
// rehashes into a freshly allocated slab from the same source.
type addrTable struct {
	src      MapSource
	entries  []tableEntry
	slabAddr Address
	slabSize uintptr
	count    int // slotUsed
	tomb     int // slotTomb
}

const minTableCapacity = 16

func newAddrTable(src MapSource) *addrTable {
	return &addrTable{src: src}
}

func (t *addrTable) cap() int { return len(t.entries) }

func (t *addrTable) needsGrowth() bool {
	if t.cap() == 0 {
		return true
	}
	return (t.count+t.tomb)*4 >= t.cap()*3 // load factor 0.75
}

func (t *addrTable) ensureCapacity() error {
	if !t.needsGrowth() {
		return nil
	}
	newCap := t.cap() * 2
	if newCap < minTableCapacity {
		newCap = minTableCapacity
	}
	newBytes := uintptr(newCap) * tableEntrySize
	addr, err := t.src.Allocate(newBytes, tableEntryAlign)
	if err != nil {
		return err
	}
	newEntries := unsafe.Slice((*tableEntry)(unsafe.Pointer(uintptr(addr))), newCap)
	for i := range newEntries {
		newEntries[i] = tableEntry{}
	}
	oldEntries, oldAddr, oldSize := t.entries, t.slabAddr, t.slabSize
	t.entries, t.slabAddr, t.slabSize = newEntries, addr, newBytes
	t.count, t.tomb = 0, 0
	for _, e := range oldEntries {
		if e.state == slotUsed {
			t.insert(e.addr, e.size)
		}
	}
	if oldSize > 0 {
		t.src.Deallocate(oldAddr, oldSize, tableEntryAlign)
	}
	return nil
}

func (t *addrTable) slot(addr Address) int {
	h := uint64(addr) * 0x9E3779B97F4A7C15
	return int(h % uint64(t.cap()))
}

// insert assumes capacity has already been ensured.
func (t *addrTable) insert(addr Address, size uintptr) {
	i := t.slot(addr)
	for {
		switch t.entries[i].state {
		case slotEmpty, slotTomb:
			if t.entries[i].state == slotTomb {
				t.tomb--
			}
			t.entries[i] = tableEntry{addr: addr, size: size, state: slotUsed}
			t.count++
			return
		case slotUsed:
			if t.entries[i].addr == addr {
				t.entries[i].size = size
				return
			}
		}
		i = (i + 1) % t.cap()
	}
}

// Put records addr→size, growing the backing slab first if needed.
func (t *addrTable) Put(addr Address, size uintptr) error {
	if err := t.ensureCapacity(); err != nil {
		return err
	}
	t.insert(addr, size)
	return nil
}

// Take removes and returns the size recorded for addr. ok is false if
// addr was never recorded (or was already removed) — the statistics
// layer's double-free detection.
func (t *addrTable) Take(addr Address) (size uintptr, ok bool) {
	if t.cap() == 0 {
		return 0, false
	}
	i := t.slot(addr)
	for start := i; ; {
		switch t.entries[i].state {
		case slotEmpty:
			return 0, false
		case slotUsed:
			if t.entries[i].addr == addr {
				size = t.entries[i].size
				t.entries[i].state = slotTomb
				t.count--
				t.tomb++
				return size, true
			}
		}
		i = (i + 1) % t.cap()
		if i == start {
			return 0, false
		}
	}
}

// Len returns the number of live entries.
func (t *addrTable) Len() int { return t.count }

// Each calls fn for every live entry, in ascending address order.
func (t *addrTable) Each(fn func(addr Address, size uintptr)) {
	addrs := make([]Address, 0, t.count)
	sizes := make(map[Address]uintptr, t.count)
	for _, e := range t.entries {
		if e.state == slotUsed {
			addrs = append(addrs, e.addr)
			sizes[e.addr] = e.size
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, a := range addrs {
		fn(a, sizes[a])
	}
}

// Release returns the table's backing slab to its MapSource.
func (t *addrTable) Release() {
	if t.slabSize > 0 {
		t.src.Deallocate(t.slabAddr, t.slabSize, tableEntryAlign)
		t.entries, t.slabAddr, t.slabSize = nil, 0, 0
	}
}
