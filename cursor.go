package multiarena

// cursor implements a downward bump allocator: the active arena is
// filled from its high address down to its low address, and every
// request's alignment slack is charged against headroom along with the
// request itself. Both the unsynchronized and synchronized engines
// share this one implementation — see DESIGN.md for why an
// upward/bin-rounded form was not adopted for either variant.
type cursor struct {
	pos      uintptr // next candidate address, descending
	headroom uintptr // bytes remaining in the active arena
}

// reset points the cursor at the top of an arena of the given size,
// with full headroom. Used both when an arena is first activated and
// when it is reset-in-place after draining while active.
func (c *cursor) reset(arenaTop, size uintptr) {
	c.pos = arenaTop
	c.headroom = size
}

// reserve attempts to carve bytes out of the active arena honoring
// align, a power of two. ok is false on headroom overflow, in which case
// the cursor is left unmodified and the caller must swap arenas.
func (c *cursor) reserve(bytes, align uintptr) (addr uintptr, ok bool) {
	tentative := c.pos - bytes
	misalign := tentative % align
	total := bytes + misalign
	if total > c.headroom {
		return 0, false
	}
	c.pos = tentative - misalign
	c.headroom -= total
	return c.pos, true
}
