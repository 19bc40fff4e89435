package ptab

// Index algebra: pure, stateless conversions between the three index forms
// described by the table's design. None of these functions touch shared
// memory; they are total and constant-time.
//
// toConcrete is, structurally, a cyclic rotation of the low L = log2(CAPACITY)
// bits of an abstract index by C = log2(CACHE_LINE_SLOTS) positions: the block portion
// (an abstract index's low L-C bits) becomes the high bits of the concrete
// index, and the index-within-cache-line portion (an abstract index's next
// C bits) becomes the low bits. Consecutive abstract indices therefore land
// on distinct cache lines before they land on the same one again.

// toConcrete maps an abstract index to its concrete slot offset in [0, CAPACITY).
//
//go:nosplit
func toConcrete(p *tableParams, a uint64) uint64 {
	return ((a & p.maskBlock) << p.shiftBlock) | ((a >> p.shiftIndex) & p.maskIndex)
}

// concreteToAbstractLow inverts toConcrete, recovering the low L bits of the
// abstract index that produced concrete index k. It is also used to compute
// the generation-0 abstract index whose mapping is k, for slot initialization.
//
//go:nosplit
func concreteToAbstractLow(p *tableParams, k uint64) uint64 {
	return ((k >> p.shiftBlock) & p.maskBlock) | ((k & p.maskIndex) << p.shiftIndex)
}

// toDetached packs an abstract index into its externally visible handle: the
// low L bits equal toConcrete(a), and the remaining high bits equal a's own
// high bits (the generation, a >> L, unchanged).
//
//go:nosplit
func toDetached(p *tableParams, a uint64) uint64 {
	return (a &^ p.maskEntry) | toConcrete(p, a)
}

// fromDetached is the inverse of toDetached.
//
//go:nosplit
func fromDetached(p *tableParams, d uint64) uint64 {
	return (d &^ p.maskEntry) | concreteToAbstractLow(p, d)
}

// nextGeneration returns the smallest abstract index that shares a's concrete
// slot but has a strictly greater generation.
//
//go:nosplit
func nextGeneration(p *tableParams, a uint64) uint64 {
	return a + p.capacity
}

// initialAbstract returns the abstract index in [0, CAPACITY) whose mapping
// is concrete index k -- the value slot[k] is seeded with at construction.
//
//go:nosplit
func initialAbstract(p *tableParams, k uint64) uint64 {
	return concreteToAbstractLow(p, k)
}
