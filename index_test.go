package ptab

import "testing"

func TestToConcreteBijectionPerGeneration(t *testing.T) {
	p := newTableParams(8, 2)

	for gen := uint64(0); gen < 4; gen++ {
		seen := make(map[uint64]bool)
		base := gen * p.capacity
		for k := uint64(0); k < p.capacity; k++ {
			a := base + k
			c := toConcrete(&p, a)
			if c >= p.capacity {
				t.Fatalf("toConcrete(%d) = %d out of range", a, c)
			}
			if seen[c] {
				t.Fatalf("generation %d: concrete index %d produced twice", gen, c)
			}
			seen[c] = true
		}
		if len(seen) != int(p.capacity) {
			t.Fatalf("generation %d: only %d distinct concrete indices, want %d", gen, len(seen), p.capacity)
		}
	}
}

func TestDetachedRoundTrip(t *testing.T) {
	p := newTableParams(8, 2)

	for a := uint64(0); a < 8*p.capacity; a++ {
		d := toDetached(&p, a)
		got := fromDetached(&p, d)
		if got != a {
			t.Fatalf("fromDetached(toDetached(%d)) = %d, want %d", a, got, a)
		}
	}
}

func TestCacheLineSpread(t *testing.T) {
	p := newTableParams(8, 2)

	// Consecutive abstract indices land on the same block (same high bits)
	// again only after CAPACITY/CACHE_LINE_SLOTS steps, so within each run of
	// CACHE_LINE_SLOTS of them they must differ in the block bits.
	for a := uint64(0); a < p.capacity; a += p.cacheLineSlots {
		blocks := make(map[uint64]bool)
		for i := uint64(0); i < p.cacheLineSlots; i++ {
			k := toConcrete(&p, a+i)
			block := k >> p.shiftBlock
			blocks[block] = true
		}
		if len(blocks) != int(p.cacheLineSlots) {
			t.Fatalf("abstract run starting at %d: only %d distinct cache lines, want %d", a, len(blocks), p.cacheLineSlots)
		}
	}
}

func TestNextGeneration(t *testing.T) {
	p := newTableParams(8, 2)

	a := uint64(3)
	ag := nextGeneration(&p, a)
	if ag != a+p.capacity {
		t.Fatalf("nextGeneration(%d) = %d, want %d", a, ag, a+p.capacity)
	}
	if toConcrete(&p, a) != toConcrete(&p, ag) {
		t.Fatalf("nextGeneration(%d) maps to a different concrete slot: %d vs %d", a, toConcrete(&p, a), toConcrete(&p, ag))
	}
}

func TestInitialAbstractMatchesConcrete(t *testing.T) {
	p := newTableParams(8, 2)

	for k := uint64(0); k < p.capacity; k++ {
		a := initialAbstract(&p, k)
		if toConcrete(&p, a) != k {
			t.Fatalf("initialAbstract(%d) = %d does not map back to %d", k, a, k)
		}
	}
}
