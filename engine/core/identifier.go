package core

import "math"

// IdentifierPool hands out dense uint32 identifiers for owners of type T and
// reuses released ones, lowest first. Every identifier carries a generation
// that is bumped on release so stale handles can be told apart from live ones.
type IdentifierPool[T any] struct {
	owners      []T
	live        []bool
	generations []uint32
	free        []uint32
}

func NewIdentifierPool[T any](capacity int) *IdentifierPool[T] {
	return &IdentifierPool[T]{
		owners:      make([]T, 0, capacity),
		live:        make([]bool, 0, capacity),
		generations: make([]uint32, 0, capacity),
	}
}

// Acquire stores owner and returns its identifier and current generation.
func (p *IdentifierPool[T]) Acquire(owner T) (uint32, uint32, error) {
	// Existing free spot. Take it.
	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		p.owners[id] = owner
		p.live[id] = true
		return id, p.generations[id], nil
	}

	// If here, no existing free slots. Need a new id, so push one.
	if uint64(len(p.owners)) >= math.MaxUint32 {
		return 0, 0, Precondition(ErrCapacityExhausted, "identifier pool full with %d entries", len(p.owners))
	}
	p.owners = append(p.owners, owner)
	p.live = append(p.live, true)
	p.generations = append(p.generations, 0)
	return uint32(len(p.owners) - 1), 0, nil
}

// Get returns the owner registered for id if id is live with the given generation.
func (p *IdentifierPool[T]) Get(id, generation uint32) (T, bool) {
	var zero T
	if int(id) >= len(p.owners) || !p.live[id] || p.generations[id] != generation {
		return zero, false
	}
	return p.owners[id], true
}

func (p *IdentifierPool[T]) Release(id, generation uint32) error {
	if len(p.owners) == 0 {
		return Precondition(ErrInvalidSlot, "identifier release called before any identifier was acquired. Nothing was done")
	}

	length := uint32(len(p.owners))
	if id >= length {
		return Precondition(ErrInvalidSlot, "identifier release: id '%d' out of range (max=%d). Nothing was done", id, length)
	}
	if !p.live[id] || p.generations[id] != generation {
		return Precondition(ErrInvalidSlot, "identifier release: id '%d' generation %d is not live. Nothing was done", id, generation)
	}

	// Just zero out the entry, making it available for use.
	var zero T
	p.owners[id] = zero
	p.live[id] = false
	p.generations[id]++
	p.free = append(p.free, id)
	// Keep the lowest id on top so reuse stays dense.
	for i := len(p.free) - 1; i > 0 && p.free[i] > p.free[i-1]; i-- {
		p.free[i], p.free[i-1] = p.free[i-1], p.free[i]
	}
	return nil
}

// Len returns the number of live identifiers.
func (p *IdentifierPool[T]) Len() int {
	return len(p.owners) - len(p.free)
}

// Each calls fn for every live identifier in ascending order.
func (p *IdentifierPool[T]) Each(fn func(id, generation uint32, owner T)) {
	for i := range p.owners {
		if p.live[i] {
			fn(uint32(i), p.generations[i], p.owners[i])
		}
	}
}
