// Package arena implements the bump-pointer allocator (spec.md §4.11,
// C11) used to back the Typed IR's flat pools: N fixed sub-pools, each
// growing by fresh blocks sized at refill time, with no per-object free —
// the whole arena is reclaimed at once via Reset.
//
// Grounded on
// _examples/original_source/include/cangjie/Utils/BumpPtrAllocator.h: a
// SlabAllocator with per-size-class slabs and a growth policy of
// allocating the next slab at roughly a tenth of the running total, which
// this keeps as the refill-at-initial/10 rule below.
package arena

// pool is one bump-pointer sub-pool: the initial block plus any refill
// blocks; allocation proceeds from the current (last) block.
type pool struct {
	blockSize int
	blocks    [][]byte
	cursor    int // not updated; the next free byte is len(blocks[len(blocks)-1])
}

func newPool(initialBlockSize int) *pool {
	if initialBlockSize <= 0 {
		initialBlockSize = 4096
	}
	return &pool{
		blockSize: initialBlockSize,
		blocks:    [][]byte{make([]byte, 0, initialBlockSize)},
	}
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}

// refillBlockSize is the size of every block after the initial one: a
// tenth of the initial block size (at least 1 byte).
func (p *pool) refillBlockSize() int {
	t := p.blockSize / 10
	if t < 1 {
		t = 1
	}
	return t
}

func (p *pool) allocate(size, align int) []byte {
	size = alignUp(size, 1)
	cur := p.blocks[len(p.blocks)-1]
	offset := alignUp(len(cur), align)
	remaining := cap(cur) - offset
	if remaining < size {
		newBlockSize := p.refillBlockSize()
		if size > newBlockSize {
			newBlockSize = size
		}
		p.blocks = append(p.blocks, make([]byte, 0, newBlockSize))
		cur = p.blocks[len(p.blocks)-1]
		offset = 0
	}
	cur = cur[:offset+size]
	p.blocks[len(p.blocks)-1] = cur
	return cur[offset : offset+size]
}

// Arena is a fixed number of independent bump-pointer sub-pools, indexed by
// pool number (the Typed IR uses one sub-pool per pool kind: types, values,
// expressions, custom-type-defs — spec.md §4.12).
type Arena struct {
	pools []*pool
}

// New returns an Arena with n sub-pools, each starting with a block of
// initialBlockSize bytes.
func New(n int, initialBlockSize int) *Arena {
	a := &Arena{pools: make([]*pool, n)}
	for i := range a.pools {
		a.pools[i] = newPool(initialBlockSize)
	}
	return a
}

// Allocate returns size bytes aligned to align from sub-pool poolIndex.
// The returned slice's backing array is never moved or freed individually;
// it remains valid until the whole Arena is Reset.
func (a *Arena) Allocate(size, poolIndex, align int) []byte {
	return a.pools[poolIndex].allocate(size, align)
}

// Reset discards every sub-pool's allocations, retaining (and reusing) the
// first block of each sub-pool's backing storage to avoid a full
// reallocation on the next round of use.
func (a *Arena) Reset() {
	for _, p := range a.pools {
		first := p.blocks[0][:0]
		p.blocks = [][]byte{first}
	}
}

// NumPools returns the number of sub-pools this Arena was constructed with.
func (a *Arena) NumPools() int { return len(a.pools) }
