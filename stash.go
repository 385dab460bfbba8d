package ringoram

// Stash is the client-side overflow store for plaintext blocks awaiting
// eviction (spec.md §3). It never silently drops entries: exceeding the
// configured bound is a recoverable, logged/counted condition (see
// RingORAM.Access and Stats().StashOverflows) rather than a truncation of
// the slice or a hard error.
type Stash struct {
	blocks []Block
}

// Add appends a plaintext block to the stash.
func (s *Stash) Add(b Block) {
	s.blocks = append(s.blocks, b)
}

// Len returns the current stash size.
func (s *Stash) Len() int {
	return len(s.blocks)
}

// Find returns the index of blockIndex in the stash, or -1 if absent.
func (s *Stash) Find(blockIndex int) int {
	for i := range s.blocks {
		if s.blocks[i].BlockIndex == blockIndex {
			return i
		}
	}
	return -1
}

// At returns the block at index i.
func (s *Stash) At(i int) Block {
	return s.blocks[i]
}

// SetData overwrites the plaintext payload and leaf tag of the block at
// index i in place.
func (s *Stash) SetData(i int, leaf int, data []byte) {
	s.blocks[i].LeafID = leaf
	copy(s.blocks[i].Data, data)
}

// RemoveAt deletes the block at index i, preserving the relative order of
// the remaining entries (order matters for deterministic eviction tests).
func (s *Stash) RemoveAt(i int) {
	s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
}

// MatchingLeaf returns the indices of blocks whose current leaf assignment
// places them on the path bucket at (level, treeHeight).
func (s *Stash) MatchingLeaf(pos, level, treeHeight int) []int {
	var out []int
	for i, b := range s.blocks {
		if PathBucket(b.LeafID, level, treeHeight) == pos {
			out = append(out, i)
		}
	}
	return out
}

// Snapshot returns a defensive copy of the stash contents, for
// property-based tests that need to reason about the multiset invariant
// (spec.md §8, property 2) without racing the live stash.
func (s *Stash) Snapshot() []Block {
	out := make([]Block, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = b.clone()
	}
	return out
}
