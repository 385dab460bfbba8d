package ringoram

// Block is a single unit of ORAM storage tagged with the leaf it is
// currently assigned to. Data is ciphertext while the block sits in a
// Bucket, and plaintext while it sits in the stash or is returned to a
// caller (spec.md §3).
type Block struct {
	LeafID     int
	BlockIndex int
	Data       []byte
}

// IsDummy reports whether b is a dummy slot filler.
func (b Block) IsDummy() bool {
	return b.BlockIndex == EmptyBlockID
}

// dummyBlock returns a fresh dummy Block of the given payload size. Dummy
// blocks carry a distinct byte slice per bucket so that a shuffled bucket's
// on-the-wire representation doesn't leak which slots are copies of one
// shared value.
func dummyBlock(size int) Block {
	return Block{LeafID: -1, BlockIndex: EmptyBlockID, Data: make([]byte, size)}
}

// clone returns a deep copy of b, so callers can mutate the result without
// aliasing storage- or stash-owned byte slices.
func (b Block) clone() Block {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return Block{LeafID: b.LeafID, BlockIndex: b.BlockIndex, Data: data}
}
