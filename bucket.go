package ringoram

import (
	"encoding/binary"
	"fmt"
)

// Bucket is a tree node holding Z+S block slots plus the bookkeeping Ring
// ORAM needs to bound dummy exhaustion between reshuffles (spec.md §3).
type Bucket struct {
	Blocks []Block
	Ptrs   []int
	Valids []bool
	Count  int

	// dummyCursor rotates across the bucket's dummy slots so ReadPath never
	// serves the same dummy offset twice between reshuffles (spec.md §4.4).
	dummyCursor int
}

// NewBucket allocates a bucket of the given capacity, filled entirely with
// dummy slots.
func NewBucket(capacity, blockSize int) Bucket {
	b := Bucket{
		Blocks: make([]Block, capacity),
		Ptrs:   make([]int, capacity),
		Valids: make([]bool, capacity),
	}
	for i := range b.Blocks {
		b.Blocks[i] = dummyBlock(blockSize)
		b.Ptrs[i] = EmptyBlockID
		b.Valids[i] = true
	}
	return b
}

// GetBlockOffset implements spec.md §4.4's get_block_offset: it returns the
// slot holding blockIndex if one is valid, otherwise the next not-yet-served
// dummy slot. It never changes slot contents or validity; on the dummy
// fallback it advances the bucket's dummy cursor.
func (b *Bucket) GetBlockOffset(blockIndex int) int {
	for k := range b.Ptrs {
		if b.Ptrs[k] == blockIndex && b.Valids[k] {
			return k
		}
	}
	return b.nextDummyOffset()
}

// nextDummyOffset rotates through valid dummy slots starting at the cursor,
// wrapping once around the bucket. Returns -1 only if every dummy slot has
// already been invalidated since the last reshuffle, which EarlyReshuffle is
// responsible for preventing (spec.md §4.6).
func (b *Bucket) nextDummyOffset() int {
	n := len(b.Ptrs)
	for i := 0; i < n; i++ {
		k := (b.dummyCursor + i) % n
		if b.Ptrs[k] == EmptyBlockID && b.Valids[k] {
			b.dummyCursor = (k + 1) % n
			return k
		}
	}
	return -1
}

// Invalidate marks slot k consumed and increments the bucket's read counter.
// Called exactly once per level, per access, by ReadPath.
func (b *Bucket) Invalidate(k int) {
	if k < 0 || k >= len(b.Valids) {
		return
	}
	b.Valids[k] = false
	b.Count++
}

// MarshalBinary encodes the bucket in the wire layout from spec.md §6:
// Count(int32), then per slot Ptr(int32) Valid(byte) LeafID(int32)
// BlockIndex(int32) Data(B bytes).
func (b *Bucket) MarshalBinary() ([]byte, error) {
	n := len(b.Blocks)
	if n == 0 {
		return nil, fmt.Errorf("ringoram: cannot marshal empty bucket")
	}
	blockSize := len(b.Blocks[0].Data)
	out := make([]byte, 4+n*(4+1+4+4+blockSize))
	binary.LittleEndian.PutUint32(out[0:4], uint32(b.Count))
	off := 4
	for k := 0; k < n; k++ {
		binary.LittleEndian.PutUint32(out[off:off+4], uint32(int32(b.Ptrs[k])))
		off += 4
		if b.Valids[k] {
			out[off] = 1
		}
		off++
		binary.LittleEndian.PutUint32(out[off:off+4], uint32(int32(b.Blocks[k].LeafID)))
		off += 4
		binary.LittleEndian.PutUint32(out[off:off+4], uint32(int32(b.Blocks[k].BlockIndex)))
		off += 4
		copy(out[off:off+blockSize], b.Blocks[k].Data)
		off += blockSize
	}
	return out, nil
}

// UnmarshalBucket decodes a bucket previously produced by MarshalBinary.
// capacity and blockSize must match the encoding.
func UnmarshalBucket(data []byte, capacity, blockSize int) (Bucket, error) {
	want := 4 + capacity*(4+1+4+4+blockSize)
	if len(data) != want {
		return Bucket{}, fmt.Errorf("ringoram: bucket wire size mismatch: got %d want %d", len(data), want)
	}
	b := Bucket{
		Blocks: make([]Block, capacity),
		Ptrs:   make([]int, capacity),
		Valids: make([]bool, capacity),
		Count:  int(int32(binary.LittleEndian.Uint32(data[0:4]))),
	}
	off := 4
	for k := 0; k < capacity; k++ {
		b.Ptrs[k] = int(int32(binary.LittleEndian.Uint32(data[off : off+4])))
		off += 4
		b.Valids[k] = data[off] != 0
		off++
		leaf := int(int32(binary.LittleEndian.Uint32(data[off : off+4])))
		off += 4
		idx := int(int32(binary.LittleEndian.Uint32(data[off : off+4])))
		off += 4
		payload := make([]byte, blockSize)
		copy(payload, data[off:off+blockSize])
		off += blockSize
		b.Blocks[k] = Block{LeafID: leaf, BlockIndex: idx, Data: payload}
	}
	return b, nil
}
