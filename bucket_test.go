package ringoram

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBucketAllDummy(t *testing.T) {
	b := NewBucket(6, 32)
	require.Len(t, b.Blocks, 6)
	for k := 0; k < 6; k++ {
		require.Equal(t, EmptyBlockID, b.Ptrs[k])
		require.True(t, b.Valids[k])
		require.True(t, b.Blocks[k].IsDummy())
	}
}

func TestBucketGetBlockOffsetFindsRealSlot(t *testing.T) {
	b := NewBucket(4, 16)
	b.Ptrs[2] = 7
	b.Blocks[2] = Block{LeafID: 3, BlockIndex: 7, Data: make([]byte, 16)}

	offset := b.GetBlockOffset(7)
	require.Equal(t, 2, offset)
}

func TestBucketGetBlockOffsetFallsBackToDummy(t *testing.T) {
	b := NewBucket(4, 16)
	offset := b.GetBlockOffset(99)
	require.GreaterOrEqual(t, offset, 0)
	require.Equal(t, EmptyBlockID, b.Ptrs[offset])
}

func TestBucketDummyRotationNeverRepeats(t *testing.T) {
	b := NewBucket(4, 16)
	seen := make(map[int]bool)
	for i := 0; i < 4; i++ {
		offset := b.GetBlockOffset(99)
		require.False(t, seen[offset], "dummy offset %d served twice", offset)
		seen[offset] = true
		b.Invalidate(offset)
	}
	require.Equal(t, -1, b.nextDummyOffset())
}

func TestBucketInvalidateIncrementsCount(t *testing.T) {
	b := NewBucket(4, 16)
	require.Equal(t, 0, b.Count)
	b.Invalidate(0)
	require.Equal(t, 1, b.Count)
	require.False(t, b.Valids[0])
}

func TestBucketMarshalRoundTrip(t *testing.T) {
	b := NewBucket(5, 24)
	b.Ptrs[1] = 42
	b.Blocks[1] = Block{LeafID: 9, BlockIndex: 42, Data: []byte("this is 24 bytes long!!!")}
	b.Valids[3] = false
	b.Count = 3

	data, err := b.MarshalBinary()
	require.NoError(t, err)

	decoded, err := UnmarshalBucket(data, 5, 24)
	require.NoError(t, err)
	require.Equal(t, b.Count, decoded.Count)
	require.Equal(t, b.Ptrs, decoded.Ptrs)
	require.Equal(t, b.Valids, decoded.Valids)
	for k := range b.Blocks {
		require.Equal(t, b.Blocks[k].LeafID, decoded.Blocks[k].LeafID)
		require.Equal(t, b.Blocks[k].BlockIndex, decoded.Blocks[k].BlockIndex)
		require.Equal(t, b.Blocks[k].Data, decoded.Blocks[k].Data)
	}
}

func TestUnmarshalBucketRejectsWrongSize(t *testing.T) {
	_, err := UnmarshalBucket([]byte{1, 2, 3}, 5, 24)
	require.Error(t, err)
}
