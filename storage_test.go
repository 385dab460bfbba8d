package ringoram

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryStorageGetSetRoundTrip(t *testing.T) {
	s := NewInMemoryStorage(7, 5, 16)

	bucket, err := s.Get(3)
	require.NoError(t, err)
	require.Len(t, bucket.Blocks, 5)

	bucket.Ptrs[0] = 9
	bucket.Blocks[0] = Block{LeafID: 1, BlockIndex: 9, Data: make([]byte, 16)}
	require.NoError(t, s.Set(3, bucket))

	got, err := s.Get(3)
	require.NoError(t, err)
	require.Equal(t, 9, got.Ptrs[0])
}

func TestInMemoryStorageOutOfRange(t *testing.T) {
	s := NewInMemoryStorage(7, 5, 16)

	_, err := s.Get(-1)
	require.ErrorIs(t, err, ErrBucketOutOfRange)

	_, err = s.Get(7)
	require.ErrorIs(t, err, ErrBucketOutOfRange)

	err = s.Set(100, NewBucket(5, 16))
	require.ErrorIs(t, err, ErrBucketOutOfRange)
}

func TestInMemoryStorageSetRejectsWrongBucketSize(t *testing.T) {
	s := NewInMemoryStorage(7, 5, 16)
	err := s.Set(0, NewBucket(3, 16))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestInMemoryStorageGetReturnsIndependentCopies(t *testing.T) {
	s := NewInMemoryStorage(1, 4, 16)
	a, err := s.Get(0)
	require.NoError(t, err)
	a.Ptrs[0] = 42

	b, err := s.Get(0)
	require.NoError(t, err)
	require.NotEqual(t, 42, b.Ptrs[0], "mutating one Get result must not affect storage or later Gets")
}
