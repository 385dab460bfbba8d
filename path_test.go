package ringoram

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathBucketRoot(t *testing.T) {
	// every leaf's path passes through the root, bucket 0
	for leaf := 0; leaf < 8; leaf++ {
		require.Equal(t, 0, PathBucket(leaf, 0, 3))
	}
}

func TestPathBucketLeafLevel(t *testing.T) {
	// at the deepest level, PathBucket must land on a distinct bucket per leaf
	seen := make(map[int]bool)
	for leaf := 0; leaf < 8; leaf++ {
		pos := PathBucket(leaf, 3, 3)
		require.False(t, seen[pos], "leaf bucket %d reused across leaves", pos)
		seen[pos] = true
	}
}

func TestLevelOfRoundTripsWithPathBucket(t *testing.T) {
	height := 4
	for leaf := 0; leaf < 16; leaf++ {
		for level := 0; level <= height; level++ {
			pos := PathBucket(leaf, level, height)
			require.Equal(t, level, LevelOf(pos), "leaf=%d level=%d pos=%d", leaf, level, pos)
		}
	}
}

func TestRingORAMPathLengthAndOrder(t *testing.T) {
	o, err := NewInMemory(Config{NumBlocks: 16, BlockSize: 16})
	require.NoError(t, err)

	path := o.Path(3)
	require.Len(t, path, o.Height()+1)
	require.Equal(t, 0, path[0])
	for i, pos := range path {
		require.Equal(t, i, LevelOf(pos))
	}
}
