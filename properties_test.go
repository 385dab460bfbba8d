package ringoram

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestWriteReadRoundTripProperty checks spec.md §8's core invariant: whatever
// was last written to a block index is what the next read returns,
// regardless of which block index or payload is chosen.
func TestWriteReadRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	const numBlocks = 32
	const blockSize = 16

	properties.Property("read after write returns the written payload", prop.ForAll(
		func(blockIndex int, seed byte) bool {
			o, err := NewInMemory(Config{NumBlocks: numBlocks, BlockSize: blockSize})
			if err != nil {
				return false
			}
			payload := make([]byte, blockSize)
			for i := range payload {
				payload[i] = seed
			}
			if _, err := o.Write(blockIndex, payload); err != nil {
				return false
			}
			got, err := o.Read(blockIndex)
			if err != nil {
				return false
			}
			if len(got) != len(payload) {
				return false
			}
			for i := range got {
				if got[i] != payload[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, numBlocks-1),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

// TestStashNeverExceedsConfiguredLimitProperty exercises spec.md §8's stash
// bound across many interleaved accesses instead of one fixed sequence.
func TestStashNeverExceedsConfiguredLimitProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	const numBlocks = 16
	const blockSize = 16

	properties.Property("stash size stays within StashLimit across an access sequence", prop.ForAll(
		func(indices []int) bool {
			o, err := NewInMemory(Config{NumBlocks: numBlocks, BlockSize: blockSize})
			if err != nil {
				return false
			}
			for _, idx := range indices {
				bi := ((idx % numBlocks) + numBlocks) % numBlocks
				if _, err := o.Write(bi, make([]byte, blockSize)); err != nil {
					return false
				}
				if o.StashSize() > o.cfg.StashLimit {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(60, gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}

// TestPositionMapLeafInRangeAfterEveryWriteProperty checks that the leaf
// Access assigns on every write (spec.md §4.7 step 2) lies in
// [0, NumLeaves). It does not compare against the previous leaf, since a
// fresh random draw may repeat it.
func TestPositionMapLeafInRangeAfterEveryWriteProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	const numBlocks = 8
	const blockSize = 16

	properties.Property("leaf assignment stays within [0, NumLeaves) after every write", prop.ForAll(
		func(blockIndex int) bool {
			o, err := NewInMemory(Config{NumBlocks: numBlocks, BlockSize: blockSize})
			if err != nil {
				return false
			}
			for i := 0; i < 5; i++ {
				if _, err := o.Write(blockIndex, make([]byte, blockSize)); err != nil {
					return false
				}
				leaf := o.posMap.Get(blockIndex)
				if leaf < 0 || leaf >= o.NumLeaves() {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, numBlocks-1),
	))

	properties.TestingRun(t)
}
