package ringoram

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestORAM(t *testing.T, numBlocks, blockSize int) *RingORAM {
	t.Helper()
	o, err := NewInMemory(Config{NumBlocks: numBlocks, BlockSize: blockSize})
	require.NoError(t, err)
	return o
}

func TestAccessInvalidBlockID(t *testing.T) {
	o := newTestORAM(t, 16, 16)

	_, err := o.Read(-1)
	require.ErrorIs(t, err, ErrInvalidBlockID)

	_, err = o.Read(16)
	require.ErrorIs(t, err, ErrInvalidBlockID)
}

func TestAccessInvalidDataSize(t *testing.T) {
	o := newTestORAM(t, 16, 16)
	_, err := o.Write(0, []byte("too short"))
	require.ErrorIs(t, err, ErrInvalidDataSize)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	o := newTestORAM(t, 32, 16)

	payload := []byte("0123456789abcdef")
	written, err := o.Write(5, payload)
	require.NoError(t, err)
	require.Equal(t, payload, written)

	got, err := o.Read(5)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestUnwrittenBlockReadsZeroed(t *testing.T) {
	o := newTestORAM(t, 16, 16)
	got, err := o.Read(3)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 16), got)
}

func TestWriteReturnsNewDataNotOld(t *testing.T) {
	o := newTestORAM(t, 16, 16)

	first := []byte("aaaaaaaaaaaaaaaa")
	_, err := o.Write(0, first)
	require.NoError(t, err)

	second := []byte("bbbbbbbbbbbbbbbb")
	got, err := o.Write(0, second)
	require.NoError(t, err)
	require.Equal(t, second, got, "write must return the new value, not the value it replaced")
}

func TestManyBlocksSurviveManyAccesses(t *testing.T) {
	const numBlocks = 64
	const blockSize = 32
	o := newTestORAM(t, numBlocks, blockSize)

	want := make(map[int][]byte, numBlocks)
	for i := 0; i < numBlocks; i++ {
		data := []byte(fmt.Sprintf("block-%04d-payload-padding-here!", i))
		require.Len(t, data, blockSize)
		_, err := o.Write(i, data)
		require.NoError(t, err)
		want[i] = data
	}

	// interleave reads and rewrites to exercise eviction and early reshuffle
	for round := 0; round < 8; round++ {
		for i := 0; i < numBlocks; i++ {
			got, err := o.Read(i)
			require.NoError(t, err)
			require.Equal(t, want[i], got, "block %d corrupted after %d rounds", i, round)
		}
	}
}

func TestStashNeverExceedsLimit(t *testing.T) {
	o := newTestORAM(t, 32, 16)
	for i := 0; i < 32; i++ {
		_, err := o.Write(i%32, make([]byte, 16))
		require.NoError(t, err)
		require.LessOrEqual(t, o.StashSize(), o.cfg.StashLimit)
	}
}

func TestAccessSurvivesStashOverflow(t *testing.T) {
	o, err := NewInMemory(Config{NumBlocks: 8, BlockSize: 16, StashLimit: 1})
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		_, err := o.Write(i, make([]byte, 16))
		require.NoError(t, err, "stash overflow must not surface as an Access error")
	}
	require.Greater(t, o.Stats().StashOverflows, 0, "an aggressively small stash limit should have tripped the overflow counter")
}

func TestPositionMapReassignsLeafOnEveryAccess(t *testing.T) {
	o := newTestORAM(t, 16, 16)
	before := o.posMap.Get(4)
	_, err := o.Read(4)
	require.NoError(t, err)
	after := o.posMap.Get(4)
	// A fresh random leaf could coincidentally repeat; run enough trials that
	// at least one access changes it.
	changed := before != after
	for i := 0; i < 20 && !changed; i++ {
		before = after
		_, err := o.Read(4)
		require.NoError(t, err)
		after = o.posMap.Get(4)
		changed = before != after
	}
	require.True(t, changed, "position map leaf never changed across repeated accesses")
}

func TestConstantTimeModeProducesSameResults(t *testing.T) {
	o, err := NewInMemory(Config{NumBlocks: 16, BlockSize: 16, ConstantTime: true})
	require.NoError(t, err)

	payload := []byte("constanttimepad!")
	_, err = o.Write(2, payload)
	require.NoError(t, err)

	got, err := o.Read(2)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestStatsReflectsEvictions(t *testing.T) {
	o := newTestORAM(t, 16, 16)
	require.Zero(t, o.Stats().Evictions)

	for i := 0; i < o.cfg.EvictRound; i++ {
		_, err := o.Write(i%16, make([]byte, 16))
		require.NoError(t, err)
	}
	require.Equal(t, 1, o.Stats().Evictions)
}

func TestAccessDetectsTamperedCiphertext(t *testing.T) {
	o := newTestORAM(t, 4, 16)

	payload := []byte("tamperme12345678")
	_, err := o.Write(0, payload)
	require.NoError(t, err)

	// Drive eviction rounds via unrelated blocks until block 0 settles onto
	// its assigned leaf's path in storage; touching block 0 itself would
	// just remap and re-stash it before we get a chance to tamper it.
	var found bool
	var pos, offset int
	for round := 0; round < 200 && !found; round++ {
		_, err := o.Write(1+round%3, make([]byte, 16))
		require.NoError(t, err)

		leaf := o.posMap.Get(0)
		for _, p := range o.Path(leaf) {
			bucket, err := o.storage.Get(p)
			require.NoError(t, err)
			for k := range bucket.Ptrs {
				if bucket.Valids[k] && bucket.Ptrs[k] == 0 {
					pos, offset, found = p, k, true
				}
			}
		}
	}
	require.True(t, found, "block 0 never settled onto its path in storage")

	bucket, err := o.storage.Get(pos)
	require.NoError(t, err)
	bucket.Blocks[offset].Data[0] ^= 0xff
	require.NoError(t, o.storage.Set(pos, bucket))

	require.Zero(t, o.Stats().DecryptFailures)

	require.NotPanics(t, func() {
		_, err = o.Read(0)
	})
	require.NoError(t, err, "a decrypt failure must be logged and counted, not surfaced as an Access error")
	require.Equal(t, 1, o.Stats().DecryptFailures)
}

func BenchmarkAccess(b *testing.B) {
	o, err := NewInMemory(Config{NumBlocks: 1024, BlockSize: 256})
	require.NoError(b, err)
	data := make([]byte, 256)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := o.Write(i%1024, data); err != nil {
			b.Fatal(err)
		}
	}
}
