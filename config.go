// Package ringoram implements the oblivious storage core of a spatial-textual
// index: a Ring ORAM construction layered on a bucketed binary tree, along
// with the encrypted block/bucket data model it manipulates.
package ringoram

import "errors"

// EmptyBlockID marks a block slot as dummy/unassigned.
const EmptyBlockID = -1

var (
	ErrInvalidConfig    = errors.New("invalid RingORAM configuration")
	ErrInvalidBlockID   = errors.New("invalid block ID")
	ErrInvalidDataSize  = errors.New("data size doesn't match block size")
	ErrEncryptionFailed = errors.New("block encryption failed")
	ErrDecryptionFailed = errors.New("block decryption failed")
	ErrBucketOutOfRange = errors.New("bucket position out of range")
)

// OpType selects the semantics of Access.
type OpType int

const (
	OpRead OpType = iota
	OpWrite
)

// Config holds RingORAM configuration parameters (spec.md §3).
type Config struct {
	NumBlocks  int // N: total number of logical blocks (valid IDs 0..NumBlocks-1)
	BlockSize  int // B: bytes per block, must be a multiple of 16
	Z          int // real slot budget per bucket
	S          int // dummy slot budget per bucket
	EvictRound int // A: accesses between full-path evictions
	StashLimit int // soft bound tracked by Access; exceeding it logs and increments Stats().StashOverflows rather than failing the access

	// CacheLevels records how many top tree levels a client-side position
	// cache is expected to cover. The cache itself lives outside this
	// core (spec.md §9); RingORAM only tracks the value and exposes
	// IsLevelCached.
	CacheLevels int

	// ConstantTime enables the timing-hardened bucket slot search and stash
	// lookup (constanttime.go), for deployments where cache-timing side
	// channels on stash/bucket scans matter. Eviction placement in
	// WriteBucket is the same in both modes.
	ConstantTime bool
}

// Validate checks the configuration and fills in defaults, returning a copy.
func (c Config) Validate() (Config, error) {
	if c.NumBlocks <= 0 || c.BlockSize <= 0 {
		return c, ErrInvalidConfig
	}
	if c.BlockSize%16 != 0 {
		return c, ErrInvalidConfig
	}
	if c.Z == 0 {
		c.Z = 4
	}
	if c.S == 0 {
		c.S = c.Z + 1
	}
	if c.EvictRound == 0 {
		c.EvictRound = c.Z
	}
	if c.StashLimit == 0 {
		c.StashLimit = 40 * (c.Z + c.S)
	}
	return c, nil
}

// TreeParams holds the derived binary-tree dimensions for a Config.
type TreeParams struct {
	Height     int // L = ceil(log2(NumLeaves))
	NumLeaves  int // 2^L
	NumBuckets int // 2^(L+1) - 1
	BucketSize int // Z + S
}

// ComputeTreeParams derives (L, NumLeaves, NumBuckets, BucketSize) from the
// block count: the tree needs at least NumBlocks leaves so every block has a
// home leaf (spec.md §3).
func (c Config) ComputeTreeParams() TreeParams {
	l := 0
	for (1 << l) < c.NumBlocks {
		l++
	}
	if l == 0 {
		l = 1
	}
	numLeaves := 1 << l
	numBuckets := (1 << (l + 1)) - 1
	return TreeParams{
		Height:     l,
		NumLeaves:  numLeaves,
		NumBuckets: numBuckets,
		BucketSize: c.Z + c.S,
	}
}
