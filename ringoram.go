package ringoram

import (
	"crypto/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// RingORAM implements the Ring ORAM protocol of spec.md: a probabilistic
// position map, a bucketed binary tree with real+dummy slots, a client-side
// stash, a deterministic eviction schedule, and early reshuffling to bound
// per-bucket dummy exhaustion.
//
// Access, Read, Write, StashSize, PositionMapSize and Stats are safe for
// concurrent use: a single mutex guards the whole critical section
// (spec.md §5), since Ring ORAM's eviction schedule has no well-defined
// semantics under interleaved accesses. The lower-level steps (ReadPath,
// EvictPath, EarlyReshuffle, ReadBucket, WriteBucket, Path) do not take the
// mutex; Access calls them while holding it.
type RingORAM struct {
	cfg  Config
	tree TreeParams

	storage   Storage
	posMap    PositionMap
	encryptor Encryptor
	stash     Stash

	round int // accesses since last full-path eviction, mod cfg.EvictRound
	g     int // EvictPath's monotonic eviction-leaf counter

	// counters mirror the Prometheus collectors in metrics so Stats() can
	// hand back a plain snapshot without reaching into the registry.
	evictions       int
	earlyReshuffles int
	decryptFailures int
	pathFallbacks   int
	stashOverflows  int

	mu      sync.Mutex
	logger  Logger
	metrics *metrics
	id      string
}

// Option configures optional RingORAM dependencies at construction time.
type Option func(*RingORAM)

// WithLogger overrides the default silent Logger.
func WithLogger(l Logger) Option {
	return func(o *RingORAM) { o.logger = l }
}

// WithMetricsRegisterer registers RingORAM's Prometheus collectors against
// reg instead of a private registry.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *RingORAM) { o.metrics = newMetrics(reg, o.id) }
}

// WithInstanceID overrides the random instance ID used to label metrics,
// useful when a caller runs one RingORAM per spatial-index shard and wants
// them distinguishable. Log lines do not carry the ID, and collectors
// registered by a WithMetricsRegisterer option applied before this one keep
// the earlier ID.
func WithInstanceID(id string) Option {
	return func(o *RingORAM) { o.id = id }
}

// New builds a RingORAM over explicit Storage, PositionMap, and Encryptor
// dependencies (spec.md §6's constructor). Storage must already be sized to
// ComputeTreeParams(cfg).NumBuckets buckets of BucketSize slots.
func New(cfg Config, storage Storage, posMap PositionMap, enc Encryptor, opts ...Option) (*RingORAM, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	tree := cfg.ComputeTreeParams()

	o := &RingORAM{
		cfg:       cfg,
		tree:      tree,
		storage:   storage,
		posMap:    posMap,
		encryptor: enc,
		logger:    NewSilentLogger(),
		id:        uuid.NewString(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = newMetrics(nil, o.id)
	}
	return o, nil
}

// NewInMemory builds a RingORAM with in-memory storage, an array-backed
// position map, and a fresh random AES-CBC key (spec.md §6: "generates a
// fresh 16-byte encryption key"). It's the simplest way to stand up a
// RingORAM for tests or single-process use.
func NewInMemory(cfg Config, opts ...Option) (*RingORAM, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	tree := cfg.ComputeTreeParams()

	storage := NewInMemoryStorage(tree.NumBuckets, tree.BucketSize, cfg.BlockSize)
	posMap, err := NewArrayPositionMap(cfg.NumBlocks, tree.NumLeaves)
	if err != nil {
		return nil, err
	}
	key := make([]byte, aesCBCKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	enc, err := NewAESCBCEncryptor(key)
	if err != nil {
		return nil, err
	}
	return New(cfg, storage, posMap, enc, opts...)
}

// Height returns L, the binary tree's depth.
func (o *RingORAM) Height() int { return o.tree.Height }

// NumLeaves returns 2^L.
func (o *RingORAM) NumLeaves() int { return o.tree.NumLeaves }

// NumBuckets returns 2^(L+1)-1.
func (o *RingORAM) NumBuckets() int { return o.tree.NumBuckets }

// Capacity returns N, the number of logical blocks this instance supports.
func (o *RingORAM) Capacity() int { return o.cfg.NumBlocks }

// BlockSize returns B, the configured plaintext block size in bytes.
func (o *RingORAM) BlockSize() int { return o.cfg.BlockSize }

// StashSize returns the number of plaintext blocks currently buffered
// client-side (spec.md §6's get_stash_size).
func (o *RingORAM) StashSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stash.Len()
}

// PositionMapSize returns the number of tracked block indices (spec.md §6's
// get_position_map_size); for ArrayPositionMap this always equals N.
func (o *RingORAM) PositionMapSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.posMap.Size()
}

// IsLevelCached reports whether level (0 = root) falls within the top
// CacheLevels of the tree that a client-side position cache is expected to
// cover. The cache itself is external to this core (spec.md §9); RingORAM
// only tracks the configured depth.
func (o *RingORAM) IsLevelCached(level int) bool {
	return level >= 0 && level < o.cfg.CacheLevels
}

// Stats snapshots the counters backing RingORAM's Prometheus metrics.
type Stats struct {
	StashSize       int
	Evictions       int
	EarlyReshuffles int
	DecryptFailures int
	PathFallbacks   int
	StashOverflows  int
}

// Stats returns a point-in-time snapshot of RingORAM's counters (spec.md
// §6's get_stats), mirroring what's exported to Prometheus.
func (o *RingORAM) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Stats{
		StashSize:       o.stash.Len(),
		Evictions:       o.evictions,
		EarlyReshuffles: o.earlyReshuffles,
		DecryptFailures: o.decryptFailures,
		PathFallbacks:   o.pathFallbacks,
		StashOverflows:  o.stashOverflows,
	}
}

// Access performs an oblivious read or write, implementing spec.md §4.7.
// For OpRead, data is ignored and the block's current plaintext is
// returned. For OpWrite, data replaces the block's plaintext and the method
// returns that same new value (spec.md §9's documented "write returns new
// data, not old" behavior).
func (o *RingORAM) Access(op OpType, blockIndex int, data []byte) ([]byte, error) {
	if blockIndex < 0 || blockIndex >= o.cfg.NumBlocks {
		return nil, ErrInvalidBlockID
	}
	if op == OpWrite && len(data) != o.cfg.BlockSize {
		return nil, ErrInvalidDataSize
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// Step 1-2: remap the accessed block to a fresh random leaf before
	// touching storage, so the path we read reveals nothing about where the
	// block's next path will be.
	oldLeaf := o.posMap.Get(blockIndex)
	newLeaf, err := randomLeaf(o.tree.NumLeaves)
	if err != nil {
		return nil, err
	}
	o.posMap.Set(blockIndex, newLeaf)

	// Step 3: read the old path into the stash / find the target.
	interest, err := o.ReadPath(oldLeaf, blockIndex)
	if err != nil {
		return nil, err
	}

	// Step 4-5: resolve the current plaintext, either from the path itself
	// or, failing that, from a prior stash entry.
	var plaintext []byte
	stashIdx := -1
	if interest.BlockIndex == blockIndex {
		plaintext = interest.Data
	} else if idx := o.findInStash(blockIndex); idx >= 0 {
		plaintext = append([]byte(nil), o.stash.At(idx).Data...)
		stashIdx = idx
	} else {
		plaintext = make([]byte, o.cfg.BlockSize)
	}

	// Step 6: overwrite on a write.
	if op == OpWrite {
		plaintext = append([]byte(nil), data...)
	}

	// Step 7: buffer the (possibly updated) block back into the stash under
	// its freshly assigned leaf. An entry already resident in the stash is
	// updated in place via SetData; a fresh entry gets its own copy of the
	// bytes via Add. Either way the stash never ends up holding the same
	// backing array we're about to hand back to the caller below.
	if stashIdx >= 0 {
		o.stash.SetData(stashIdx, newLeaf, plaintext)
	} else {
		o.stash.Add(Block{LeafID: newLeaf, BlockIndex: blockIndex, Data: append([]byte(nil), plaintext...)})
	}
	o.metrics.stashSize.Set(float64(o.stash.Len()))

	// Stash overflow is a recoverable, security-relevant condition rather
	// than a hard API error (spec.md §7): the block has already been
	// remapped and stashed, so returning early here would skip eviction and
	// early reshuffle entirely. Log and count it instead, the same way
	// decrypt failures and path fallbacks are handled, and let the access
	// run to completion.
	if o.stash.Len() > o.cfg.StashLimit {
		o.stashOverflows++
		o.metrics.stashOverflows.Inc()
		o.logger.Errorf("stash overflow: size=%d exceeds limit=%d", o.stash.Len(), o.cfg.StashLimit)
	}

	// Step 8: periodic full-path eviction.
	o.round = (o.round + 1) % o.cfg.EvictRound
	if o.round == 0 {
		if err := o.EvictPath(); err != nil {
			return nil, err
		}
	}

	// Step 9: early-reshuffle any bucket on the just-accessed path that has
	// exhausted its dummy budget.
	if err := o.EarlyReshuffle(oldLeaf); err != nil {
		return nil, err
	}

	o.metrics.stashSize.Set(float64(o.stash.Len()))
	return plaintext, nil
}

// Read is Access(OpRead, blockIndex, nil).
func (o *RingORAM) Read(blockIndex int) ([]byte, error) {
	return o.Access(OpRead, blockIndex, nil)
}

// Write is Access(OpWrite, blockIndex, data).
func (o *RingORAM) Write(blockIndex int, data []byte) ([]byte, error) {
	return o.Access(OpWrite, blockIndex, data)
}

// ReadPath implements spec.md §4.4: fetch-mutate-write-back one slot per
// bucket on leaf's path, invalidating exactly the slot read at every level
// so the choice of "real target" vs "dummy" leaves an identical trace.
func (o *RingORAM) ReadPath(leaf, blockIndex int) (Block, error) {
	path := o.Path(leaf)
	interest := dummyBlock(o.cfg.BlockSize)

	for _, pos := range path {
		bucket, err := o.storage.Get(pos)
		if err != nil {
			return Block{}, err
		}

		var offset int
		if o.cfg.ConstantTime {
			offset = o.getBlockOffsetConstantTime(&bucket, blockIndex)
		} else {
			offset = bucket.GetBlockOffset(blockIndex)
		}
		if offset < 0 {
			// Every dummy already served since the last reshuffle: this can
			// only happen if EarlyReshuffle failed to keep up. The case is
			// logged only; no metric counts it.
			o.logger.Errorf("bucket %d has no readable slot left for block %d (count=%d)", pos, blockIndex, bucket.Count)
			continue
		}

		matched := bucket.Ptrs[offset] == blockIndex && bucket.Valids[offset]
		if matched {
			plaintext, err := o.encryptor.Decrypt(blockIndex, bucket.Blocks[offset].LeafID, bucket.Blocks[offset].Data)
			if err != nil {
				o.decryptFailures++
				o.metrics.decryptFailures.Inc()
				o.logger.Errorf("decrypt failed for block %d at bucket %d: %v; returning ciphertext unchanged", blockIndex, pos, err)
				plaintext = bucket.Blocks[offset].Data
			}
			interest = Block{LeafID: bucket.Blocks[offset].LeafID, BlockIndex: blockIndex, Data: plaintext}
		}

		bucket.Invalidate(offset)
		if err := o.storage.Set(pos, bucket); err != nil {
			return Block{}, err
		}
	}
	return interest, nil
}
