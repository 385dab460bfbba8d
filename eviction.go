package ringoram

import "github.com/hashicorp/go-multierror"

// EvictPath implements spec.md §4.5: every EvictRound accesses, RingORAM
// picks a deterministic eviction leaf, drains every real block still
// resident on that leaf's path into the stash via ReadBucket, then repacks
// each bucket bottom-up (leaf bucket first, root last) via WriteBucket so
// blocks settle as close to their
// assigned leaf as the tree topology allows. Per the deterministic-schedule
// Open Question, the eviction leaf is a plain incrementing counter mod
// NumLeaves rather than a bit-reversal (Gray code) sequence: both cover
// every leaf with the same period, and the plain counter is simpler to
// reason about in tests.
func (o *RingORAM) EvictPath() error {
	leaf := o.g % o.tree.NumLeaves
	o.g++

	path := o.Path(leaf)
	var merr *multierror.Error

	for _, pos := range path {
		if err := o.ReadBucket(pos); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	for level := len(path) - 1; level >= 0; level-- {
		if err := o.WriteBucket(path[level]); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	o.evictions++
	o.metrics.evictions.Inc()
	return merr.ErrorOrNil()
}

// EarlyReshuffle implements spec.md §4.6: any bucket on the just-accessed
// path whose per-bucket read counter has reached its dummy budget S is
// rebuilt in isolation via ReadBucket+WriteBucket, without waiting for the
// next scheduled EvictPath. This is what keeps a hot bucket's dummy supply
// from running out between full-path evictions.
func (o *RingORAM) EarlyReshuffle(leaf int) error {
	path := o.Path(leaf)
	var merr *multierror.Error

	for _, pos := range path {
		bucket, err := o.storage.Get(pos)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		if bucket.Count < o.cfg.S {
			continue
		}
		if err := o.ReadBucket(pos); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		if err := o.WriteBucket(pos); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		o.earlyReshuffles++
		o.metrics.earlyReshuffles.Inc()
	}
	return merr.ErrorOrNil()
}

// ReadBucket drains every still-valid real slot of the bucket at pos into
// the stash, decrypting each one. It doesn't touch storage; callers must
// follow up with WriteBucket to give pos fresh contents.
func (o *RingORAM) ReadBucket(pos int) error {
	bucket, err := o.storage.Get(pos)
	if err != nil {
		return err
	}
	for k := range bucket.Ptrs {
		if !bucket.Valids[k] || bucket.Ptrs[k] == EmptyBlockID {
			continue
		}
		plaintext, err := o.encryptor.Decrypt(bucket.Ptrs[k], bucket.Blocks[k].LeafID, bucket.Blocks[k].Data)
		if err != nil {
			o.decryptFailures++
			o.metrics.decryptFailures.Inc()
			o.logger.Errorf("decrypt failed while draining bucket %d slot %d: %v; keeping ciphertext", pos, k, err)
			plaintext = bucket.Blocks[k].Data
		}
		o.stash.Add(Block{LeafID: bucket.Blocks[k].LeafID, BlockIndex: bucket.Ptrs[k], Data: plaintext})
	}
	return nil
}

// WriteBucket collects up to Z stash entries whose current leaf assignment
// routes them through pos, encrypts each, shuffles their slot placement
// with crypto/rand so slot position never betrays insertion order, pads the
// rest with dummies, and installs the result via Storage.Set with a reset
// read counter. Unplaced stash entries are left for a later eviction round.
func (o *RingORAM) WriteBucket(pos int) error {
	level := LevelOf(pos)
	fresh := NewBucket(o.tree.BucketSize, o.cfg.BlockSize)

	type placement struct {
		leaf, blockIndex int
		ciphertext       []byte
	}
	var matched []placement
	var consumed []int

	for _, i := range o.stash.MatchingLeaf(pos, level, o.tree.Height) {
		if len(matched) >= o.cfg.Z {
			break
		}
		b := o.stash.At(i)
		ciphertext, err := o.encryptor.Encrypt(b.BlockIndex, b.LeafID, b.Data)
		if err != nil {
			continue
		}
		matched = append(matched, placement{leaf: b.LeafID, blockIndex: b.BlockIndex, ciphertext: ciphertext})
		consumed = append(consumed, i)
	}
	// Remove back-to-front so earlier indices in consumed stay valid as the
	// stash shrinks.
	for k := len(consumed) - 1; k >= 0; k-- {
		o.stash.RemoveAt(consumed[k])
	}

	slots, err := randomPermutation(len(fresh.Ptrs))
	if err != nil {
		return err
	}
	for j, p := range matched {
		slot := slots[j]
		fresh.Blocks[slot] = Block{LeafID: p.leaf, BlockIndex: p.blockIndex, Data: p.ciphertext}
		fresh.Ptrs[slot] = p.blockIndex
		fresh.Valids[slot] = true
	}

	return o.storage.Set(pos, fresh)
}

// randomPermutation returns a uniformly random permutation of [0, n) via a
// Fisher-Yates shuffle driven by crypto/rand, so WriteBucket's slot
// assignment carries no positional information about insertion order.
func randomPermutation(n int) ([]int, error) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := randomLeaf(i + 1)
		if err != nil {
			return nil, err
		}
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm, nil
}
