package ringoram

import "crypto/subtle"

// getBlockOffsetConstantTime is Bucket.GetBlockOffset's timing-hardened
// twin: it always scans every slot instead of returning as soon as it finds
// a match, so a bucket's true occupant can't be inferred from how quickly
// ReadPath returns (spec.md §4.4, gated by Config.ConstantTime).
func (o *RingORAM) getBlockOffsetConstantTime(b *Bucket, blockIndex int) int {
	matchIdx := -1
	for k := range b.Ptrs {
		match := subtle.ConstantTimeEq(int32(b.Ptrs[k]), int32(blockIndex)) & boolToInt(b.Valids[k])
		matchIdx = subtle.ConstantTimeSelect(match, k, matchIdx)
	}
	if matchIdx >= 0 {
		return matchIdx
	}
	// Falling through to the dummy cursor is safe: which offset it lands on
	// is a function of prior access count, not of blockIndex, so it carries
	// no information about whether this call matched a real slot.
	return b.nextDummyOffset()
}

// findInStashConstantTime scans the whole stash regardless of where (or
// whether) it finds blockIndex, so stash lookup time never leaks hit
// position.
func (o *RingORAM) findInStashConstantTime(blockIndex int) int {
	found := -1
	for i := 0; i < o.stash.Len(); i++ {
		match := subtle.ConstantTimeEq(int32(o.stash.At(i).BlockIndex), int32(blockIndex))
		found = subtle.ConstantTimeSelect(match, i, found)
	}
	return found
}

// findInStash dispatches to the constant-time or plain stash scan depending
// on Config.ConstantTime.
func (o *RingORAM) findInStash(blockIndex int) int {
	if o.cfg.ConstantTime {
		return o.findInStashConstantTime(blockIndex)
	}
	return o.stash.Find(blockIndex)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
