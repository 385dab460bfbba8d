package ringoram

import (
	"crypto/rand"
	"math/big"
)

// PositionMap tracks the client-held function blockIndex -> leaf. A
// recursive ORAM could implement this as another RingORAM instance; the
// core only requires Get/Set/Size (spec.md §3, §9 Non-goals).
type PositionMap interface {
	// Get returns the leaf currently assigned to blockIndex.
	Get(blockIndex int) int

	// Set assigns blockIndex to leaf.
	Set(blockIndex int, leaf int)

	// Size returns the number of tracked block indices.
	Size() int
}

// ArrayPositionMap is the default PositionMap: a direct array pos[0..N),
// initialized uniformly at random over [0, numLeaves) at construction, as
// spec.md §3 requires (every block has a leaf assignment from the start,
// not just once first written).
type ArrayPositionMap struct {
	pos       []int
	numLeaves int
}

// NewArrayPositionMap builds a position map for n blocks over a tree with
// numLeaves leaves, assigning each block a fresh random leaf.
func NewArrayPositionMap(n, numLeaves int) (*ArrayPositionMap, error) {
	pm := &ArrayPositionMap{pos: make([]int, n), numLeaves: numLeaves}
	for i := range pm.pos {
		leaf, err := randomLeaf(numLeaves)
		if err != nil {
			return nil, err
		}
		pm.pos[i] = leaf
	}
	return pm, nil
}

func (p *ArrayPositionMap) Get(blockIndex int) int {
	return p.pos[blockIndex]
}

func (p *ArrayPositionMap) Set(blockIndex int, leaf int) {
	p.pos[blockIndex] = leaf
}

func (p *ArrayPositionMap) Size() int {
	return len(p.pos)
}

// randomLeaf returns a cryptographically random leaf index in [0, numLeaves).
func randomLeaf(numLeaves int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(numLeaves)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
