package replay

import "fmt"

// sumTree stores one non-negative priority per leaf and caches subtree sums
// in the internal nodes, so both priority updates and inverse-CDF retrieval
// cost O(log capacity). The tree array holds capacity-1 internal nodes
// followed by capacity leaves; leaf i lives at tree[capacity-1+i].
//
// Propagation and retrieval are iterative on purpose: at the capacities used
// for research runs (millions of leaves) recursion buys nothing and the loop
// keeps the hot path allocation-free.
type sumTree struct {
	capacity int
	tree     []float64
	data     []Experience
	write    int
	size     int
}

func newSumTree(capacity int) (*sumTree, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("sum tree capacity must be positive, got %d", capacity)
	}
	return &sumTree{
		capacity: capacity,
		tree:     make([]float64, 2*capacity-1),
		data:     make([]Experience, capacity),
	}, nil
}

// Add writes exp at the circular cursor with the given priority, overwriting
// the oldest entry once the buffer has wrapped.
func (s *sumTree) Add(priority float64, exp Experience) {
	leaf := s.write + s.capacity - 1
	s.data[s.write] = exp
	s.Update(leaf, priority)

	s.write = (s.write + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}
}

// Update sets the priority at treeIndex and propagates the delta up to the
// root so every internal node keeps summing its children.
func (s *sumTree) Update(treeIndex int, priority float64) {
	delta := priority - s.tree[treeIndex]
	s.tree[treeIndex] = priority

	for treeIndex != 0 {
		treeIndex = (treeIndex - 1) / 2
		s.tree[treeIndex] += delta
	}
}

// Get resolves a cumulative value v in [0, Total()] to the leaf it falls in,
// returning the leaf's tree index, its priority, and the stored experience.
// Values exactly on a subtree boundary resolve to the left branch.
func (s *sumTree) Get(v float64) (int, float64, Experience) {
	idx := 0
	for idx < s.capacity-1 {
		left := 2*idx + 1
		if v <= s.tree[left] {
			idx = left
		} else {
			v -= s.tree[left]
			idx = left + 1
		}
	}
	return idx, s.tree[idx], s.data[idx-(s.capacity-1)]
}

// Total returns the total priority mass, i.e. the root sum.
func (s *sumTree) Total() float64 {
	return s.tree[0]
}

func (s *sumTree) Len() int {
	return s.size
}
