package replay

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// UniformBuffer is a flat circular buffer with uniform sampling, kept
// API-compatible with PrioritizedBuffer so experiments can A/B the two.
// Priority updates are accepted and ignored.
type UniformBuffer struct {
	mu    sync.Mutex
	items []Experience
	write int
	size  int
	rng   *rand.Rand

	totalAdded uint64
}

// NewUniformBuffer constructs a uniform buffer; seed 0 seeds from the clock.
func NewUniformBuffer(capacity int, seed int64) (*UniformBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("uniform buffer capacity must be positive, got %d", capacity)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &UniformBuffer{
		items: make([]Experience, capacity),
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

// Add overwrites the oldest slot once the buffer has wrapped.
func (b *UniformBuffer) Add(exp Experience) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.write] = exp
	b.write = (b.write + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
	b.totalAdded++
}

// Sample draws batchSize distinct experiences uniformly without replacement.
// All importance weights are 1 since the sampling is unbiased.
func (b *UniformBuffer) Sample(batchSize int) (Batch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if batchSize <= 0 {
		return Batch{}, ErrInvalidBatchSize
	}
	if b.size == 0 {
		return Batch{}, ErrEmptyBuffer
	}
	if batchSize > b.size {
		return Batch{}, fmt.Errorf("%w: requested %d with %d stored", ErrBatchTooLarge, batchSize, b.size)
	}

	batch := Batch{
		Experiences: make([]Experience, batchSize),
		Indices:     make([]int, batchSize),
		Weights:     make([]float64, batchSize),
	}
	for i, idx := range b.rng.Perm(b.size)[:batchSize] {
		batch.Experiences[i] = b.items[idx]
		batch.Indices[i] = idx
		batch.Weights[i] = 1.0
	}
	return batch, nil
}

// UpdatePriorities validates lengths for API compatibility but is otherwise
// a no-op: uniform sampling has no priorities to maintain.
func (b *UniformBuffer) UpdatePriorities(indices []int, tdErrors []float64) error {
	if len(indices) != len(tdErrors) {
		return fmt.Errorf("%w: %d indices vs %d errors", ErrLengthMismatch, len(indices), len(tdErrors))
	}
	return nil
}

// Stats implements Buffer.
func (b *UniformBuffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Size:       b.size,
		Capacity:   len(b.items),
		Beta:       1.0,
		TotalAdded: b.totalAdded,
	}
}

// Len returns the number of stored experiences.
func (b *UniformBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
