package replay

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// PrioritizedConfig configures a PrioritizedBuffer.
type PrioritizedConfig struct {
	// Capacity is the number of experience slots; the oldest entry is
	// overwritten once the buffer wraps.
	Capacity int `mapstructure:"capacity"`
	// Alpha in [0,1] sharpens sampling: 0 is uniform, 1 is fully
	// proportional to priority.
	Alpha float64 `mapstructure:"alpha"`
	// Beta in [0,1] is the initial importance-sampling exponent, annealed
	// toward 1 by BetaIncrement on every Sample call.
	Beta          float64 `mapstructure:"beta"`
	BetaIncrement float64 `mapstructure:"beta_increment"`
	// MinPriority floors both priorities and sampling probabilities so no
	// stored experience ever starves.
	MinPriority float64 `mapstructure:"min_priority"`
	// NormalizeTDErrors routes update batches through a MovingAverage so
	// priorities stay on a stable scale as the TD-error distribution drifts.
	NormalizeTDErrors bool    `mapstructure:"normalize_td_errors"`
	NormalizerDecay   float64 `mapstructure:"normalizer_decay"`
	NormalizerEps     float64 `mapstructure:"normalizer_eps"`
	// Seed fixes the sampling RNG; 0 seeds from the clock.
	Seed int64 `mapstructure:"seed"`
}

// DefaultPrioritizedConfig mirrors the hyperparameters used across the
// platform's DQN experiments.
func DefaultPrioritizedConfig(capacity int) PrioritizedConfig {
	return PrioritizedConfig{
		Capacity:          capacity,
		Alpha:             0.6,
		Beta:              0.4,
		BetaIncrement:     0.001,
		MinPriority:       1e-6,
		NormalizeTDErrors: true,
		NormalizerDecay:   0.99,
		NormalizerEps:     1e-8,
	}
}

// Validate checks the configuration ranges.
func (c PrioritizedConfig) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in [0,1], got %g", c.Alpha)
	}
	if c.Beta < 0 || c.Beta > 1 {
		return fmt.Errorf("beta must be in [0,1], got %g", c.Beta)
	}
	if c.BetaIncrement < 0 {
		return fmt.Errorf("beta_increment must be non-negative, got %g", c.BetaIncrement)
	}
	if c.MinPriority <= 0 {
		return fmt.Errorf("min_priority must be positive, got %g", c.MinPriority)
	}
	if c.NormalizeTDErrors {
		if c.NormalizerDecay <= 0 || c.NormalizerDecay >= 1 {
			return fmt.Errorf("normalizer_decay must be in (0,1), got %g", c.NormalizerDecay)
		}
		if c.NormalizerEps <= 0 {
			return fmt.Errorf("normalizer_eps must be positive, got %g", c.NormalizerEps)
		}
	}
	return nil
}

// PrioritizedBuffer is a ring buffer whose sampling probability is
// proportional to priority^alpha, backed by a sum tree for O(log n) draws.
//
// A single mutex guards every tree mutation together with its propagation to
// the root: a reader observing a half-propagated update would see internal
// nodes that no longer sum their children. Safe for a collector goroutine
// calling Add concurrently with a trainer calling Sample/UpdatePriorities.
type PrioritizedBuffer struct {
	mu   sync.Mutex
	tree *sumTree
	rng  *rand.Rand

	alpha         float64
	beta          float64
	betaIncrement float64
	minPriority   float64
	maxPriority   float64

	norm       *MovingAverage
	totalAdded uint64
}

// PrioritizedState is the scalar state persisted by checkpoints. Experience
// history is deliberately ephemeral and not part of it.
type PrioritizedState struct {
	Beta        float64             `json:"beta"`
	MaxPriority float64             `json:"max_priority"`
	Normalizer  *MovingAverageState `json:"normalizer,omitempty"`
}

// NewPrioritizedBuffer constructs a buffer or fails fast on bad config.
func NewPrioritizedBuffer(cfg PrioritizedConfig) (*PrioritizedBuffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid prioritized buffer config: %w", err)
	}

	tree, err := newSumTree(cfg.Capacity)
	if err != nil {
		return nil, err
	}

	var norm *MovingAverage
	if cfg.NormalizeTDErrors {
		norm, err = NewMovingAverage(cfg.NormalizerDecay, cfg.NormalizerEps)
		if err != nil {
			return nil, err
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &PrioritizedBuffer{
		tree:          tree,
		rng:           rand.New(rand.NewSource(seed)),
		alpha:         cfg.Alpha,
		beta:          cfg.Beta,
		betaIncrement: cfg.BetaIncrement,
		minPriority:   cfg.MinPriority,
		maxPriority:   1.0,
		norm:          norm,
	}, nil
}

// Add stores an experience at the current maximum priority so fresh
// transitions are guaranteed to be sampled soon after insertion.
func (b *PrioritizedBuffer) Add(exp Experience) {
	b.mu.Lock()
	defer b.mu.Unlock()

	priority := math.Pow(b.maxPriority, b.alpha)
	b.tree.Add(priority, exp)
	b.totalAdded++
}

// Sample draws batchSize experiences with stratified inverse-CDF sampling:
// the priority mass is split into batchSize equal segments and one uniform
// draw is taken per segment, so every region of the priority range is
// covered even at small batch sizes. Importance weights are normalized by
// the batch maximum, so they lie in (0,1] and only ever shrink a gradient
// contribution.
func (b *PrioritizedBuffer) Sample(batchSize int) (Batch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if batchSize <= 0 {
		return Batch{}, ErrInvalidBatchSize
	}
	size := b.tree.Len()
	if size == 0 {
		return Batch{}, ErrEmptyBuffer
	}
	if batchSize > size {
		return Batch{}, fmt.Errorf("%w: requested %d with %d stored", ErrBatchTooLarge, batchSize, size)
	}

	b.beta += b.betaIncrement
	if b.beta > 1.0 {
		b.beta = 1.0
	}

	batch := Batch{
		Experiences: make([]Experience, batchSize),
		Indices:     make([]int, batchSize),
		Weights:     make([]float64, batchSize),
	}

	total := b.tree.Total()
	segment := total / float64(batchSize)
	maxWeight := 0.0

	for i := 0; i < batchSize; i++ {
		v := segment*float64(i) + b.rng.Float64()*segment
		idx, priority, exp := b.tree.Get(v)

		prob := priority / total
		if floor := b.minPriority / total; prob < floor {
			prob = floor
		}
		w := math.Pow(float64(size)*prob, -b.beta)

		batch.Experiences[i] = exp
		batch.Indices[i] = idx
		batch.Weights[i] = w
		if w > maxWeight {
			maxWeight = w
		}
	}

	for i := range batch.Weights {
		batch.Weights[i] /= maxWeight
	}

	return batch, nil
}

// UpdatePriorities re-prioritizes the given tree indices from freshly
// computed TD errors. When normalization is enabled the batch is first
// folded into the EMA and then scaled by the updated std; the mean is not
// subtracted so the error's sign survives into |e|.
func (b *PrioritizedBuffer) UpdatePriorities(indices []int, tdErrors []float64) error {
	if len(indices) != len(tdErrors) {
		return fmt.Errorf("%w: %d indices vs %d errors", ErrLengthMismatch, len(indices), len(tdErrors))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Indices come from clients, so the whole batch is validated before any
	// leaf is touched: writing through an internal-node index would break
	// the parent-equals-sum-of-children invariant without any error surfacing.
	for _, idx := range indices {
		if idx < b.tree.capacity-1 || idx >= 2*b.tree.capacity-1 {
			return fmt.Errorf("%w: index %d with capacity %d", ErrInvalidIndex, idx, b.tree.capacity)
		}
	}

	errs := tdErrors
	if b.norm != nil {
		b.norm.Update(tdErrors)
		errs = b.norm.Normalize(tdErrors, false)
	}

	for i, idx := range indices {
		priority := math.Pow(math.Abs(errs[i])+b.minPriority, b.alpha)
		b.tree.Update(idx, priority)
		if priority > b.maxPriority {
			b.maxPriority = priority
		}
	}
	return nil
}

// Stats implements Buffer.
func (b *PrioritizedBuffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Size:          b.tree.Len(),
		Capacity:      b.tree.capacity,
		TotalPriority: b.tree.Total(),
		MaxPriority:   b.maxPriority,
		Beta:          b.beta,
		TotalAdded:    b.totalAdded,
	}
}

// Len returns the number of stored experiences.
func (b *PrioritizedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tree.Len()
}

// Beta returns the current importance-sampling exponent.
func (b *PrioritizedBuffer) Beta() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.beta
}

// State returns the scalar checkpoint state.
func (b *PrioritizedBuffer) State() PrioritizedState {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := PrioritizedState{Beta: b.beta, MaxPriority: b.maxPriority}
	if b.norm != nil {
		ns := b.norm.State()
		st.Normalizer = &ns
	}
	return st
}

// LoadState restores scalar state from a checkpoint.
func (b *PrioritizedBuffer) LoadState(state PrioritizedState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.beta = state.Beta
	b.maxPriority = state.MaxPriority
	if b.norm != nil && state.Normalizer != nil {
		b.norm.LoadState(*state.Normalizer)
	}
}
