package replay

import "errors"

// Experience is a single environment transition. The buffer owns the value
// once stored; only its priority entry is mutated afterwards, never the
// tuple itself. Done is stored verbatim. Masking the bootstrap target for
// terminal transitions is the trainer's job, not the buffer's.
type Experience struct {
	State         []float64 `json:"state"`
	Action        int       `json:"action"`
	Reward        float64   `json:"reward"`
	NextState     []float64 `json:"next_state"`
	Done          bool      `json:"done"`
	TDError       *float64  `json:"td_error,omitempty"`
	AuxPrediction []float64 `json:"aux_prediction,omitempty"`
}

// Batch is the result of one sampling call: the experiences, the tree
// indices identifying their priority entries, and per-sample importance
// weights in (0, 1] with max(weights) == 1.
type Batch struct {
	Experiences []Experience `json:"experiences"`
	Indices     []int        `json:"indices"`
	Weights     []float64    `json:"weights"`
}

// Stats summarizes the buffer state for dashboards and checkpointing.
type Stats struct {
	Size          int     `json:"size"`
	Capacity      int     `json:"capacity"`
	TotalPriority float64 `json:"total_priority"`
	MaxPriority   float64 `json:"max_priority"`
	Beta          float64 `json:"beta"`
	TotalAdded    uint64  `json:"total_added"`
}

var (
	// ErrEmptyBuffer is returned when sampling from a buffer with no experiences.
	ErrEmptyBuffer = errors.New("replay buffer is empty")
	// ErrBatchTooLarge is returned when batchSize exceeds the number of stored experiences.
	ErrBatchTooLarge = errors.New("batch size exceeds buffer size")
	// ErrInvalidBatchSize is returned for non-positive batch sizes.
	ErrInvalidBatchSize = errors.New("batch size must be positive")
	// ErrLengthMismatch is returned when indices and priorities disagree in length.
	ErrLengthMismatch = errors.New("mismatched indices and td-error lengths")
	// ErrInvalidIndex is returned when a priority update names a tree index
	// that is not a leaf.
	ErrInvalidIndex = errors.New("tree index does not address a leaf")
)

// Buffer is implemented by both the prioritized and the uniform buffer so
// callers can A/B the two without changing the training loop.
type Buffer interface {
	Add(exp Experience)
	Sample(batchSize int) (Batch, error)
	UpdatePriorities(indices []int, tdErrors []float64) error
	Stats() Stats
	Len() int
}
