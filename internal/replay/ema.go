package replay

import (
	"fmt"
	"math"
)

// MovingAverage tracks an exponential moving estimate of the mean and
// variance of a non-stationary scalar stream, typically TD errors. The first
// batch sets mean and variance directly instead of blending from zero;
// blending from zero would report an artificially small variance for the
// whole warm-up period. Keep that rule intact.
type MovingAverage struct {
	decay float64
	eps   float64

	mean     float64
	variance float64
	count    uint64
}

// MovingAverageState is the checkpointable portion of a MovingAverage.
type MovingAverageState struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Count    uint64  `json:"count"`
}

// NewMovingAverage constructs an estimator with the given decay in (0,1) and
// a small eps keeping Normalize finite when the variance collapses.
func NewMovingAverage(decay, eps float64) (*MovingAverage, error) {
	if decay <= 0 || decay >= 1 {
		return nil, fmt.Errorf("moving average decay must be in (0,1), got %g", decay)
	}
	if eps <= 0 {
		return nil, fmt.Errorf("moving average eps must be positive, got %g", eps)
	}
	return &MovingAverage{decay: decay, eps: eps}, nil
}

// Update folds a batch of values into the running estimates. Empty batches
// are a no-op.
func (m *MovingAverage) Update(values []float64) {
	if len(values) == 0 {
		return
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	batchMean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - batchMean
		sq += d * d
	}
	batchVar := sq / float64(len(values))

	if m.count == 0 {
		m.mean = batchMean
		m.variance = batchVar
	} else {
		m.mean = m.decay*m.mean + (1-m.decay)*batchMean
		m.variance = m.decay*m.variance + (1-m.decay)*batchVar
	}
	m.count += uint64(len(values))
}

// Normalize returns values divided by the current standard deviation, first
// subtracting the mean when subtractMean is set. Scale-only normalization
// (subtractMean=false) preserves the sign of each value, which matters when
// the values are TD errors feeding priority updates.
func (m *MovingAverage) Normalize(values []float64, subtractMean bool) []float64 {
	std := math.Sqrt(m.variance + m.eps)
	out := make([]float64, len(values))
	for i, v := range values {
		if subtractMean {
			out[i] = (v - m.mean) / std
		} else {
			out[i] = v / std
		}
	}
	return out
}

// Mean returns the current mean estimate.
func (m *MovingAverage) Mean() float64 { return m.mean }

// Variance returns the current variance estimate.
func (m *MovingAverage) Variance() float64 { return m.variance }

// State returns the checkpointable estimator state.
func (m *MovingAverage) State() MovingAverageState {
	return MovingAverageState{Mean: m.mean, Variance: m.variance, Count: m.count}
}

// LoadState restores a previously checkpointed state.
func (m *MovingAverage) LoadState(state MovingAverageState) {
	m.mean = state.Mean
	m.variance = state.Variance
	m.count = state.Count
}
