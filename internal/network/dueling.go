package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DuelingConfig configures the dueling value network.
type DuelingConfig struct {
	InputDim   int   `mapstructure:"input_dim"`
	HiddenDims []int `mapstructure:"hidden_dims"`
	NumActions int   `mapstructure:"num_actions"`
	Seed       int64 `mapstructure:"seed"`
}

// Validate checks the configuration ranges.
func (c DuelingConfig) Validate() error {
	if err := validateDims(c.InputDim, c.NumActions); err != nil {
		return err
	}
	return validateHidden(c.HiddenDims)
}

// Dueling splits a shared trunk into a scalar state-value stream V(s) and a
// per-action advantage stream A(s,a), combined as
//
//	Q(s,a) = V(s) + (A(s,a) - mean_a A(s,a))
//
// The mean subtraction is not optional: without it V and A are only
// identified up to an additive constant and gradients through the two
// streams fight each other.
type Dueling struct {
	cfg       DuelingConfig
	trunk     []*linear
	value     *linear
	advantage *linear
}

// NewDueling constructs the network or fails fast on invalid configuration.
func NewDueling(cfg DuelingConfig) (*Dueling, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dueling config: %w", err)
	}

	rng := newRNG(cfg.Seed)
	trunk := make([]*linear, len(cfg.HiddenDims))
	in := cfg.InputDim
	for i, h := range cfg.HiddenDims {
		trunk[i] = newLinear(in, h, rng)
		in = h
	}

	return &Dueling{
		cfg:       cfg,
		trunk:     trunk,
		value:     newLinear(in, 1, rng),
		advantage: newLinear(in, cfg.NumActions, rng),
	}, nil
}

// Forward implements Network.
func (d *Dueling) Forward(states *mat.Dense) *mat.Dense {
	h := states
	for _, layer := range d.trunk {
		h = layer.forward(h)
		relu(h)
	}

	v := d.value.forward(h)
	a := d.advantage.forward(h)

	rows, cols := a.Dims()
	q := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		var meanA float64
		for c := 0; c < cols; c++ {
			meanA += a.At(r, c)
		}
		meanA /= float64(cols)

		for c := 0; c < cols; c++ {
			q.Set(r, c, v.At(r, 0)+a.At(r, c)-meanA)
		}
	}
	return q
}

// Value returns the state-value stream V(s) for a batch, one row per state.
func (d *Dueling) Value(states *mat.Dense) *mat.Dense {
	h := states
	for _, layer := range d.trunk {
		h = layer.forward(h)
		relu(h)
	}
	return d.value.forward(h)
}

// InputDim implements Network.
func (d *Dueling) InputDim() int { return d.cfg.InputDim }

// NumActions implements Network.
func (d *Dueling) NumActions() int { return d.cfg.NumActions }
