package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DistributionalConfig configures the categorical (C51-style) value network.
type DistributionalConfig struct {
	InputDim   int     `mapstructure:"input_dim"`
	HiddenDims []int   `mapstructure:"hidden_dims"`
	NumActions int     `mapstructure:"num_actions"`
	NumAtoms   int     `mapstructure:"num_atoms"`
	VMin       float64 `mapstructure:"v_min"`
	VMax       float64 `mapstructure:"v_max"`
	Seed       int64   `mapstructure:"seed"`
}

// Validate checks the configuration ranges.
func (c DistributionalConfig) Validate() error {
	if err := validateDims(c.InputDim, c.NumActions); err != nil {
		return err
	}
	if err := validateHidden(c.HiddenDims); err != nil {
		return err
	}
	if c.NumAtoms < 2 {
		return fmt.Errorf("num_atoms must be at least 2, got %d", c.NumAtoms)
	}
	if c.VMin >= c.VMax {
		return fmt.Errorf("v_min must be below v_max, got [%g, %g]", c.VMin, c.VMax)
	}
	return nil
}

// Distributional predicts, for each action, a categorical distribution over
// NumAtoms fixed support points in [VMin, VMax] instead of a scalar value.
// The distribution captures return variance and skew a scalar head cannot;
// the cross-entropy projection used to train it lives in the trainer.
type Distributional struct {
	cfg     DistributionalConfig
	trunk   []*linear
	head    *linear
	support []float64
}

// NewDistributional constructs the network or fails fast on invalid
// configuration.
func NewDistributional(cfg DistributionalConfig) (*Distributional, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid distributional config: %w", err)
	}

	rng := newRNG(cfg.Seed)
	trunk := make([]*linear, len(cfg.HiddenDims))
	in := cfg.InputDim
	for i, h := range cfg.HiddenDims {
		trunk[i] = newLinear(in, h, rng)
		in = h
	}

	support := make([]float64, cfg.NumAtoms)
	step := (cfg.VMax - cfg.VMin) / float64(cfg.NumAtoms-1)
	for i := range support {
		support[i] = cfg.VMin + float64(i)*step
	}

	return &Distributional{
		cfg:     cfg,
		trunk:   trunk,
		head:    newLinear(in, cfg.NumActions*cfg.NumAtoms, rng),
		support: support,
	}, nil
}

// Support returns a copy of the fixed atom support vector.
func (d *Distributional) Support() []float64 {
	out := make([]float64, len(d.support))
	copy(out, d.support)
	return out
}

// Distributions returns the per-action atom probabilities for a batch as a
// (batch*numActions)×numAtoms matrix in sample-major order: row
// b*numActions+a holds the distribution for sample b, action a. Each row is
// softmaxed, so it sums to 1.
func (d *Distributional) Distributions(states *mat.Dense) *mat.Dense {
	h := states
	for _, layer := range d.trunk {
		h = layer.forward(h)
		relu(h)
	}
	logits := d.head.forward(h)

	rows, _ := logits.Dims()
	probs := mat.NewDense(rows*d.cfg.NumActions, d.cfg.NumAtoms, nil)
	for b := 0; b < rows; b++ {
		for a := 0; a < d.cfg.NumActions; a++ {
			for k := 0; k < d.cfg.NumAtoms; k++ {
				probs.Set(b*d.cfg.NumActions+a, k, logits.At(b, a*d.cfg.NumAtoms+k))
			}
		}
	}
	softmaxRows(probs)
	return probs
}

// QValues collapses a Distributions result back to scalar Q-values via the
// dot product with the support, returning batch×numActions.
func (d *Distributional) QValues(probs *mat.Dense) *mat.Dense {
	rows, _ := probs.Dims()
	batch := rows / d.cfg.NumActions

	q := mat.NewDense(batch, d.cfg.NumActions, nil)
	for b := 0; b < batch; b++ {
		for a := 0; a < d.cfg.NumActions; a++ {
			var ev float64
			for k := 0; k < d.cfg.NumAtoms; k++ {
				ev += probs.At(b*d.cfg.NumActions+a, k) * d.support[k]
			}
			q.Set(b, a, ev)
		}
	}
	return q
}

// Forward implements Network by collapsing the predicted distributions to
// expected values.
func (d *Distributional) Forward(states *mat.Dense) *mat.Dense {
	return d.QValues(d.Distributions(states))
}

// InputDim implements Network.
func (d *Distributional) InputDim() int { return d.cfg.InputDim }

// NumActions implements Network.
func (d *Distributional) NumActions() int { return d.cfg.NumActions }

// NumAtoms returns the support size.
func (d *Distributional) NumAtoms() int { return d.cfg.NumAtoms }
