package network

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// MLPConfig configures the vanilla value network.
type MLPConfig struct {
	InputDim   int     `mapstructure:"input_dim"`
	HiddenDims []int   `mapstructure:"hidden_dims"`
	NumActions int     `mapstructure:"num_actions"`
	Dropout    float64 `mapstructure:"dropout"`
	Seed       int64   `mapstructure:"seed"`
}

// Validate checks the configuration ranges.
func (c MLPConfig) Validate() error {
	if err := validateDims(c.InputDim, c.NumActions); err != nil {
		return err
	}
	if err := validateHidden(c.HiddenDims); err != nil {
		return err
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0,1), got %g", c.Dropout)
	}
	return nil
}

// MLP is a stack of linear+ReLU blocks with a linear output head producing
// one Q-value per action.
type MLP struct {
	cfg      MLPConfig
	hidden   []*linear
	out      *linear
	rng      *rand.Rand
	training bool
}

// NewMLP constructs the network or fails fast on invalid configuration.
func NewMLP(cfg MLPConfig) (*MLP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mlp config: %w", err)
	}

	rng := newRNG(cfg.Seed)
	hidden := make([]*linear, len(cfg.HiddenDims))
	in := cfg.InputDim
	for i, h := range cfg.HiddenDims {
		hidden[i] = newLinear(in, h, rng)
		in = h
	}

	return &MLP{
		cfg:    cfg,
		hidden: hidden,
		out:    newLinear(in, cfg.NumActions, rng),
		rng:    rng,
	}, nil
}

// SetTraining toggles dropout; inference runs with dropout disabled.
func (m *MLP) SetTraining(training bool) { m.training = training }

// Forward implements Network.
func (m *MLP) Forward(states *mat.Dense) *mat.Dense {
	h := states
	for _, layer := range m.hidden {
		h = layer.forward(h)
		relu(h)
		if m.training {
			dropoutRows(h, m.cfg.Dropout, m.rng)
		}
	}
	return m.out.forward(h)
}

// InputDim implements Network.
func (m *MLP) InputDim() int { return m.cfg.InputDim }

// NumActions implements Network.
func (m *MLP) NumActions() int { return m.cfg.NumActions }
