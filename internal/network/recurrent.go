package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RecurrentConfig configures the sequential value network.
type RecurrentConfig struct {
	InputDim   int   `mapstructure:"input_dim"`
	HiddenDim  int   `mapstructure:"hidden_dim"`
	NumActions int   `mapstructure:"num_actions"`
	Seed       int64 `mapstructure:"seed"`
}

// Validate checks the configuration ranges.
func (c RecurrentConfig) Validate() error {
	if err := validateDims(c.InputDim, c.NumActions); err != nil {
		return err
	}
	if c.HiddenDim <= 0 {
		return fmt.Errorf("hidden dim must be positive, got %d", c.HiddenDim)
	}
	return nil
}

// Recurrent encodes an ordered window of past states with a GRU cell and
// applies a dueling head to the final hidden state. The hidden state is
// threaded explicitly through every call, and nothing is kept inside the
// network itself. A caller runs stateful online inference by feeding the
// returned hidden state back in.
type Recurrent struct {
	cfg RecurrentConfig

	// GRU cell parameters: W* act on the input, U* on the hidden state.
	wz, wr, wh *mat.Dense
	uz, ur, uh *mat.Dense
	bz, br, bh *mat.VecDense

	value     *linear
	advantage *linear
}

// NewRecurrent constructs the network or fails fast on invalid
// configuration.
func NewRecurrent(cfg RecurrentConfig) (*Recurrent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recurrent config: %w", err)
	}

	rng := newRNG(cfg.Seed)
	gate := func(in int) *mat.Dense {
		scale := math.Sqrt(1.0 / float64(in))
		w := make([]float64, cfg.HiddenDim*in)
		for i := range w {
			w[i] = rng.NormFloat64() * scale
		}
		return mat.NewDense(cfg.HiddenDim, in, w)
	}

	return &Recurrent{
		cfg: cfg,
		wz:  gate(cfg.InputDim), wr: gate(cfg.InputDim), wh: gate(cfg.InputDim),
		uz: gate(cfg.HiddenDim), ur: gate(cfg.HiddenDim), uh: gate(cfg.HiddenDim),
		bz: mat.NewVecDense(cfg.HiddenDim, nil),
		br: mat.NewVecDense(cfg.HiddenDim, nil),
		bh: mat.NewVecDense(cfg.HiddenDim, nil),

		value:     newLinear(cfg.HiddenDim, 1, rng),
		advantage: newLinear(cfg.HiddenDim, cfg.NumActions, rng),
	}, nil
}

// InitialHidden returns a fresh zero hidden state.
func (r *Recurrent) InitialHidden() *mat.VecDense {
	return mat.NewVecDense(r.cfg.HiddenDim, nil)
}

// Step advances the GRU cell by one observation and returns the new hidden
// state. The input hidden state is not mutated.
func (r *Recurrent) Step(state []float64, hidden *mat.VecDense) *mat.VecDense {
	x := mat.NewVecDense(len(state), state)

	z := gateActivation(r.wz, r.uz, r.bz, x, hidden, sigmoid)
	rt := gateActivation(r.wr, r.ur, r.br, x, hidden, sigmoid)

	// Candidate state uses the reset-gated hidden.
	gated := mat.NewVecDense(r.cfg.HiddenDim, nil)
	gated.MulElemVec(rt, hidden)
	cand := gateActivation(r.wh, r.uh, r.bh, x, gated, math.Tanh)

	next := mat.NewVecDense(r.cfg.HiddenDim, nil)
	for i := 0; i < r.cfg.HiddenDim; i++ {
		zi := z.AtVec(i)
		next.SetVec(i, (1-zi)*hidden.AtVec(i)+zi*cand.AtVec(i))
	}
	return next
}

// Forward encodes a window of states (rows, oldest first) starting from the
// given hidden state and returns the per-action Q-values for the final step
// together with the final hidden state.
func (r *Recurrent) Forward(window *mat.Dense, hidden *mat.VecDense) (*mat.VecDense, *mat.VecDense) {
	steps, _ := window.Dims()
	h := hidden
	for t := 0; t < steps; t++ {
		h = r.Step(mat.Row(nil, t, window), h)
	}

	row := mat.NewDense(1, r.cfg.HiddenDim, mat.Col(nil, 0, h))
	v := r.value.forward(row)
	a := r.advantage.forward(row)

	var meanA float64
	for c := 0; c < r.cfg.NumActions; c++ {
		meanA += a.At(0, c)
	}
	meanA /= float64(r.cfg.NumActions)

	q := mat.NewVecDense(r.cfg.NumActions, nil)
	for c := 0; c < r.cfg.NumActions; c++ {
		q.SetVec(c, v.At(0, 0)+a.At(0, c)-meanA)
	}
	return q, h
}

// InputDim returns the per-step observation dimensionality.
func (r *Recurrent) InputDim() int { return r.cfg.InputDim }

// NumActions returns the action count of the head.
func (r *Recurrent) NumActions() int { return r.cfg.NumActions }

func gateActivation(w, u *mat.Dense, b, x, h *mat.VecDense, act func(float64) float64) *mat.VecDense {
	dim, _ := w.Dims()
	wx := mat.NewVecDense(dim, nil)
	wx.MulVec(w, x)
	uh := mat.NewVecDense(dim, nil)
	uh.MulVec(u, h)

	out := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		out.SetVec(i, act(wx.AtVec(i)+uh.AtVec(i)+b.AtVec(i)))
	}
	return out
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
