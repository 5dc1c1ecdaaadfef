// Package network implements the value-network family used by the training
// loop: a plain MLP, a dueling head, a recurrent encoder for state windows,
// and a categorical distributional head. Networks are forward-only here;
// gradient computation belongs to the external trainer.
package network

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Network produces one scalar value estimate per action for a batch of
// states. States are rows of a batch×inputDim matrix; the result is
// batch×numActions.
type Network interface {
	Forward(states *mat.Dense) *mat.Dense
	InputDim() int
	NumActions() int
}

// linear is a fully connected layer with an out×in weight matrix and a
// per-output bias.
type linear struct {
	w *mat.Dense
	b *mat.VecDense
}

// newLinear He-initializes a layer, the usual choice ahead of ReLU.
func newLinear(in, out int, rng *rand.Rand) *linear {
	scale := math.Sqrt(2.0 / float64(in))
	w := make([]float64, in*out)
	for i := range w {
		w[i] = rng.NormFloat64() * scale
	}
	return &linear{
		w: mat.NewDense(out, in, w),
		b: mat.NewVecDense(out, nil),
	}
}

// forward computes x·wᵀ + b for a batch×in input, returning batch×out.
func (l *linear) forward(x *mat.Dense) *mat.Dense {
	rows, _ := x.Dims()
	out, _ := l.w.Dims()

	y := mat.NewDense(rows, out, nil)
	y.Mul(x, l.w.T())
	for r := 0; r < rows; r++ {
		for c := 0; c < out; c++ {
			y.Set(r, c, y.At(r, c)+l.b.AtVec(c))
		}
	}
	return y
}

func relu(x *mat.Dense) {
	x.Apply(func(_, _ int, v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}, x)
}

// softmaxRows applies a numerically stable softmax to each row in place.
func softmaxRows(x *mat.Dense) {
	rows, cols := x.Dims()
	for r := 0; r < rows; r++ {
		maxV := x.At(r, 0)
		for c := 1; c < cols; c++ {
			if v := x.At(r, c); v > maxV {
				maxV = v
			}
		}
		var sum float64
		for c := 0; c < cols; c++ {
			e := math.Exp(x.At(r, c) - maxV)
			x.Set(r, c, e)
			sum += e
		}
		for c := 0; c < cols; c++ {
			x.Set(r, c, x.At(r, c)/sum)
		}
	}
}

// dropoutRows zeroes entries with probability rate and rescales the
// survivors (inverted dropout), so inference needs no compensation.
func dropoutRows(x *mat.Dense, rate float64, rng *rand.Rand) {
	if rate == 0 {
		return
	}
	keep := 1 - rate
	x.Apply(func(_, _ int, v float64) float64 {
		if rng.Float64() < rate {
			return 0
		}
		return v / keep
	}, x)
}

func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func validateDims(inputDim, numActions int) error {
	if inputDim <= 0 {
		return fmt.Errorf("input dim must be positive, got %d", inputDim)
	}
	if numActions <= 0 {
		return fmt.Errorf("action count must be positive, got %d", numActions)
	}
	return nil
}

func validateHidden(hiddenDims []int) error {
	for i, h := range hiddenDims {
		if h <= 0 {
			return fmt.Errorf("hidden dim %d must be positive, got %d", i, h)
		}
	}
	return nil
}
