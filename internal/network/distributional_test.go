package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDistributional(t *testing.T) *Distributional {
	t.Helper()
	d, err := NewDistributional(DistributionalConfig{
		InputDim:   8,
		HiddenDims: []int{32},
		NumActions: 3,
		NumAtoms:   51,
		VMin:       -10,
		VMax:       10,
		Seed:       21,
	})
	require.NoError(t, err)
	return d
}

func TestDistributionalConfig_Validate(t *testing.T) {
	base := DistributionalConfig{
		InputDim: 4, NumActions: 2, NumAtoms: 51, VMin: -10, VMax: 10,
	}

	cases := []struct {
		name   string
		mutate func(*DistributionalConfig)
	}{
		{"one atom", func(c *DistributionalConfig) { c.NumAtoms = 1 }},
		{"inverted support", func(c *DistributionalConfig) { c.VMin = 10; c.VMax = -10 }},
		{"degenerate support", func(c *DistributionalConfig) { c.VMin = 5; c.VMax = 5 }},
		{"zero actions", func(c *DistributionalConfig) { c.NumActions = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			_, err := NewDistributional(cfg)
			assert.Error(t, err)
		})
	}
}

func TestDistributional_SupportSpansRange(t *testing.T) {
	d := newTestDistributional(t)
	support := d.Support()

	require.Len(t, support, 51)
	assert.InDelta(t, -10.0, support[0], 1e-12)
	assert.InDelta(t, 10.0, support[50], 1e-12)
	assert.InDelta(t, 0.4, support[1]-support[0], 1e-12)
}

func TestDistributional_RowsSumToOne(t *testing.T) {
	d := newTestDistributional(t)

	probs := d.Distributions(randomStates(6, 8, 22))
	rows, cols := probs.Dims()
	require.Equal(t, 6*3, rows)
	require.Equal(t, 51, cols)

	for r := 0; r < rows; r++ {
		var sum float64
		for c := 0; c < cols; c++ {
			p := probs.At(r, c)
			assert.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		assert.InDeltaf(t, 1.0, sum, 1e-9, "row %d", r)
	}
}

func TestDistributional_QValuesMatchManualDotProduct(t *testing.T) {
	d := newTestDistributional(t)

	states := randomStates(4, 8, 23)
	probs := d.Distributions(states)
	q := d.QValues(probs)
	support := d.Support()

	rows, cols := q.Dims()
	require.Equal(t, 4, rows)
	require.Equal(t, 3, cols)

	for b := 0; b < rows; b++ {
		for a := 0; a < cols; a++ {
			var want float64
			for k, s := range support {
				want += probs.At(b*3+a, k) * s
			}
			assert.InDelta(t, want, q.At(b, a), 1e-9)
		}
	}
}

func TestDistributional_ForwardCollapsesWithinSupport(t *testing.T) {
	d := newTestDistributional(t)

	q := d.Forward(randomStates(5, 8, 24))
	rows, cols := q.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := q.At(r, c)
			assert.GreaterOrEqual(t, v, -10.0)
			assert.LessOrEqual(t, v, 10.0)
		}
	}
}
