package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuelingConfig_Validate(t *testing.T) {
	_, err := NewDueling(DuelingConfig{InputDim: 0, NumActions: 2})
	assert.Error(t, err)

	_, err = NewDueling(DuelingConfig{InputDim: 4, NumActions: 2, HiddenDims: []int{-1}})
	assert.Error(t, err)
}

func TestDueling_AdvantagesAreMeanCentered(t *testing.T) {
	d, err := NewDueling(DuelingConfig{
		InputDim:   10,
		HiddenDims: []int{64, 32},
		NumActions: 4,
		Seed:       11,
	})
	require.NoError(t, err)

	states := randomStates(16, 10, 12)
	q := d.Forward(states)
	v := d.Value(states)

	// mean_a(Q(s,a) - V(s)) == 0 for every state in the batch.
	rows, cols := q.Dims()
	for r := 0; r < rows; r++ {
		var mean float64
		for c := 0; c < cols; c++ {
			mean += q.At(r, c) - v.At(r, 0)
		}
		mean /= float64(cols)
		assert.InDelta(t, 0.0, mean, 1e-9)
	}
}

func TestDueling_ForwardShape(t *testing.T) {
	d, err := NewDueling(DuelingConfig{
		InputDim:   3,
		HiddenDims: []int{8},
		NumActions: 5,
		Seed:       13,
	})
	require.NoError(t, err)

	q := d.Forward(randomStates(7, 3, 14))
	rows, cols := q.Dims()
	assert.Equal(t, 7, rows)
	assert.Equal(t, 5, cols)
}
