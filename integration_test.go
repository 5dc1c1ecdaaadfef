package main

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/alphaforge/replay/internal/events"
	"github.com/alphaforge/replay/internal/metrics"
	"github.com/alphaforge/replay/internal/network"
	"github.com/alphaforge/replay/internal/replay"
	"github.com/alphaforge/replay/internal/service"
)

const stateDim = 6

func newService(t *testing.T, buffer replay.Buffer) *service.ReplayService {
	t.Helper()
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return service.NewReplayService(buffer, metrics.NewCollector(logger), events.NoopPublisher{}, &logger)
}

func syntheticExperience(i int) replay.Experience {
	state := make([]float64, stateDim)
	next := make([]float64, stateDim)
	for d := 0; d < stateDim; d++ {
		state[d] = math.Sin(float64(i + d))
		next[d] = math.Sin(float64(i + d + 1))
	}
	return replay.Experience{
		State:     state,
		Action:    i % 3,
		Reward:    math.Cos(float64(i)),
		NextState: next,
		Done:      i%50 == 49,
	}
}

// TestTrainingLoopIntegration exercises the collect/sample/re-prioritize
// cycle the way a trainer drives it, with a value network in the loop.
func TestTrainingLoopIntegration(t *testing.T) {
	cfg := replay.DefaultPrioritizedConfig(512)
	cfg.Seed = 17
	buffer, err := replay.NewPrioritizedBuffer(cfg)
	require.NoError(t, err)
	svc := newService(t, buffer)
	ctx := context.Background()

	net, err := network.NewDueling(network.DuelingConfig{
		InputDim:   stateDim,
		HiddenDims: []int{32},
		NumActions: 3,
		Seed:       18,
	})
	require.NoError(t, err)

	for i := 0; i < 256; i++ {
		svc.Add(ctx, syntheticExperience(i))
	}
	require.Equal(t, 256, svc.Stats(ctx).Size)

	for step := 0; step < 20; step++ {
		batch, err := svc.Sample(ctx, 32)
		require.NoError(t, err)
		require.Len(t, batch.Experiences, 32)

		states := mat.NewDense(32, stateDim, nil)
		for r, exp := range batch.Experiences {
			states.SetRow(r, exp.State)
		}
		q := net.Forward(states)

		// Pseudo TD errors: predicted value of the taken action minus the
		// observed reward. Real bootstrapping (and done-masking) lives in
		// the trainer.
		tdErrors := make([]float64, 32)
		for r, exp := range batch.Experiences {
			tdErrors[r] = q.At(r, exp.Action) - exp.Reward
		}
		require.NoError(t, svc.UpdatePriorities(ctx, batch.Indices, tdErrors))

		for _, w := range batch.Weights {
			assert.Greater(t, w, 0.0)
			assert.LessOrEqual(t, w, 1.0)
		}
	}

	stats := svc.Stats(ctx)
	assert.Greater(t, stats.Beta, cfg.Beta)
	assert.Greater(t, stats.TotalPriority, 0.0)
}

// TestBufferKindsShareAPI verifies the uniform baseline is a drop-in
// replacement for the prioritized buffer behind the service facade.
func TestBufferKindsShareAPI(t *testing.T) {
	prioritized, err := replay.NewPrioritizedBuffer(replay.DefaultPrioritizedConfig(64))
	require.NoError(t, err)
	uniform, err := replay.NewUniformBuffer(64, 3)
	require.NoError(t, err)

	for _, buffer := range []replay.Buffer{prioritized, uniform} {
		svc := newService(t, buffer)
		ctx := context.Background()

		for i := 0; i < 64; i++ {
			svc.Add(ctx, syntheticExperience(i))
		}

		batch, err := svc.Sample(ctx, 16)
		require.NoError(t, err)
		assert.Len(t, batch.Experiences, 16)
		assert.Len(t, batch.Weights, 16)
		require.NoError(t, svc.UpdatePriorities(ctx, batch.Indices, make([]float64, 16)))

		stats := svc.Stats(ctx)
		assert.Equal(t, 64, stats.Size)
		assert.Equal(t, 64, stats.Capacity)
	}
}
