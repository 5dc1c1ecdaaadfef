package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/alphaforge/replay/internal/events"
	"github.com/alphaforge/replay/internal/metrics"
	"github.com/alphaforge/replay/internal/replay"
)

// ReplayService is the facade the transport layer talks to: it wraps a
// replay.Buffer with logging, metrics, and event publication.
type ReplayService struct {
	buffer    replay.Buffer
	collector *metrics.Collector
	events    events.Publisher
	logger    *zerolog.Logger
}

// NewReplayService creates a new ReplayService.
func NewReplayService(buffer replay.Buffer, collector *metrics.Collector, publisher events.Publisher, logger *zerolog.Logger) *ReplayService {
	return &ReplayService{
		buffer:    buffer,
		collector: collector,
		events:    publisher,
		logger:    logger,
	}
}

// Add stores a single experience.
func (s *ReplayService) Add(ctx context.Context, exp replay.Experience) {
	s.buffer.Add(exp)
	s.collector.ExperiencesAdded(1, s.buffer.Len())
}

// AddBatch stores multiple experiences and returns the stored count.
func (s *ReplayService) AddBatch(ctx context.Context, exps []replay.Experience) int {
	for _, exp := range exps {
		s.buffer.Add(exp)
	}
	s.collector.ExperiencesAdded(len(exps), s.buffer.Len())
	return len(exps)
}

// Sample draws a batch for training.
func (s *ReplayService) Sample(ctx context.Context, batchSize int) (replay.Batch, error) {
	start := time.Now()
	batch, err := s.buffer.Sample(batchSize)
	if err != nil {
		s.collector.SampleRejected(batchSize, err.Error())
		return replay.Batch{}, err
	}

	stats := s.buffer.Stats()
	s.collector.BatchSampled(batchSize, stats.Beta, time.Since(start))

	if err := s.events.PublishBufferStatus(ctx, events.BufferStatusEvent{
		Size:          stats.Size,
		Capacity:      stats.Capacity,
		TotalPriority: stats.TotalPriority,
		Beta:          stats.Beta,
		BatchSize:     batchSize,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("buffer status event publish failed")
	}

	return batch, nil
}

// UpdatePriorities re-prioritizes sampled experiences from fresh TD errors.
func (s *ReplayService) UpdatePriorities(ctx context.Context, indices []int, tdErrors []float64) error {
	if err := s.buffer.UpdatePriorities(indices, tdErrors); err != nil {
		return err
	}

	stats := s.buffer.Stats()
	s.collector.PrioritiesUpdated(len(indices), stats.MaxPriority)

	if err := s.events.PublishPriorityUpdate(ctx, events.PriorityUpdateEvent{
		Count:       len(indices),
		MaxPriority: stats.MaxPriority,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("priority update event publish failed")
	}
	return nil
}

// Stats returns buffer statistics.
func (s *ReplayService) Stats(ctx context.Context) replay.Stats {
	return s.buffer.Stats()
}
