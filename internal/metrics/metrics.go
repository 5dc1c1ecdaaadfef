package metrics

import (
	"time"

	"github.com/rs/zerolog"
)

// Collector emits buffer metrics as structured log events for downstream
// log-based aggregation.
type Collector struct {
	logger zerolog.Logger
}

func NewCollector(logger zerolog.Logger) *Collector {
	return &Collector{
		logger: logger,
	}
}

// Track experience additions
func (c *Collector) ExperiencesAdded(count int, bufferSize int) {
	c.logger.Debug().
		Str("metric", "experiences_added").
		Int("count", count).
		Int("buffer_size", bufferSize).
		Msg("Experience add metric")
}

// Track sampling calls
func (c *Collector) BatchSampled(batchSize int, beta float64, duration time.Duration) {
	c.logger.Info().
		Str("metric", "batch_sampled").
		Int("batch_size", batchSize).
		Float64("beta", beta).
		Dur("duration", duration).
		Msg("Sample metric")
}

// Track priority updates
func (c *Collector) PrioritiesUpdated(count int, maxPriority float64) {
	c.logger.Info().
		Str("metric", "priorities_updated").
		Int("count", count).
		Float64("max_priority", maxPriority).
		Msg("Priority update metric")
}

// Track rejected sampling calls
func (c *Collector) SampleRejected(batchSize int, reason string) {
	c.logger.Warn().
		Str("metric", "sample_rejected").
		Int("batch_size", batchSize).
		Str("reason", reason).
		Msg("Sample precondition failure")
}
