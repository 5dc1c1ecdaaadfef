package events

import "context"

// Publisher is implemented by downstream fan-out mechanisms.
type Publisher interface {
	PublishBufferStatus(ctx context.Context, payload BufferStatusEvent) error
	PublishPriorityUpdate(ctx context.Context, payload PriorityUpdateEvent) error
}

// BufferStatusEvent is emitted after sampling so dashboards can follow the
// buffer's fill level and annealing progress.
type BufferStatusEvent struct {
	Size          int     `json:"size"`
	Capacity      int     `json:"capacity"`
	TotalPriority float64 `json:"total_priority"`
	Beta          float64 `json:"beta"`
	BatchSize     int     `json:"batch_size"`
}

// PriorityUpdateEvent tracks each re-prioritization pass.
type PriorityUpdateEvent struct {
	Count       int     `json:"count"`
	MaxPriority float64 `json:"max_priority"`
}

// NoopPublisher logs nothing; useful for tests.
type NoopPublisher struct{}

// PublishBufferStatus satisfies Publisher.
func (NoopPublisher) PublishBufferStatus(context.Context, BufferStatusEvent) error { return nil }

// PublishPriorityUpdate satisfies Publisher.
func (NoopPublisher) PublishPriorityUpdate(context.Context, PriorityUpdateEvent) error { return nil }
