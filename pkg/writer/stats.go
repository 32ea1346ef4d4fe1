package writer

import "errors"

// Stats is a point-in-time view of a writer's counters. Accepted writes
// end up either Applied or Failed; Dropped writes never reach the sink.
type Stats struct {
	Sink string

	QueueDepth int
	Accepted   int64
	Applied    int64
	Failed     int64
	Dropped    int64
}

// Backlog is the number of accepted writes the sink has not seen yet.
func (s Stats) Backlog() int64 {
	return s.Accepted - s.Applied - s.Failed
}

var (
	ErrQueueFull    = errors.New("writer: queue full, write dropped")
	ErrWriterClosed = errors.New("writer: closed")
	ErrFlushTimeout = errors.New("writer: flush timed out with writes pending")
)
