package writer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gamehub/pkg/logging"
	"gamehub/pkg/metrics"

	"go.uber.org/zap"
)

// AsyncWriter applies writes in the background using a worker pool and a
// bounded queue, so callers on a hot path never wait for the destination.
type AsyncWriter struct {
	sink       Sink
	queue      chan Op
	workers    int
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	config     AsyncWriterConfig
	metrics    metrics.MetricsCollector
	logger     *logging.Logger
	sinkName   string

	// closeMu orders Close after in-progress enqueues
	closeMu sync.RWMutex
	closed  bool

	// accessed atomically
	dropped  int64
	accepted int64
	applied  int64
	failed   int64
	pending  int64

	// Metrics ticker for periodic queue depth reporting
	metricsTicker *time.Ticker
	metricsStop   chan struct{}
}

// AsyncWriterConfig configures the async writer behavior.
type AsyncWriterConfig struct {
	// QueueSize is the bounded queue size (default: 1000)
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE"`

	// Workers is the number of concurrent workers (default: 2)
	Workers int `yaml:"workers" env:"WORKERS"`

	// MaxWaitTime is the max time to wait if queue is full.
	// Negative means drop immediately (default: 10ms)
	MaxWaitTime time.Duration `yaml:"max_wait_time" env:"MAX_WAIT_TIME"`

	// OpTimeout bounds each Apply call (0 = no deadline)
	OpTimeout time.Duration `yaml:"op_timeout" env:"OP_TIMEOUT"`
}

// NewAsyncWriter creates a new async writer with bounded queue and worker pool.
// The writer starts processing immediately and must be closed with Close().
func NewAsyncWriter(sink Sink, config AsyncWriterConfig) *AsyncWriter {
	return NewAsyncWriterWithMetrics(sink, config, nil, nil)
}

// NewAsyncWriterWithMetrics creates a new async writer with a metrics collector and logger.
func NewAsyncWriterWithMetrics(sink Sink, config AsyncWriterConfig, collector metrics.MetricsCollector, logger *logging.Logger) *AsyncWriter {
	// Apply defaults
	if config.QueueSize <= 0 {
		config.QueueSize = 1000
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.MaxWaitTime == 0 {
		config.MaxWaitTime = 10 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &AsyncWriter{
		sink:          sink,
		queue:         make(chan Op, config.QueueSize),
		workers:       config.Workers,
		ctx:           ctx,
		cancelFunc:    cancel,
		config:        config,
		metrics:       metrics.OrNoOp(collector),
		logger:        logging.OrNop(logger).Named("writer").Named(sink.Name()),
		sinkName:      sink.Name(),
		metricsTicker: time.NewTicker(5 * time.Second), // Report queue depth every 5s
		metricsStop:   make(chan struct{}),
	}

	// Start worker pool
	for i := 0; i < config.Workers; i++ {
		w.wg.Add(1)
		go w.worker()
	}

	// Start metrics reporter
	go w.reportMetrics()

	return w
}

// Write enqueues an Op for key without blocking on the sink.
// If the queue is full, it waits up to MaxWaitTime before dropping the write.
// Returns ErrQueueFull if the write was dropped due to backpressure.
func (w *AsyncWriter) Write(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return w.Enqueue(ctx, Op{Key: key, Value: value, TTL: ttl})
}

// Enqueue is Write for a prepared Op.
func (w *AsyncWriter) Enqueue(ctx context.Context, op Op) error {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()

	if w.closed {
		return ErrWriterClosed
	}

	// Check if caller's context is cancelled
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	atomic.AddInt64(&w.pending, 1)

	if w.config.MaxWaitTime < 0 {
		select {
		case w.queue <- op:
			atomic.AddInt64(&w.accepted, 1)
			return nil
		default:
			return w.drop()
		}
	}

	timer := time.NewTimer(w.config.MaxWaitTime)
	defer timer.Stop()

	select {
	case w.queue <- op:
		atomic.AddInt64(&w.accepted, 1)
		return nil
	case <-timer.C:
		return w.drop()
	case <-ctx.Done():
		atomic.AddInt64(&w.pending, -1)
		return ctx.Err()
	}
}

func (w *AsyncWriter) drop() error {
	atomic.AddInt64(&w.pending, -1)
	atomic.AddInt64(&w.dropped, 1)
	w.metrics.RecordWriteDropped(w.sinkName)
	return ErrQueueFull
}

// worker processes write operations from the queue.
func (w *AsyncWriter) worker() {
	defer w.wg.Done()

	for {
		select {
		case op := <-w.queue:
			w.apply(op)
		case <-w.ctx.Done():
			// Drain remaining items in queue before exiting
			for {
				select {
				case op := <-w.queue:
					w.apply(op)
				default:
					return
				}
			}
		}
	}
}

func (w *AsyncWriter) apply(op Op) {
	defer atomic.AddInt64(&w.pending, -1)

	ctx := context.Background()
	if w.config.OpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.OpTimeout)
		defer cancel()
	}

	start := time.Now()
	err := w.sink.Apply(ctx, op)
	w.metrics.RecordAsyncWrite(w.sinkName, err == nil, time.Since(start))

	if err == nil {
		atomic.AddInt64(&w.applied, 1)
		return
	}
	atomic.AddInt64(&w.failed, 1)
	w.logger.Warn("async write failed",
		zap.String("key", op.Key),
		zap.Error(err),
	)
}

// Flush waits until every accepted write has been applied or timeout elapses.
func (w *AsyncWriter) Flush(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		if atomic.LoadInt64(&w.pending) == 0 {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrFlushTimeout
		}

		time.Sleep(5 * time.Millisecond)
	}
}

// Close stops accepting new writes and waits for workers to complete.
// Any writes in the queue will be processed before shutdown.
func (w *AsyncWriter) Close() error {
	w.closeMu.Lock()
	if w.closed {
		w.closeMu.Unlock()
		return nil
	}
	w.closed = true
	w.closeMu.Unlock()

	close(w.metricsStop)
	w.metricsTicker.Stop()

	// Signal workers to stop after draining queue
	w.cancelFunc()

	w.wg.Wait()

	return nil
}

// reportMetrics periodically reports queue depth.
func (w *AsyncWriter) reportMetrics() {
	for {
		select {
		case <-w.metricsTicker.C:
			w.metrics.RecordQueueDepth(w.sinkName, len(w.queue))
		case <-w.metricsStop:
			return
		}
	}
}

// Stats returns the writer's counters.
func (w *AsyncWriter) Stats() Stats {
	return Stats{
		Sink:       w.sinkName,
		QueueDepth: len(w.queue),
		Accepted:   atomic.LoadInt64(&w.accepted),
		Applied:    atomic.LoadInt64(&w.applied),
		Failed:     atomic.LoadInt64(&w.failed),
		Dropped:    atomic.LoadInt64(&w.dropped),
	}
}
