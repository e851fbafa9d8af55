package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestCompleted   EventType = "request_completed"
	EventConfigServed       EventType = "config_served"
	EventConfigWriteFailed  EventType = "config_write_failed"
	EventPropertiesReloaded EventType = "properties_reloaded"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Route      string
	Duration   time.Duration
	StatusCode int
	Bytes      int64
	Failed     bool
}

type Collector struct {
	eventCh    chan MetricEvent
	done       chan struct{}
	metrics    *Metrics
	prometheus *promMetrics
	logger     *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh:    make(chan MetricEvent, bufferSize),
		done:       make(chan struct{}),
		metrics:    NewMetrics(),
		prometheus: newPromMetrics(),
		logger:     logger,
	}
}

// Emit queues an event. It never blocks: when the buffer is full the event
// is dropped. Emit on a nil Collector is a no-op.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Metrics buffer full, dropping event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

// Wait blocks until a started collector has drained its buffer after ctx
// was cancelled.
func (c *Collector) Wait() {
	<-c.done
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer close(c.done)
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	c.prometheus.observe(event)

	switch event.Type {
	case EventRequestCompleted:
		c.metrics.RecordRequest(event.Route, event.Duration, event.StatusCode)

	case EventConfigServed:
		c.metrics.RecordConfigServed(event.Bytes)

	case EventConfigWriteFailed:
		c.metrics.RecordWriteFailure()

	case EventPropertiesReloaded:
		c.metrics.RecordReload(event.Timestamp, event.Failed)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
