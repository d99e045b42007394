// Package analytics records search events: every event updates the
// in-process Aggregator, and when a Publisher is configured events are also
// batched out to Kafka.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/sandeepstha184/IR-assignment123/pkg/kafka"
)

const eventKey = "search"

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Collector struct {
	aggregator    *Aggregator
	publisher     Publisher
	eventCh       chan SearchEvent
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
	started       bool
}

// NewCollector returns a Collector feeding agg. publisher may be nil, in
// which case nothing leaves the process.
func NewCollector(agg *Aggregator, publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		aggregator:    agg,
		publisher:     publisher,
		eventCh:       make(chan SearchEvent, bufferSize),
		batchSize:     100,
		flushInterval: 2 * time.Second,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It is a no-op without a publisher.
func (c *Collector) Start(ctx context.Context) {
	if c.publisher == nil {
		return
	}
	c.started = true
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track records event. It never blocks: when the publish buffer is full
// the event still reaches the aggregator but is not published.
func (c *Collector) Track(event SearchEvent) {
	if c.aggregator != nil {
		c.aggregator.Record(event)
	}
	if !c.started {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the final flush. Track must
// not be called after Close.
func (c *Collector) Close() {
	if !c.started {
		return
	}
	close(c.eventCh)
	<-c.done
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()
	batch := make([]kafka.Event, 0, c.batchSize)

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := c.publisher.PublishBatch(ctx, batch); err != nil {
			c.logger.Error("failed to publish analytics events", "events", len(batch), "error", err)
		} else {
			c.logger.Debug("analytics events published", "events", len(batch))
		}
		batch = batch[:0]
	}
	finalFlush := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flush(flushCtx)
	}

	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				finalFlush()
				return
			}
			batch = append(batch, event.message())
			if len(batch) >= c.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			c.drain(&batch)
			finalFlush()
			return
		}
	}
}

func (c *Collector) drain(batch *[]kafka.Event) {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			*batch = append(*batch, event.message())
		default:
			return
		}
	}
}

// message keys every event the same so they land on one partition in
// arrival order. Headers let consumers filter without decoding the body.
func (e SearchEvent) message() kafka.Event {
	h := map[string]string{"event-type": string(e.Type), "source": string(e.Source)}
	if e.RequestID != "" {
		h["request-id"] = e.RequestID
	}
	return kafka.Event{Key: eventKey, Value: e, Headers: h, Time: e.Timestamp}
}
