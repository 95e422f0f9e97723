package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Bus is the consume side of the message transport. Fetch returns the
// next message without acknowledging it; Commit acknowledges.
type Bus interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer runs the ingestion loop. Messages are sharded to workers by
// partition: the vehicle id partition key puts all of one vehicle's
// messages on one partition, so per-vehicle processing and
// acknowledgment stay in arrival order while distinct partitions proceed
// concurrently. A Retry decision re-presents the same message to the
// coordinator after its backoff, standing in for transport redelivery,
// so no later message on that partition is acknowledged past it.
type Consumer struct {
	bus     Bus
	coord   *Coordinator
	workers int
}

func NewConsumer(bus Bus, coord *Coordinator, workers int) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{bus: bus, coord: coord, workers: workers}
}

// Run consumes until the context is cancelled. It returns the fetch error
// that ended the loop, or nil on clean cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	shards := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(ch chan kafka.Message) {
			defer wg.Done()
			c.work(ctx, ch)
		}(shards[i])
	}

	var runErr error
	for {
		m, err := c.bus.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			runErr = err
			break
		}
		select {
		case shards[m.Partition%c.workers] <- m:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	for _, ch := range shards {
		close(ch)
	}
	wg.Wait()
	return runErr
}

// work processes one shard's messages sequentially.
func (c *Consumer) work(ctx context.Context, ch chan kafka.Message) {
	for m := range ch {
		c.handle(ctx, m)
	}
}

// handle drives one message to a final ack or dead-letter decision.
func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	key := messageKey(m)
	for {
		out := c.coord.Handle(ctx, key, m.Value)
		switch out.Decision {
		case DecisionAck, DecisionDeadLetter:
			if err := c.bus.Commit(ctx, m); err != nil {
				log.Printf("ingest commit failed for %s: %v", key, err)
			}
			return
		case DecisionRetry:
			select {
			case <-ctx.Done():
				// Shutting down mid-retry leaves the message
				// unacknowledged; the group redelivers it.
				return
			case <-time.After(out.Backoff):
			}
		}
	}
}

// messageKey identifies a message for the retry counter: its position on
// the ordered per-partition stream.
func messageKey(m kafka.Message) string {
	return fmt.Sprintf("%s-%d-%d", m.Topic, m.Partition, m.Offset)
}
