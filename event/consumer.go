package event

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config controls the consumer loop, retry sweep, and deduplication window.
type Config struct {
	Stream        string
	Group         string
	Consumer      string
	DedupPrefix   string
	BatchSize     int64
	Block         time.Duration
	DedupTTL      time.Duration
	PendingIdle   time.Duration
	RetryInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.DedupPrefix == "" {
		c.DedupPrefix = "evd"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 16
	}
	if c.Block <= 0 {
		c.Block = 5 * time.Second
	}
	if c.DedupTTL <= 0 {
		c.DedupTTL = 7 * 24 * time.Hour
	}
	if c.PendingIdle <= 0 {
		c.PendingIdle = 30 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 10 * time.Second
	}
	return c
}

// Consumer reads the stream through a consumer group, dedupes by event ID,
// dispatches to the registry, and acknowledges only after successful
// handling. A background sweep reclaims entries left pending past the idle
// threshold (crashed or failed consumers) and re-dispatches them.
type Consumer struct {
	redis    redis.UniversalClient
	cfg      Config
	registry *Registry

	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	handled atomic.Uint64
	deduped atomic.Uint64
	retried atomic.Uint64
}

func NewConsumer(redis redis.UniversalClient, cfg Config, registry *Registry) *Consumer {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Consumer{
		redis:    redis,
		cfg:      cfg.withDefaults(),
		registry: registry,
		done:     make(chan struct{}),
	}
}

// Start creates the consumer group if needed and launches the read loop and
// the pending-retry sweep. Register all handlers before calling Start.
func (c *Consumer) Start() error {
	ctx, cancel := context.WithCancel(context.Background())

	if err := c.EnsureGroup(ctx); err != nil {
		cancel()
		return err
	}
	c.cancel = cancel

	c.wg.Add(2)
	go c.runRead(ctx)
	go c.runSweep(ctx)

	return nil
}

// Close stops both loops and waits for them to drain. Safe to call more
// than once and on a consumer that never started.
func (c *Consumer) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
	})
}

// Handled returns the number of messages dispatched successfully.
func (c *Consumer) Handled() uint64 {
	return c.handled.Load()
}

// Deduped returns the number of messages skipped because their event ID was
// already claimed within the dedup TTL window.
func (c *Consumer) Deduped() uint64 {
	return c.deduped.Load()
}

// Retried returns the number of pending messages reclaimed by the sweep.
func (c *Consumer) Retried() uint64 {
	return c.retried.Load()
}

// EnsureGroup creates the consumer group at the start of the stream,
// creating the stream itself when absent. An already-existing group is
// success, not an error.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.redis.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Poll performs one bounded group read and processes each entry. Returns the
// number of entries processed. A poll that times out with no entries returns
// (0, nil).
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	streams, err := c.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	processed := 0
	for _, stream := range streams {
		for _, entry := range stream.Messages {
			c.process(ctx, entry)
			processed++
		}
	}
	return processed, nil
}

// Sweep reclaims entries pending longer than the idle threshold and
// re-dispatches them through the normal processing path. Returns the number
// of entries reclaimed.
func (c *Consumer) Sweep(ctx context.Context) (int, error) {
	pending, err := c.redis.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Idle:   c.cfg.PendingIdle,
		Start:  "-",
		End:    "+",
		Count:  c.cfg.BatchSize,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}

	claimed, err := c.redis.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  c.cfg.PendingIdle,
		Messages: ids,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	for _, entry := range claimed {
		c.retried.Add(1)
		c.process(ctx, entry)
	}
	return len(claimed), nil
}

func (c *Consumer) dedupKey(eventID string) string {
	return c.cfg.DedupPrefix + ":" + eventID
}

// process handles one stream entry end to end. Acknowledge happens in
// exactly three cases: corrupt entry (poison, nothing to retry), duplicate
// event ID (already handled somewhere), and successful dispatch. A handler
// failure releases the dedup marker and leaves the entry pending for the
// sweep.
func (c *Consumer) process(ctx context.Context, entry redis.XMessage) {
	msg, err := decodeMessage(entry)
	if err != nil {
		log.Print("goSSO: dropping corrupt event stream entry")
		c.ack(ctx, entry.ID)
		return
	}

	claimed, err := c.redis.SetNX(ctx, c.dedupKey(msg.EventID), c.cfg.Consumer, c.cfg.DedupTTL).Result()
	if err != nil {
		// Cannot prove the event is new; leave it pending for the sweep.
		log.Print("goSSO: event dedup claim failed, deferring entry")
		return
	}
	if !claimed {
		c.deduped.Add(1)
		c.ack(ctx, entry.ID)
		return
	}

	if err := c.registry.dispatch(ctx, msg); err != nil {
		if delErr := c.redis.Del(ctx, c.dedupKey(msg.EventID)).Err(); delErr != nil {
			log.Print("goSSO: event dedup marker release failed")
		}
		log.Print("goSSO: event handler failed, leaving entry pending")
		return
	}

	c.handled.Add(1)
	c.ack(ctx, entry.ID)
}

func (c *Consumer) ack(ctx context.Context, entryID string) {
	if err := c.redis.XAck(ctx, c.cfg.Stream, c.cfg.Group, entryID).Err(); err != nil {
		// Unacked entries are re-delivered; the dedup marker absorbs that.
		log.Print("goSSO: event acknowledge failed")
	}
}

func (c *Consumer) runRead(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Print("goSSO: event poll failed, retrying next cycle")
			c.sleep(ctx, c.cfg.RetryInterval)
		}
	}
}

func (c *Consumer) runSweep(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Print("goSSO: event retry sweep failed, retrying next cycle")
			}
		}
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-c.done:
	}
}
