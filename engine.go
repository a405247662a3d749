package goSSO

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrEthical07/goSSO/event"
	"github.com/MrEthical07/goSSO/internal"
	"github.com/MrEthical07/goSSO/jwt"
	"github.com/MrEthical07/goSSO/ticket"
	"github.com/redis/go-redis/v9"
)

// Digest contexts. Each comparison family gets its own context so a digest
// computed for one purpose can never match one computed for another.
const (
	digestContextRedirect = "sso.redirect"
	digestContextState    = "sso.state"
	digestContextReset    = "reset.token"
)

// Engine is the ticket handoff and invalidation engine. Construct it through
// [New]; all operations are safe for concurrent use, with correctness-critical
// concurrency pushed into the shared store's atomic primitives.
type Engine struct {
	config    Config
	redis     redis.UniversalClient
	directory UserDirectory

	tickets  *ticket.Store
	actions  *actionStore
	ptks     *ptkStore
	resets   *resetStore
	versions *versionStore

	publisher *event.Publisher
	consumer  *event.Consumer
	sessions  *jwt.Manager

	metrics *Metrics

	closeOnce sync.Once
}

// Close stops the background event consumer and retry sweep. Safe to call
// more than once; no-op for publish-only engines.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.consumer.Close()
	})
}

// Metrics returns the engine's in-process counters.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

func (e *Engine) digest(purpose, value string) string {
	return internal.Digest(e.config.DigestKey, purpose, value)
}

// publish appends one envelope to the event stream. Store unavailability is
// surfaced, never swallowed; retry belongs to the caller.
func (e *Engine) publish(ctx context.Context, msg event.Message) error {
	if _, err := e.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	e.metrics.Inc(MetricEventPublished)
	return nil
}
