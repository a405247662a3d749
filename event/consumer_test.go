package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStream(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return rdb, mr
}

func testConsumerConfig() Config {
	return Config{
		Stream:      "auth-events",
		Group:       "portal",
		Consumer:    "portal-1",
		BatchSize:   16,
		Block:       10 * time.Millisecond,
		DedupTTL:    time.Hour,
		PendingIdle: time.Millisecond,
	}
}

type recordingHandler struct {
	mu    sync.Mutex
	types []string
	seen  []Message
	fail  bool
}

func (h *recordingHandler) Supports(eventType string) bool {
	for _, t := range h.types {
		if t == eventType {
			return true
		}
	}
	return false
}

func (h *recordingHandler) Handle(ctx context.Context, msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return errors.New("handler down")
	}
	h.seen = append(h.seen, msg)
	return nil
}

func (h *recordingHandler) setFail(fail bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fail = fail
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func TestPublishConsumeAck(t *testing.T) {
	rdb, _ := newTestStream(t)
	ctx := context.Background()

	handler := &recordingHandler{types: []string{TypePasswordChanged}}
	registry := NewRegistry()
	registry.Register(handler)

	consumer := NewConsumer(rdb, testConsumerConfig(), registry)
	if err := consumer.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}

	publisher := NewPublisher(rdb, "auth-events")
	eventID, err := publisher.Publish(ctx, Message{
		Type:        TypePasswordChanged,
		UserID:      "u-1",
		AuthVersion: 3,
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if eventID == "" {
		t.Fatal("expected assigned event id")
	}

	n, err := consumer.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 processed entry, got %d", n)
	}
	if handler.count() != 1 {
		t.Fatalf("expected handler to run once, ran %d times", handler.count())
	}

	got := handler.seen[0]
	if got.EventID != eventID || got.UserID != "u-1" || got.AuthVersion != 3 {
		t.Fatalf("unexpected message: %+v", got)
	}

	// Acked: nothing new, nothing pending.
	n, err = consumer.Poll(ctx)
	if err != nil {
		t.Fatalf("second Poll failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty second poll, got %d entries", n)
	}
	pending, err := rdb.XPending(ctx, "auth-events", "portal").Result()
	if err != nil {
		t.Fatalf("XPending failed: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected no pending entries, got %d", pending.Count)
	}
}

func TestDuplicateEventIDHandledOnce(t *testing.T) {
	rdb, _ := newTestStream(t)
	ctx := context.Background()

	handler := &recordingHandler{types: []string{TypeAccountDisabled}}
	registry := NewRegistry()
	registry.Register(handler)

	consumer := NewConsumer(rdb, testConsumerConfig(), registry)
	if err := consumer.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}

	publisher := NewPublisher(rdb, "auth-events")
	msg := Message{
		EventID: NewID(),
		Type:    TypeAccountDisabled,
		UserID:  "u-2",
	}
	if _, err := publisher.Publish(ctx, msg); err != nil {
		t.Fatalf("first Publish failed: %v", err)
	}
	if _, err := publisher.Publish(ctx, msg); err != nil {
		t.Fatalf("second Publish failed: %v", err)
	}

	if _, err := consumer.Poll(ctx); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	if handler.count() != 1 {
		t.Fatalf("expected exactly one dispatch for duplicate event id, got %d", handler.count())
	}
	if consumer.Deduped() != 1 {
		t.Fatalf("expected 1 deduped entry, got %d", consumer.Deduped())
	}
}

func TestFailedHandlerLeavesEntryPendingForSweep(t *testing.T) {
	rdb, _ := newTestStream(t)
	ctx := context.Background()

	handler := &recordingHandler{types: []string{TypeRolesChanged}, fail: true}
	registry := NewRegistry()
	registry.Register(handler)

	consumer := NewConsumer(rdb, testConsumerConfig(), registry)
	if err := consumer.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}

	publisher := NewPublisher(rdb, "auth-events")
	eventID, err := publisher.Publish(ctx, Message{Type: TypeRolesChanged, UserID: "u-3"})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if _, err := consumer.Poll(ctx); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if handler.count() != 0 {
		t.Fatal("failing handler must not record the message")
	}

	// The marker was released so the retry can reprocess.
	exists := rdb.Exists(ctx, "evd:"+eventID).Val()
	if exists != 0 {
		t.Fatal("expected dedup marker to be released after handler failure")
	}

	pending, err := rdb.XPending(ctx, "auth-events", "portal").Result()
	if err != nil {
		t.Fatalf("XPending failed: %v", err)
	}
	if pending.Count != 1 {
		t.Fatalf("expected 1 pending entry, got %d", pending.Count)
	}

	handler.setFail(false)
	time.Sleep(5 * time.Millisecond)

	claimed, err := consumer.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if claimed != 1 {
		t.Fatalf("expected sweep to reclaim 1 entry, got %d", claimed)
	}
	if handler.count() != 1 {
		t.Fatalf("expected recovered handler to run once, ran %d times", handler.count())
	}
	if consumer.Retried() != 1 {
		t.Fatalf("expected 1 retried entry, got %d", consumer.Retried())
	}
}

func TestEnsureGroupIdempotent(t *testing.T) {
	rdb, _ := newTestStream(t)
	ctx := context.Background()

	consumer := NewConsumer(rdb, testConsumerConfig(), nil)
	if err := consumer.EnsureGroup(ctx); err != nil {
		t.Fatalf("first EnsureGroup failed: %v", err)
	}
	if err := consumer.EnsureGroup(ctx); err != nil {
		t.Fatalf("second EnsureGroup must treat existing group as success: %v", err)
	}
}

func TestCorruptEntryAckedNotRetried(t *testing.T) {
	rdb, _ := newTestStream(t)
	ctx := context.Background()

	consumer := NewConsumer(rdb, testConsumerConfig(), NewRegistry())
	if err := consumer.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}

	// Missing event_id and event_type: nothing a retry could fix.
	if err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: "auth-events",
		Values: map[string]interface{}{"garbage": "1"},
	}).Err(); err != nil {
		t.Fatalf("XAdd failed: %v", err)
	}

	if _, err := consumer.Poll(ctx); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	pending, err := rdb.XPending(ctx, "auth-events", "portal").Result()
	if err != nil {
		t.Fatalf("XPending failed: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("corrupt entry must be acked, got %d pending", pending.Count)
	}
}

func TestConsumerStartClose(t *testing.T) {
	rdb, _ := newTestStream(t)

	handler := &recordingHandler{types: []string{TypeProfileUpdated}}
	registry := NewRegistry()
	registry.Register(handler)

	cfg := testConsumerConfig()
	cfg.RetryInterval = 10 * time.Millisecond
	consumer := NewConsumer(rdb, cfg, registry)
	if err := consumer.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	publisher := NewPublisher(rdb, "auth-events")
	if _, err := publisher.Publish(context.Background(), Message{Type: TypeProfileUpdated, UserID: "u-4"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for handler.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	consumer.Close()
	consumer.Close() // idempotent

	if handler.count() != 1 {
		t.Fatalf("expected background loop to dispatch once, got %d", handler.count())
	}
}
