package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps stream connectivity failures. Publishing is never
// retried synchronously; the caller or the periodic sweep owns retry policy.
var ErrRedisUnavailable = errors.New("event redis unavailable")

// Publisher appends [Message] envelopes to the durable stream.
type Publisher struct {
	redis  redis.UniversalClient
	stream string
}

func NewPublisher(redis redis.UniversalClient, stream string) *Publisher {
	return &Publisher{
		redis:  redis,
		stream: stream,
	}
}

// Publish appends msg to the stream, assigning a fresh EventID and timestamp
// when absent. Returns the EventID actually published.
func (p *Publisher) Publish(ctx context.Context, msg Message) (string, error) {
	if msg.EventID == "" {
		msg.EventID = NewID()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}

	values, err := msg.values()
	if err != nil {
		return "", err
	}

	if err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return msg.EventID, nil
}
