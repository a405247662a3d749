package goSSO

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// actionRecord is the stored payload of an action ticket. ExpireAt is kept in
// the payload in addition to the key TTL so the escalator can distinguish an
// expired ticket from an unknown one while the key still exists.
type actionRecord struct {
	UserID           string
	Scope            string
	SourceSystemCode string
	ReturnURL        string
	Nonce            string
	ExpireAt         int64
}

type actionStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newActionStore(client redis.UniversalClient) *actionStore {
	return &actionStore{redis: client, prefix: "act"}
}

func (s *actionStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *actionStore) tombstoneKey(id string) string {
	return s.prefix + "u:" + id
}

func (s *actionStore) save(ctx context.Context, id string, rec actionRecord, ttl time.Duration) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key(id), map[string]interface{}{
			"user_id":       rec.UserID,
			"scope":         rec.Scope,
			"source_system": rec.SourceSystemCode,
			"return_url":    rec.ReturnURL,
			"nonce":         rec.Nonce,
			"expire_at":     rec.ExpireAt,
		})
		pipe.Expire(ctx, s.key(id), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// load returns the stored record and whether it exists. Payload completeness
// is the escalator's concern, not the store's.
func (s *actionStore) load(ctx context.Context, id string) (actionRecord, bool, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return actionRecord{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return actionRecord{}, false, nil
	}

	expireAt, _ := strconv.ParseInt(fields["expire_at"], 10, 64)
	return actionRecord{
		UserID:           fields["user_id"],
		Scope:            fields["scope"],
		SourceSystemCode: fields["source_system"],
		ReturnURL:        fields["return_url"],
		Nonce:            fields["nonce"],
		ExpireAt:         expireAt,
	}, true, nil
}

// remove deletes the ticket and reports whether this caller performed the
// deletion. A false return means another redemption won the race. A
// tombstone marker with the given TTL distinguishes a consumed ticket from
// one that never existed.
func (s *actionStore) remove(ctx context.Context, id string, tombstoneTTL time.Duration) (bool, error) {
	var del *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(id))
		pipe.Set(ctx, s.tombstoneKey(id), "1", tombstoneTTL)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return del.Val() > 0, nil
}

// consumed reports whether a tombstone exists for id.
func (s *actionStore) consumed(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.tombstoneKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n == 1, nil
}
