package goSSO

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// versionStore holds the per-user monotonic auth-version counter. The counter
// is never reset and carries no TTL; INCR gives cross-process atomicity with
// no read-modify-write on the caller side.
type versionStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newVersionStore(client redis.UniversalClient) *versionStore {
	return &versionStore{redis: client, prefix: "av"}
}

func (s *versionStore) key(userID string) string {
	return s.prefix + ":" + userID
}

func (s *versionStore) bump(ctx context.Context, userID string) (int64, error) {
	v, err := s.redis.Incr(ctx, s.key(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return v, nil
}

// current returns the counter, 0 for a user that was never bumped.
func (s *versionStore) current(ctx context.Context, userID string) (int64, error) {
	v, err := s.redis.Get(ctx, s.key(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return v, nil
}
