package goSSO

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// resetStore keeps password-reset state keyed by the caller-facing identity
// (mobile number or similar). The raw token is never stored, only its keyed
// digest. Three keys per identity: the digest, a re-issue guard, and a
// bounded failure counter.
type resetStore struct {
	redis redis.UniversalClient

	tokenPrefix   string
	guardPrefix   string
	failurePrefix string
}

func newResetStore(client redis.UniversalClient) *resetStore {
	return &resetStore{
		redis:         client,
		tokenPrefix:   "rst",
		guardPrefix:   "rstg",
		failurePrefix: "rstf",
	}
}

func (s *resetStore) tokenKey(identity string) string {
	return s.tokenPrefix + ":" + identity
}

func (s *resetStore) guardKey(identity string) string {
	return s.guardPrefix + ":" + identity
}

func (s *resetStore) failureKey(identity string) string {
	return s.failurePrefix + ":" + identity
}

// acquireGuard claims the re-issue guard. A false return means a token was
// issued for this identity inside the guard window.
func (s *resetStore) acquireGuard(ctx context.Context, identity string, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetNX(ctx, s.guardKey(identity), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ok, nil
}

// saveDigest stores a fresh token digest and clears any failure counter left
// over from a previous token.
func (s *resetStore) saveDigest(ctx context.Context, identity, digest string, ttl time.Duration) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(identity), digest, ttl)
		pipe.Del(ctx, s.failureKey(identity))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *resetStore) loadDigest(ctx context.Context, identity string) (string, bool, error) {
	digest, err := s.redis.Get(ctx, s.tokenKey(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return digest, true, nil
}

func (s *resetStore) failures(ctx context.Context, identity string) (int64, error) {
	n, err := s.redis.Get(ctx, s.failureKey(identity)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// recordFailure increments the failure counter and binds its lifetime to the
// token's remaining TTL, so the counter can never outlive the token it
// guards. Returns the new count.
func (s *resetStore) recordFailure(ctx context.Context, identity string) (int64, error) {
	count, err := s.redis.Incr(ctx, s.failureKey(identity)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	remaining, err := s.redis.PTTL(ctx, s.tokenKey(identity)).Result()
	if err == nil && remaining > 0 {
		s.redis.PExpire(ctx, s.failureKey(identity), remaining)
	}

	return count, nil
}

func (s *resetStore) deleteToken(ctx context.Context, identity string) error {
	if err := s.redis.Del(ctx, s.tokenKey(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// clear removes the token digest and failure counter after a successful
// reset. The guard key is left to expire on its own.
func (s *resetStore) clear(ctx context.Context, identity string) error {
	if err := s.redis.Del(ctx, s.tokenKey(identity), s.failureKey(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
