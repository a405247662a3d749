package goSSO

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ptkRecord is the stored payload of a privileged token.
type ptkRecord struct {
	UserID           string
	Scope            string
	ReturnURL        string
	SourceSystemCode string
}

type ptkStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newPTKStore(client redis.UniversalClient) *ptkStore {
	return &ptkStore{redis: client, prefix: "ptk"}
}

func (s *ptkStore) key(token string) string {
	return s.prefix + ":" + token
}

func (s *ptkStore) save(ctx context.Context, token string, rec ptkRecord, ttl time.Duration) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key(token), map[string]interface{}{
			"user_id":       rec.UserID,
			"scope":         rec.Scope,
			"return_url":    rec.ReturnURL,
			"source_system": rec.SourceSystemCode,
		})
		pipe.Expire(ctx, s.key(token), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *ptkStore) load(ctx context.Context, token string) (ptkRecord, bool, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(token)).Result()
	if err != nil {
		return ptkRecord{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return ptkRecord{}, false, nil
	}
	return ptkRecord{
		UserID:           fields["user_id"],
		Scope:            fields["scope"],
		ReturnURL:        fields["return_url"],
		SourceSystemCode: fields["source_system"],
	}, true, nil
}

func (s *ptkStore) remove(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
