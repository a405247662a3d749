package ticket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the ticket is absent: consumed, expired, or
// never issued. Callers cannot distinguish the three, by construction.
var ErrNotFound = errors.New("ticket not found")

// ErrClientMismatch is returned when the presented system code disagrees
// with the issued one. The ticket is invalidated.
var ErrClientMismatch = errors.New("ticket system code mismatch")

// ErrRedirectMismatch is returned when the presented redirect URI digest
// disagrees with the issued one. The ticket is invalidated.
var ErrRedirectMismatch = errors.New("ticket redirect uri mismatch")

// ErrStateMismatch is returned when both sides carry a state digest and they
// disagree. The ticket survives so the caller can retry before expiry.
var ErrStateMismatch = errors.New("ticket state mismatch")

// ErrRedisUnavailable wraps store connectivity and protocol failures.
var ErrRedisUnavailable = errors.New("ticket redis unavailable")

const (
	consumeStatusNotFound         int64 = 0
	consumeStatusClientMismatch   int64 = 1
	consumeStatusRedirectMismatch int64 = 2
	consumeStatusStateMismatch    int64 = 3
	consumeStatusRedeemed         int64 = 4
)

// consumeScript evaluates the whole redemption decision server-side.
// Mismatched system code or redirect digest deletes the ticket (suggests
// misconfiguration or tampering); a state mismatch between two non-empty
// digests leaves it intact (attributable to a caller bug, recoverable).
const consumeScript = `
local key = KEYS[1]

if redis.call("EXISTS", key) == 0 then
  return {0}
end

local sys = redis.call("HGET", key, "system_code")
if sys ~= ARGV[1] then
  redis.call("DEL", key)
  return {1}
end

local rd = redis.call("HGET", key, "redirect_digest")
if rd ~= ARGV[2] then
  redis.call("DEL", key)
  return {2}
end

local sd = redis.call("HGET", key, "state_digest")
if sd == false then
  sd = ""
end
if sd ~= "" and ARGV[3] ~= "" and sd ~= ARGV[3] then
  return {3}
end

local uid = redis.call("HGET", key, "user_id")
local issued = redis.call("HGET", key, "issued_at")
redis.call("DEL", key)
return {4, uid, issued}
`

var consumeLua = redis.NewScript(consumeScript)

// Store persists SSO handoff tickets as Redis hashes with store-level TTL
// and redeems them atomically.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a ticket [Store] backed by the given Redis client.
// prefix sets the Redis key namespace shared by all participating processes.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

// Save persists a [Ticket] under id with the given TTL.
//
//	Performance: 2 Redis commands in one transaction (HSET + EXPIRE).
func (s *Store) Save(ctx context.Context, id string, t *Ticket, ttl time.Duration) error {
	key := s.key(id)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldUserID, t.UserID,
			fieldSystemCode, t.SystemCode,
			fieldRedirectDigest, t.RedirectURIDigest,
			fieldStateDigest, t.StateDigest,
			fieldIssuedAt, strconv.FormatInt(t.IssuedAt, 10),
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Consume atomically redeems the ticket under id against the presented
// system code, redirect digest, and state digest. Exactly one concurrent
// caller observes success; all others get [ErrNotFound].
//
//	Performance: 1 Lua EVALSHA (atomic read-validate-conditionally-delete).
//	Security: no check-then-act window exists outside the script.
func (s *Store) Consume(
	ctx context.Context,
	id, systemCode, redirectDigest, stateDigest string,
) (*Ticket, error) {
	result, err := consumeLua.Run(
		ctx,
		s.redis,
		[]string{s.key(id)},
		systemCode,
		redirectDigest,
		stateDigest,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid consume script response", ErrRedisUnavailable)
	}

	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid consume script status", ErrRedisUnavailable)
	}

	switch code {
	case consumeStatusNotFound:
		return nil, ErrNotFound
	case consumeStatusClientMismatch:
		return nil, ErrClientMismatch
	case consumeStatusRedirectMismatch:
		return nil, ErrRedirectMismatch
	case consumeStatusStateMismatch:
		return nil, ErrStateMismatch
	case consumeStatusRedeemed:
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: missing redeemed ticket payload", ErrRedisUnavailable)
		}

		userID, ok := scriptString(parts[1])
		if !ok {
			return nil, fmt.Errorf("%w: invalid redeemed user id", ErrRedisUnavailable)
		}
		issuedRaw, ok := scriptString(parts[2])
		if !ok {
			return nil, fmt.Errorf("%w: invalid redeemed issue timestamp", ErrRedisUnavailable)
		}
		issuedAt, convErr := strconv.ParseInt(issuedRaw, 10, 64)
		if convErr != nil {
			return nil, fmt.Errorf("%w: corrupt issue timestamp", ErrRedisUnavailable)
		}

		return &Ticket{
			UserID:            userID,
			SystemCode:        systemCode,
			RedirectURIDigest: redirectDigest,
			StateDigest:       stateDigest,
			IssuedAt:          issuedAt,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown consume script status", ErrRedisUnavailable)
	}
}

// Exists reports store presence without mutating anything. Presence is the
// "issued and still valid" lifecycle state; absence covers consumed, expired,
// and invalidated alike.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

func scriptString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}
