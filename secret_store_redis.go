package accounts

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// consumeScript deletes the key only if it still holds the exact value
// the caller observed. Two racing consumers for the same key can both
// read the entry, but only one delete succeeds.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSecretStore keeps verification secrets in redis so multiple
// service instances share one pending-secret view. Entries carry their
// own creation timestamp: redis expiry alone cannot distinguish an
// expired secret from one that was never issued, and callers need that
// distinction.
type RedisSecretStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// RedisSecretStoreOption configures a RedisSecretStore.
type RedisSecretStoreOption func(*RedisSecretStore)

// WithRedisSecretTTL overrides the default secret TTL.
func WithRedisSecretTTL(ttl time.Duration) RedisSecretStoreOption {
	return func(s *RedisSecretStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithRedisSecretClock overrides the clock used for expiry checks.
func WithRedisSecretClock(now func() time.Time) RedisSecretStoreOption {
	return func(s *RedisSecretStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedisSecretStore returns a SecretStore backed by redis.
func NewRedisSecretStore(client *redis.Client, opts ...RedisSecretStoreOption) *RedisSecretStore {
	store := &RedisSecretStore{
		client: client,
		ttl:    DefaultSecretTTL,
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store
}

func secretRedisKey(email string, purpose Purpose) string {
	return fmt.Sprintf("accounts:secret:%s:%s", purpose, normalizeEmail(email))
}

func encodeSecretEntry(value string, createdAt time.Time) string {
	return fmt.Sprintf("%s|%d", value, createdAt.UnixNano())
}

func decodeSecretEntry(raw string) (string, time.Time, error) {
	idx := strings.LastIndexByte(raw, '|')
	if idx < 0 {
		return "", time.Time{}, goerrors.New("corrupt secret entry", goerrors.CategoryInternal)
	}
	nanos, err := strconv.ParseInt(raw[idx+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "corrupt secret timestamp")
	}
	return raw[:idx], time.Unix(0, nanos), nil
}

// Issue stores a fresh secret under (email, purpose), overwriting any
// pending one. The redis expiry is kept at twice the logical TTL so an
// expired-but-present entry can still be reported as expired rather
// than not found.
func (s *RedisSecretStore) Issue(ctx context.Context, email string, purpose Purpose) (string, error) {
	value, err := GenerateCode(DefaultCodeLength)
	if err != nil {
		return "", err
	}

	key := secretRedisKey(email, purpose)
	entry := encodeSecretEntry(value, s.now())

	if err := s.client.Set(ctx, key, entry, 2*s.ttl).Err(); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification secret")
	}

	return value, nil
}

// Consume validates and evicts the pending secret. The final delete is
// conditional on the exact observed entry, so concurrent attempts for
// the same key resolve to a single success.
func (s *RedisSecretStore) Consume(ctx context.Context, email string, purpose Purpose, candidate string) error {
	key := secretRedisKey(email, purpose)

	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrSecretNotFound
	}
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read verification secret")
	}

	value, createdAt, err := decodeSecretEntry(raw)
	if err != nil {
		return err
	}

	if s.now().After(createdAt.Add(s.ttl)) {
		if _, err := consumeScript.Run(ctx, s.client, []string{key}, raw).Int(); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to evict expired secret")
		}
		return ErrSecretExpired
	}

	if subtle.ConstantTimeCompare([]byte(value), []byte(candidate)) != 1 {
		return ErrSecretMismatch
	}

	deleted, err := consumeScript.Run(ctx, s.client, []string{key}, raw).Int()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification secret")
	}
	if deleted == 0 {
		// lost the race to a concurrent consumer or a re-issue
		return ErrSecretNotFound
	}

	return nil
}
