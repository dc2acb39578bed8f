package accounts

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"hash/fnv"
	"math/big"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultSecretTTL is how long an issued verification secret stays valid.
const DefaultSecretTTL = 15 * time.Minute

// DefaultCodeLength is the number of digits in generated codes.
const DefaultCodeLength = 6

// GenerateCode returns a random numeric code of the given length.
// Secrets must come from a CSPRNG, never a seeded math/rand.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", goerrors.New("code length must be positive", goerrors.CategoryBadInput)
	}

	const digits = "0123456789"
	buf := make([]byte, length)
	max := big.NewInt(int64(len(digits)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random source")
		}
		buf[i] = digits[n.Int64()]
	}

	return string(buf), nil
}

type secretKey struct {
	email   string
	purpose Purpose
}

type secretEntry struct {
	value     string
	createdAt time.Time
}

const secretShards = 32

type secretShard struct {
	mu      sync.Mutex
	entries map[secretKey]secretEntry
}

// MemorySecretStore keeps verification secrets in a sharded in-process
// map. Each shard is guarded by its own mutex so the read-check-evict
// sequence in Consume is atomic per key while requests for unrelated
// emails never contend on a single lock.
type MemorySecretStore struct {
	shards   [secretShards]*secretShard
	ttl      time.Duration
	generate func() (string, error)
	now      func() time.Time
}

// MemorySecretStoreOption configures a MemorySecretStore.
type MemorySecretStoreOption func(*MemorySecretStore)

// WithSecretTTL overrides the default secret TTL.
func WithSecretTTL(ttl time.Duration) MemorySecretStoreOption {
	return func(s *MemorySecretStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSecretGenerator overrides how secret values are produced.
func WithSecretGenerator(generate func() (string, error)) MemorySecretStoreOption {
	return func(s *MemorySecretStore) {
		if generate != nil {
			s.generate = generate
		}
	}
}

// WithSecretClock overrides the clock, used by tests to cross TTL
// boundaries deterministically.
func WithSecretClock(now func() time.Time) MemorySecretStoreOption {
	return func(s *MemorySecretStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemorySecretStore returns a SecretStore backed by process memory.
func NewMemorySecretStore(opts ...MemorySecretStoreOption) *MemorySecretStore {
	store := &MemorySecretStore{
		ttl: DefaultSecretTTL,
		generate: func() (string, error) {
			return GenerateCode(DefaultCodeLength)
		},
		now: time.Now,
	}

	for i := range store.shards {
		store.shards[i] = &secretShard{entries: map[secretKey]secretEntry{}}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store
}

func (s *MemorySecretStore) shardFor(key secretKey) *secretShard {
	h := fnv.New32a()
	h.Write([]byte(key.email))
	h.Write([]byte{0})
	h.Write([]byte(key.purpose))
	return s.shards[h.Sum32()%secretShards]
}

// Issue generates a new secret for (email, purpose), replacing any prior
// unconsumed secret for the same pair.
func (s *MemorySecretStore) Issue(ctx context.Context, email string, purpose Purpose) (string, error) {
	select {
	case <-ctx.Done():
		return "", goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled issuing secret")
	default:
	}

	value, err := s.generate()
	if err != nil {
		return "", err
	}

	key := secretKey{email: normalizeEmail(email), purpose: purpose}
	shard := s.shardFor(key)

	shard.mu.Lock()
	shard.entries[key] = secretEntry{value: value, createdAt: s.now()}
	shard.mu.Unlock()

	return value, nil
}

// Consume validates candidate against the pending secret for
// (email, purpose). A match evicts the secret; an expired secret is
// evicted as a side effect so retries surface not-found.
func (s *MemorySecretStore) Consume(ctx context.Context, email string, purpose Purpose, candidate string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled consuming secret")
	default:
	}

	key := secretKey{email: normalizeEmail(email), purpose: purpose}
	shard := s.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[key]
	if !ok {
		return ErrSecretNotFound
	}

	if s.now().After(entry.createdAt.Add(s.ttl)) {
		delete(shard.entries, key)
		return ErrSecretExpired
	}

	if subtle.ConstantTimeCompare([]byte(entry.value), []byte(candidate)) != 1 {
		return ErrSecretMismatch
	}

	delete(shard.entries, key)
	return nil
}
