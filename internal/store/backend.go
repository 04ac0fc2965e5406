package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Backend is the minimal key-value capability the state store runs on.
// Absence is a valid, cheap response (nil bytes, nil error), never an error.
// Implementations are selected by configuration at startup: the Nakama
// storage engine when a shared durable backend is available, and the
// process-local backend otherwise or as the fast path in front of it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// localBackendSize bounds the in-process backend so a runaway process
// cannot grow without limit.
const localBackendSize = 1024

// LocalBackend is the process-local backend: a bounded LRU whose entries
// expire on their own after the store TTL as a second line of defense
// behind Sweep.
type LocalBackend struct {
	cache *expirable.LRU[string, []byte]
}

// NewLocalBackend creates a local backend whose entries expire after ttl.
func NewLocalBackend(ttl time.Duration) *LocalBackend {
	return &LocalBackend{
		cache: expirable.NewLRU[string, []byte](localBackendSize, nil, ttl),
	}
}

func (b *LocalBackend) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := b.cache.Get(key)
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (b *LocalBackend) Set(_ context.Context, key string, value []byte) error {
	b.cache.Add(key, value)
	return nil
}

func (b *LocalBackend) Delete(_ context.Context, key string) error {
	b.cache.Remove(key)
	return nil
}

func (b *LocalBackend) Keys(_ context.Context) ([]string, error) {
	return b.cache.Keys(), nil
}
