// Package store keeps the canonical session state durable across restarts
// and disconnects. Saves are last-writer-wins with no merge semantics.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/a-singh09/uno-game-sub000/internal/domain"
	"github.com/a-singh09/uno-game-sub000/internal/identity"
)

// ErrStorageUnavailable is surfaced only when both backends fail.
var ErrStorageUnavailable = errors.New("all storage backends unavailable")

// DefaultTTL is how long an untouched entry survives before Sweep evicts it.
const DefaultTTL = time.Hour

// defaultDurableTimeout bounds each durable backend call so storage outages
// degrade to the local backend instead of stalling the caller.
const defaultDurableTimeout = 3 * time.Second

// Record is the persisted envelope for one session: canonical game state,
// decode table, and seat bindings.
type Record struct {
	SessionID   string                 `json:"session_id"`
	AltID       string                 `json:"alt_id,omitempty"`
	Game        *domain.Game           `json:"game"`
	Table       *domain.DecodeTable    `json:"decode_table"`
	Seats       []*identity.Identity   `json:"seats"`
	LastUpdated time.Time              `json:"last_updated"`
}

// Store combines the process-local backend with an optional shared durable
// backend. The local backend always holds the freshest copy; durable writes
// happen off the caller's path with a timeout and degrade silently.
type Store struct {
	logger  runtime.Logger
	local   Backend
	durable Backend // nil when the local backend is the sole backend
	timeout time.Duration

	mu       sync.RWMutex
	altIndex map[string]string // alternate id -> session id
	wg       sync.WaitGroup
}

// New creates a Store. durable may be nil, in which case the local backend
// is the sole backend.
func New(logger runtime.Logger, local, durable Backend) *Store {
	return &Store{
		logger:   logger,
		local:    local,
		durable:  durable,
		timeout:  defaultDurableTimeout,
		altIndex: make(map[string]string),
	}
}

// Save persists the record, stamping LastUpdated. The local write is
// synchronous; the durable write happens asynchronously so unrelated
// sessions are never blocked on storage I/O. Save fails only if the local
// write fails with no durable backend to fall back on.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	rec.LastUpdated = time.Now().UTC()
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	if rec.AltID != "" {
		s.mu.Lock()
		s.altIndex[rec.AltID] = rec.SessionID
		s.mu.Unlock()
	}

	localErr := s.local.Set(ctx, rec.SessionID, value)
	if localErr != nil {
		s.logger.Error("store: local save failed for session %s: %v", rec.SessionID, localErr)
	}

	if s.durable != nil {
		if localErr != nil {
			// With no healthy local copy the durable write is the record's
			// only home: take it synchronously so a double fault surfaces.
			dctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := s.durable.Set(dctx, rec.SessionID, value); err != nil {
				return fmt.Errorf("%w: local: %v, durable: %v", ErrStorageUnavailable, localErr, err)
			}
			return nil
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			dctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := s.durable.Set(dctx, rec.SessionID, value); err != nil {
				s.logger.Warn("store: durable save failed for session %s, local copy retained: %v", rec.SessionID, err)
			}
		}()
		return nil
	}
	if localErr != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, localErr)
	}
	return nil
}

// Load returns the record for the session id, or nil when absent. The local
// backend is the fast path; a durable hit re-primes it.
func (s *Store) Load(ctx context.Context, sessionID string) (*Record, error) {
	if value, err := s.local.Get(ctx, sessionID); err == nil && value != nil {
		return s.decode(value)
	} else if err != nil {
		s.logger.Warn("store: local load failed for session %s: %v", sessionID, err)
	}

	if s.durable == nil {
		return nil, nil
	}
	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	value, err := s.durable.Get(dctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if value == nil {
		return nil, nil
	}
	rec, err := s.decode(value)
	if err != nil {
		return nil, err
	}
	if err := s.local.Set(ctx, sessionID, value); err == nil && rec.AltID != "" {
		s.mu.Lock()
		s.altIndex[rec.AltID] = rec.SessionID
		s.mu.Unlock()
	}
	return rec, nil
}

// LoadByAlternateID resolves the secondary key (e.g. a short numeric game
// id) and loads the record, or nil when absent.
func (s *Store) LoadByAlternateID(ctx context.Context, altID string) (*Record, error) {
	s.mu.RLock()
	sessionID, ok := s.altIndex[altID]
	s.mu.RUnlock()
	if ok {
		return s.Load(ctx, sessionID)
	}

	// Index miss: rebuild from whatever backend keys are visible.
	keys, err := s.local.Keys(ctx)
	if err == nil {
		for _, key := range keys {
			rec, err := s.Load(ctx, key)
			if err != nil || rec == nil {
				continue
			}
			if rec.AltID == altID {
				return rec, nil
			}
		}
	}
	return nil, nil
}

// Delete removes the session from both backends.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if rec, err := s.Load(ctx, sessionID); err == nil && rec != nil && rec.AltID != "" {
		s.mu.Lock()
		delete(s.altIndex, rec.AltID)
		s.mu.Unlock()
	}
	localErr := s.local.Delete(ctx, sessionID)
	if s.durable != nil {
		dctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := s.durable.Delete(dctx, sessionID); err != nil {
			s.logger.Warn("store: durable delete failed for session %s: %v", sessionID, err)
		}
	}
	return localErr
}

// Sweep evicts entries whose last write is older than maxAge and returns
// how many were removed. Keys are gathered from both backends: after a
// restart or an LRU eviction a stale record can survive only in the durable
// tier.
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = DefaultTTL
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0

	seen := make(map[string]bool)
	keys, err := s.local.Keys(ctx)
	if err != nil {
		s.logger.Warn("store: sweep could not list local keys: %v", err)
		keys = nil
	}
	for _, key := range keys {
		seen[key] = true
	}
	if s.durable != nil {
		dctx, cancel := context.WithTimeout(ctx, s.timeout)
		durableKeys, err := s.durable.Keys(dctx)
		cancel()
		if err != nil {
			s.logger.Warn("store: sweep could not list durable keys: %v", err)
		}
		for _, key := range durableKeys {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}

	for _, key := range keys {
		rec, err := s.Load(ctx, key)
		if err != nil || rec == nil {
			continue
		}
		if rec.LastUpdated.Before(cutoff) {
			if err := s.Delete(ctx, key); err == nil {
				removed++
			}
		}
	}
	return removed
}

// Prime inserts a recovered record into the local backend without touching
// the durable one, used when reloading the snapshot ledger at startup.
func (s *Store) Prime(ctx context.Context, rec *Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	if rec.AltID != "" {
		s.mu.Lock()
		s.altIndex[rec.AltID] = rec.SessionID
		s.mu.Unlock()
	}
	return s.local.Set(ctx, rec.SessionID, value)
}

// Wait blocks until in-flight durable writes finish. Test helper.
func (s *Store) Wait() { s.wg.Wait() }

func (s *Store) decode(value []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return &rec, nil
}
