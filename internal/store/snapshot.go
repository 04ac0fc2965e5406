package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	// DefaultSnapshotInterval is the flush cadence; it is also the maximum
	// tolerable data loss window after a crash.
	DefaultSnapshotInterval = 30 * time.Second
	// DefaultSnapshotCap bounds the ledger to the most recently updated
	// sessions.
	DefaultSnapshotCap = 10
)

// Snapshotter flushes a bounded set of session records to an on-disk ledger
// on a fixed interval and reloads them at startup. Writes are atomic: temp
// file then rename.
type Snapshotter struct {
	logger   runtime.Logger
	path     string
	max      int
	interval time.Duration

	mu      sync.Mutex
	entries map[string]*Record
	dirty   bool
}

// NewSnapshotter creates a snapshotter writing to path. Zero values for max
// and interval take the defaults.
func NewSnapshotter(logger runtime.Logger, path string, max int, interval time.Duration) *Snapshotter {
	if max <= 0 {
		max = DefaultSnapshotCap
	}
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	return &Snapshotter{
		logger:   logger,
		path:     path,
		max:      max,
		interval: interval,
		entries:  make(map[string]*Record),
	}
}

// Offer records the latest state for a session; the next flush persists it.
func (sn *Snapshotter) Offer(rec *Record) {
	sn.mu.Lock()
	defer sn.mu.Unlock()
	sn.entries[rec.SessionID] = rec
	sn.dirty = true
}

// Drop removes a session from the ledger (swept or deleted sessions).
func (sn *Snapshotter) Drop(sessionID string) {
	sn.mu.Lock()
	defer sn.mu.Unlock()
	if _, ok := sn.entries[sessionID]; ok {
		delete(sn.entries, sessionID)
		sn.dirty = true
	}
}

// Run flushes on the configured interval until ctx is cancelled, with a
// final flush on the way out.
func (sn *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(sn.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := sn.Flush(); err != nil {
				sn.logger.Warn("snapshot: final flush failed: %v", err)
			}
			return
		case <-ticker.C:
			if err := sn.Flush(); err != nil {
				sn.logger.Warn("snapshot: flush failed: %v", err)
			}
		}
	}
}

// Flush writes the ledger atomically if anything changed since the last
// flush, trimming to the most-recent entries by last update.
func (sn *Snapshotter) Flush() error {
	sn.mu.Lock()
	if !sn.dirty {
		sn.mu.Unlock()
		return nil
	}
	records := make([]*Record, 0, len(sn.entries))
	for _, rec := range sn.entries {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].LastUpdated.After(records[j].LastUpdated)
	})
	if len(records) > sn.max {
		for _, stale := range records[sn.max:] {
			delete(sn.entries, stale.SessionID)
		}
		records = records[:sn.max]
	}
	sn.dirty = false
	sn.mu.Unlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(sn.path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(sn.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpName, sn.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

// LoadAll reads the ledger written by a previous process. A missing file is
// an empty ledger, not an error.
func (sn *Snapshotter) LoadAll() ([]*Record, error) {
	data, err := os.ReadFile(sn.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot ledger: %w", err)
	}
	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot ledger: %w", err)
	}
	sn.mu.Lock()
	for _, rec := range records {
		sn.entries[rec.SessionID] = rec
	}
	sn.mu.Unlock()
	return records, nil
}
