package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// GameConfig holds the tunable session-engine settings loaded once at
// module init. Defaults apply when the file is absent or a field is zero.
type GameConfig struct {
	SeatCapacity            int    `json:"seat_capacity"`
	HandSize                int    `json:"hand_size"`
	GraceSeconds            int    `json:"grace_seconds"`
	StoreTTLSeconds         int    `json:"store_ttl_seconds"`
	SnapshotIntervalSeconds int    `json:"snapshot_interval_seconds"`
	SnapshotPath            string `json:"snapshot_path"`
	SnapshotCap             int    `json:"snapshot_cap"`
	ResumeSecret            string `json:"resume_secret"`
	ResumeIssuer            string `json:"resume_issuer"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path once.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the loaded configuration with defaults applied.
func GetGameConfig() GameConfig {
	c := GameConfig{}
	if cfg != nil {
		c = *cfg
	}
	if c.SeatCapacity <= 0 {
		c.SeatCapacity = 6
	}
	if c.HandSize <= 0 {
		c.HandSize = 7
	}
	if c.GraceSeconds <= 0 {
		c.GraceSeconds = 60
	}
	if c.StoreTTLSeconds <= 0 {
		c.StoreTTLSeconds = 3600
	}
	if c.SnapshotIntervalSeconds <= 0 {
		c.SnapshotIntervalSeconds = 30
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = "data/session_snapshots.json"
	}
	if c.SnapshotCap <= 0 {
		c.SnapshotCap = 10
	}
	if c.ResumeIssuer == "" {
		c.ResumeIssuer = "uno-engine"
	}
	return c
}

// GracePeriod returns the reconnection grace window.
func (c GameConfig) GracePeriod() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}

// StoreTTL returns the state-store entry TTL.
func (c GameConfig) StoreTTL() time.Duration {
	return time.Duration(c.StoreTTLSeconds) * time.Second
}

// SnapshotInterval returns the snapshot flush cadence.
func (c GameConfig) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalSeconds) * time.Second
}
