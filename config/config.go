// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/poiesic/docindex/chunker"
	"github.com/poiesic/docindex/jobs"
)

// Store backends.
const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

// Config holds configuration for a docindex instance.
type Config struct {
	// DataDir is where the record store and job queue live.
	// Default: "./docindex_db"
	DataDir string `toml:"data_dir"`

	// Store selects the document and fragment backend: "badger" or "sqlite".
	// The job queue always uses badger.
	Store string `toml:"store"`

	// UploadDir receives copies of uploaded and inline documents.
	// Default: DataDir/uploads
	UploadDir string `toml:"upload_dir"`

	// ChunkSize is the maximum number of characters per fragment.
	ChunkSize int `toml:"chunk_size"`

	// JobTimeout bounds a single ingestion job.
	JobTimeout Duration `toml:"job_timeout"`

	// PoolSize is the number of jobs executed concurrently.
	PoolSize int `toml:"pool_size"`

	// MaxAttempts is how many times a failing job is tried before it is dropped.
	MaxAttempts int `toml:"max_attempts"`

	// RateLimit caps job starts per second. Zero means unlimited.
	RateLimit float64 `toml:"rate_limit"`
}

// Duration is a time.Duration written as a string such as "10m" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithDataDir sets the data directory.
func WithDataDir(dir string) ConfigOption {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// WithStore sets the document store backend.
func WithStore(store string) ConfigOption {
	return func(c *Config) {
		c.Store = store
	}
}

// WithUploadDir sets the upload directory.
func WithUploadDir(dir string) ConfigOption {
	return func(c *Config) {
		c.UploadDir = dir
	}
}

// WithChunkSize sets the fragment size.
func WithChunkSize(size int) ConfigOption {
	return func(c *Config) {
		c.ChunkSize = size
	}
}

// WithJobTimeout sets the per-job execution limit.
func WithJobTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.JobTimeout = Duration{timeout}
	}
}

// WithPoolSize sets the job concurrency.
func WithPoolSize(size int) ConfigOption {
	return func(c *Config) {
		c.PoolSize = size
	}
}

// WithMaxAttempts sets how often a failing job is tried.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = attempts
	}
}

// WithRateLimit sets the maximum job starts per second.
func WithRateLimit(perSecond float64) ConfigOption {
	return func(c *Config) {
		c.RateLimit = perSecond
	}
}

// DefaultConfig returns a Config with defaults suitable for a single machine.
func DefaultConfig() *Config {
	return &Config{
		DataDir:     "./docindex_db",
		Store:       StoreBadger,
		ChunkSize:   chunker.DefaultChunkSize,
		JobTimeout:  Duration{jobs.DefaultTimeout},
		PoolSize:    defaultPoolSize(),
		MaxAttempts: 3,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithDataDir("/var/lib/docindex"),
//	    WithStore(StoreSQLite),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It fills UploadDir from DataDir and resets a non-positive PoolSize.
func (c *Config) Normalize() {
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store == "" {
		c.Store = StoreBadger
	}
	if c.UploadDir == "" && c.DataDir != "" {
		c.UploadDir = filepath.Join(c.DataDir, "uploads")
	}
	if c.PoolSize < 1 {
		c.PoolSize = defaultPoolSize()
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is required", ErrInvalidConfig)
	}
	if c.Store != StoreBadger && c.Store != StoreSQLite {
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout.Duration <= 0 {
		return fmt.Errorf("%w: job_timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit cannot be negative", ErrInvalidConfig)
	}
	return nil
}

func defaultPoolSize() int {
	return max(runtime.NumCPU()/2, 1)
}
