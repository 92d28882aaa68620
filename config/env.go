package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables read by ApplyEnv.
const (
	EnvDataDir     = "DOCINDEX_DATA_DIR"
	EnvStore       = "DOCINDEX_STORE"
	EnvUploadDir   = "DOCINDEX_UPLOAD_DIR"
	EnvChunkSize   = "DOCINDEX_CHUNK_SIZE"
	EnvJobTimeout  = "DOCINDEX_JOB_TIMEOUT"
	EnvPoolSize    = "DOCINDEX_POOL_SIZE"
	EnvMaxAttempts = "DOCINDEX_MAX_ATTEMPTS"
	EnvRateLimit   = "DOCINDEX_RATE_LIMIT"
)

// ApplyEnv overrides fields with any DOCINDEX_* variables that are set.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvDataDir); ok {
		c.DataDir = v
	}
	if v, ok := os.LookupEnv(EnvStore); ok {
		c.Store = v
	}
	if v, ok := os.LookupEnv(EnvUploadDir); ok {
		c.UploadDir = v
	}
	if err := envInt(EnvChunkSize, &c.ChunkSize); err != nil {
		return err
	}
	if err := envInt(EnvPoolSize, &c.PoolSize); err != nil {
		return err
	}
	if err := envInt(EnvMaxAttempts, &c.MaxAttempts); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(EnvJobTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvJobTimeout, err)
		}
		c.JobTimeout = Duration{d}
	}
	if v, ok := os.LookupEnv(EnvRateLimit); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvRateLimit, err)
		}
		c.RateLimit = f
	}
	return nil
}

func envInt(name string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
	}
	*dst = n
	return nil
}
