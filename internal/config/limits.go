package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DefaultMaxConcurrent is the concurrency limit used when none is configured.
const DefaultMaxConcurrent = 3

// MaxConcurrentCeiling is the highest concurrency limit accepted at runtime.
const MaxConcurrentCeiling = 32

// ErrInvalidLimit is returned when a concurrency limit is out of range.
var ErrInvalidLimit = errors.New("invalid concurrency limit")

// Limits holds the live concurrency limit. It is safe for concurrent use and
// satisfies the job queue's limiter interface.
type Limits struct {
	maxConcurrent atomic.Int64
}

// NewLimits creates Limits with the given initial value. Values <= 0 use
// DefaultMaxConcurrent.
func NewLimits(maxConcurrent int) *Limits {
	l := &Limits{}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	l.maxConcurrent.Store(int64(maxConcurrent))
	return l
}

// MaxConcurrent returns the current limit.
func (l *Limits) MaxConcurrent() int {
	return int(l.maxConcurrent.Load())
}

// SetMaxConcurrent replaces the limit. It takes effect on the queue's next
// scheduling pass; running jobs are never interrupted.
func (l *Limits) SetMaxConcurrent(n int) error {
	if n < 1 || n > MaxConcurrentCeiling {
		return fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidLimit, n, MaxConcurrentCeiling)
	}
	l.maxConcurrent.Store(int64(n))
	return nil
}

// WatchLimits re-reads the config file at path whenever it changes and
// applies task_queue.max_concurrent to limits. Other settings need a
// restart. An empty path is a no-op.
func WatchLimits(path string, limits *Limits, logger *slog.Logger) error {
	if path == "" {
		return nil
	}

	v, err := newViper(path)
	if err != nil {
		return err
	}

	logger = logger.With("component", "config_watcher", "path", path)
	v.OnConfigChange(func(e fsnotify.Event) {
		applyLimit(v, limits, logger)
	})
	v.WatchConfig()
	return nil
}

func applyLimit(v *viper.Viper, limits *Limits, logger *slog.Logger) {
	n := v.GetInt("task_queue.max_concurrent")
	if n <= 0 {
		n = DefaultMaxConcurrent
	}
	if n == limits.MaxConcurrent() {
		return
	}
	if err := limits.SetMaxConcurrent(n); err != nil {
		logger.Warn("ignoring concurrency limit from config file", "error", err)
		return
	}
	logger.Info("concurrency limit updated", "max_concurrent", n)
}
