package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SharePurger removes share links whose expiry has passed
type SharePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// ShareSweeperConfig holds configuration for the share sweeper
type ShareSweeperConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultShareSweeperConfig returns default configuration
func DefaultShareSweeperConfig() ShareSweeperConfig {
	return ShareSweeperConfig{
		Interval: time.Hour,
		Timeout:  30 * time.Second,
	}
}

// ShareSweeper periodically deletes expired share links
type ShareSweeper struct {
	config ShareSweeperConfig
	purger SharePurger
	logger *zap.Logger

	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	lastRun   time.Time
	purged    int64
	runs      int
	lastError error
}

// NewShareSweeper creates a new share sweeper
func NewShareSweeper(config ShareSweeperConfig, purger SharePurger, logger *zap.Logger) *ShareSweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultShareSweeperConfig().Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultShareSweeperConfig().Timeout
	}
	return &ShareSweeper{
		config: config,
		purger: purger,
		logger: logger,
	}
}

// Start sweeps once immediately, then on every interval
func (w *ShareSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("share sweeper already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("ShareSweeper started", zap.Duration("interval", w.config.Interval))

	go w.loop(ctx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (w *ShareSweeper) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.mu.RLock()
	w.logger.Info("ShareSweeper stopped", zap.Int("runs", w.runs), zap.Int64("purged", w.purged))
	w.mu.RUnlock()
	return nil
}

// Name returns the worker name for identification
func (w *ShareSweeper) Name() string {
	return "ShareSweeper"
}

// Status reports the sweeper's progress
func (w *ShareSweeper) Status() WorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := WorkerStatus{
		Name:      w.Name(),
		Running:   w.isRunning,
		LastRun:   w.lastRun,
		Processed: w.purged,
	}
	if w.lastError != nil {
		st.LastError = w.lastError.Error()
	}
	return st
}

func (w *ShareSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs one purge with a bounded timeout
func (w *ShareSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	n, err := w.purger.PurgeExpired(sweepCtx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.runs++
	w.lastRun = time.Now()
	w.lastError = err
	if err != nil {
		w.logger.Error("Failed to purge expired shares", zap.Error(err))
		return
	}
	w.purged += n
}
