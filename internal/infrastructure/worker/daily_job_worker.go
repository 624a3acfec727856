package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sefapa/sgpd/internal/application/alert"
)

// DailyRunner runs one pass of the daily lifecycle job
type DailyRunner interface {
	Run(ctx context.Context) (*alert.DailyResult, error)
}

// DailyJobWorkerConfig holds configuration for the daily job worker
type DailyJobWorkerConfig struct {
	Interval   time.Duration
	RunOnStart bool
}

// DefaultDailyJobWorkerConfig returns default configuration
func DefaultDailyJobWorkerConfig() DailyJobWorkerConfig {
	return DailyJobWorkerConfig{
		Interval:   24 * time.Hour,
		RunOnStart: true,
	}
}

// DailyJobWorker runs the sweeper and deadline alert on a ticker.
// Reruns on the same day are harmless; the alert claim table deduplicates.
type DailyJobWorker struct {
	config DailyJobWorkerConfig
	job    DailyRunner
	logger *zap.Logger

	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	runs      int
	failures  int
	lastRun   time.Time
	lastError error
}

// NewDailyJobWorker creates a new daily job worker
func NewDailyJobWorker(config DailyJobWorkerConfig, job DailyRunner, logger *zap.Logger) *DailyJobWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultDailyJobWorkerConfig().Interval
	}
	return &DailyJobWorker{
		config: config,
		job:    job,
		logger: logger,
	}
}

// Start begins the ticker loop
func (w *DailyJobWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("daily job worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("DailyJobWorker started",
		zap.Duration("interval", w.config.Interval),
		zap.Bool("run_on_start", w.config.RunOnStart))

	go w.loop(ctx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return
func (w *DailyJobWorker) Stop() error {
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
	defer w.mu.RUnlock()
	w.logger.Info("DailyJobWorker stopped",
		zap.Int("runs", w.runs),
		zap.Int("failures", w.failures))
	return nil
}

// Name returns the worker name for identification
func (w *DailyJobWorker) Name() string {
	return "DailyJobWorker"
}

// Status reports run counters
func (w *DailyJobWorker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := Status{
		Name:     w.Name(),
		Running:  w.isRunning,
		Runs:     w.runs,
		Failures: w.failures,
		LastRun:  w.lastRun,
	}
	if w.lastError != nil {
		s.LastError = w.lastError.Error()
	}
	return s
}

func (w *DailyJobWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if w.config.RunOnStart {
		w.runOnce(ctx)
	}

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Daily job loop context cancelled")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *DailyJobWorker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	result, err := w.job.Run(ctx)

	w.mu.Lock()
	w.runs++
	w.lastRun = time.Now()
	w.lastError = err
	if err != nil {
		w.failures++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Daily job failed", zap.Error(err))
		return
	}

	fields := []zap.Field{}
	if result != nil && result.Sweep != nil {
		fields = append(fields,
			zap.Int("opened", result.Sweep.Opened),
			zap.Int("marked_overdue", result.Sweep.MarkedOverdue))
	}
	if result != nil && result.Alert != nil {
		fields = append(fields,
			zap.Int("alerts_sent", result.Alert.Sent),
			zap.Int("alerts_skipped", result.Alert.Skipped),
			zap.Int("alerts_failed", len(result.Alert.Failed)))
	}
	w.logger.Info("Daily job completed", fields...)
}
