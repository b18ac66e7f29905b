package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	"github.com/johnquangdev/playcoach/internal/domain/repositories"
	"github.com/johnquangdev/playcoach/pkg/config"
)

// WorkerPool feeds recordings to the orchestrator. Recordings arrive through
// Enqueue (the audio-ready trigger) or the pending poller; the stale sweeper
// rescues PROCESSING recordings whose worker died.
type WorkerPool struct {
	orchestrator *Orchestrator
	recordings   repositories.RecordingRepository
	cfg          config.PipelineConfig
	logger       *zap.Logger

	queue    chan uuid.UUID
	queuedMu sync.Mutex
	queued   map[uuid.UUID]struct{}

	workerMutex         sync.Mutex
	workerStopChan      chan struct{}
	workerCancel        context.CancelFunc
	workerWg            sync.WaitGroup
	isWorkerPoolRunning bool
}

// NewWorkerPool creates a worker pool
func NewWorkerPool(orchestrator *Orchestrator, recordings repositories.RecordingRepository, cfg config.PipelineConfig, logger *zap.Logger) *WorkerPool {
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	return &WorkerPool{
		orchestrator: orchestrator,
		recordings:   recordings,
		cfg:          cfg,
		logger:       logger,
		queue:        make(chan uuid.UUID, size),
		queued:       make(map[uuid.UUID]struct{}),
	}
}

// Enqueue schedules a recording. It returns false when the recording is
// already queued or the queue is full; the pending poller picks it up later.
func (w *WorkerPool) Enqueue(recordingID uuid.UUID) bool {
	w.queuedMu.Lock()
	defer w.queuedMu.Unlock()

	if _, ok := w.queued[recordingID]; ok {
		return false
	}
	select {
	case w.queue <- recordingID:
		w.queued[recordingID] = struct{}{}
		return true
	default:
		return false
	}
}

func (w *WorkerPool) dequeued(recordingID uuid.UUID) {
	w.queuedMu.Lock()
	delete(w.queued, recordingID)
	w.queuedMu.Unlock()
}

// StartWorkerPool starts the workers, the pending poller and the stale sweeper
func (w *WorkerPool) StartWorkerPool(ctx context.Context) error {
	w.workerMutex.Lock()
	defer w.workerMutex.Unlock()

	if w.isWorkerPoolRunning {
		return fmt.Errorf("worker pool already running")
	}

	w.isWorkerPoolRunning = true
	w.workerStopChan = make(chan struct{})
	runCtx, cancel := context.WithCancel(ctx)
	w.workerCancel = cancel

	workerCount := w.cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}

	if w.logger != nil {
		w.logger.Info("🚀 Starting recording worker pool",
			zap.Int("worker_count", workerCount),
		)
	}

	for i := 0; i < workerCount; i++ {
		w.workerWg.Add(1)
		go w.recordingWorker(runCtx, i)
	}

	w.workerWg.Add(1)
	go w.pendingPoller(runCtx)

	w.workerWg.Add(1)
	go w.staleSweeper(runCtx)

	return nil
}

// StopWorkerPool stops accepting work and waits for in-flight attempts.
// Backoff waits between attempts are interrupted; the stale sweeper of the
// next start resumes those recordings.
func (w *WorkerPool) StopWorkerPool() error {
	w.workerMutex.Lock()
	defer w.workerMutex.Unlock()

	if !w.isWorkerPoolRunning {
		return fmt.Errorf("worker pool not running")
	}

	if w.logger != nil {
		w.logger.Info("🛑 Stopping recording worker pool...")
	}

	close(w.workerStopChan)
	w.workerCancel()
	w.workerWg.Wait()
	w.isWorkerPoolRunning = false

	if w.logger != nil {
		w.logger.Info("✅ Recording worker pool stopped")
	}

	return nil
}

func (w *WorkerPool) recordingWorker(ctx context.Context, workerID int) {
	defer w.workerWg.Done()

	if w.logger != nil {
		w.logger.Info("👷 Worker started", zap.Int("worker_id", workerID))
	}

	for {
		select {
		case <-w.workerStopChan:
			if w.logger != nil {
				w.logger.Info("👷 Worker stopping", zap.Int("worker_id", workerID))
			}
			return

		case recordingID := <-w.queue:
			w.dequeued(recordingID)
			err := w.orchestrator.process(ctx, recordingID, workerID)
			switch {
			case err == nil:
			case errors.Is(err, entities.ErrRecordingLocked):
				if w.logger != nil {
					w.logger.Debug("🔒 Recording locked by another worker",
						zap.String("recording_id", recordingID.String()),
					)
				}
			default:
				if w.logger != nil {
					w.logger.Error("❌ Failed to process recording",
						zap.Int("worker_id", workerID),
						zap.String("recording_id", recordingID.String()),
						zap.Error(err),
					)
				}
			}
		}
	}
}

// pendingPoller enqueues PENDING recordings the trigger path missed
func (w *WorkerPool) pendingPoller(ctx context.Context) {
	defer w.workerWg.Done()

	interval := w.cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.workerStopChan:
			return

		case <-ticker.C:
			w.pollPending(ctx)
		}
	}
}

func (w *WorkerPool) pollPending(ctx context.Context) int {
	recordings, err := w.recordings.FindByStatus(ctx, entities.AnalysisStatusPending, cap(w.queue))
	if err != nil {
		if w.logger != nil {
			w.logger.Error("❌ Failed to poll pending recordings", zap.Error(err))
		}
		return 0
	}

	enqueued := 0
	for _, r := range recordings {
		if w.Enqueue(r.ID) {
			enqueued++
		}
	}
	if enqueued > 0 && w.logger != nil {
		w.logger.Info("📋 Enqueued pending recordings", zap.Int("count", enqueued))
	}
	return enqueued
}

// staleSweeper resets PROCESSING recordings older than StaleAfter
func (w *WorkerPool) staleSweeper(ctx context.Context) {
	defer w.workerWg.Done()

	interval := w.cfg.StaleAfter / 2
	if interval <= 0 || interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.workerStopChan:
			return

		case <-ticker.C:
			w.sweepStale(ctx)
		}
	}
}

func (w *WorkerPool) sweepStale(ctx context.Context) int {
	recordings, err := w.recordings.FindStale(ctx, time.Now().Add(-w.cfg.StaleAfter), 10)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("❌ Failed to find stale recordings", zap.Error(err))
		}
		return 0
	}

	reset := 0
	for _, r := range recordings {
		ok, err := w.orchestrator.ResetStale(ctx, r)
		if err != nil {
			if w.logger != nil {
				w.logger.Error("❌ Failed to reset stale recording",
					zap.String("recording_id", r.ID.String()),
					zap.Error(err),
				)
			}
			continue
		}
		if !ok {
			continue
		}
		reset++
		if w.logger != nil {
			w.logger.Warn("🧹 Reset stale recording",
				zap.String("recording_id", r.ID.String()),
				zap.Int("retry_count", r.RetryCount),
			)
		}
		w.Enqueue(r.ID)
	}
	return reset
}
