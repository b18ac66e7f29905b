package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
	"github.com/johnquangdev/playcoach/internal/infrastructure/cache"
)

func TestEnqueueDeduplicates(t *testing.T) {
	f := newOrchestratorFixture()
	pool := NewWorkerPool(f.orch, f.recordings, testPipelineConfig(), nil)

	id := uuid.New()
	if !pool.Enqueue(id) {
		t.Fatal("first enqueue should succeed")
	}
	if pool.Enqueue(id) {
		t.Fatal("duplicate enqueue should be rejected")
	}
	<-pool.queue
	pool.dequeued(id)
	if !pool.Enqueue(id) {
		t.Fatal("enqueue after dequeue should succeed")
	}
}

func TestPollPendingEnqueuesPendingOnly(t *testing.T) {
	pending := entities.NewRecording(uuid.New(), uuid.New(), entities.SessionModeCDI, 60, "p.m4a")
	done := entities.NewRecording(uuid.New(), uuid.New(), entities.SessionModeCDI, 60, "d.m4a")
	done.AnalysisStatus = entities.AnalysisStatusCompleted

	f := newOrchestratorFixture()
	recs := newMemRecordings(pending, done)
	pool := NewWorkerPool(f.orch, recs, testPipelineConfig(), nil)

	if n := pool.pollPending(context.Background()); n != 1 {
		t.Fatalf("expected 1 enqueued, got %d", n)
	}
	if got := <-pool.queue; got != pending.ID {
		t.Fatalf("expected pending recording, got %s", got)
	}
}

func TestSweepStaleResetsAbandonedRecording(t *testing.T) {
	started := time.Now().Add(-2 * time.Hour)
	stale := entities.NewRecording(uuid.New(), uuid.New(), entities.SessionModeCDI, 60, "s.m4a")
	stale.AnalysisStatus = entities.AnalysisStatusProcessing
	stale.ProcessingStartedAt = &started
	stale.RetryCount = 1

	busy := entities.NewRecording(uuid.New(), uuid.New(), entities.SessionModeCDI, 60, "b.m4a")
	busy.AnalysisStatus = entities.AnalysisStatusProcessing
	busy.ProcessingStartedAt = &started

	f := newOrchestratorFixture()
	recs := newMemRecordings(stale, busy)
	f.orch.recordings = recs
	pool := NewWorkerPool(f.orch, recs, testPipelineConfig(), nil)

	unlock, _ := f.locker.TryLock(context.Background(), lockKey(busy.ID), time.Minute)
	defer unlock()

	if n := pool.sweepStale(context.Background()); n != 1 {
		t.Fatalf("expected 1 reset, got %d", n)
	}
	got := recs.get(stale.ID)
	if got.AnalysisStatus != entities.AnalysisStatusPending || got.RetryCount != 1 {
		t.Fatalf("expected PENDING with retry count kept, got %s/%d", got.AnalysisStatus, got.RetryCount)
	}
	if recs.get(busy.ID).AnalysisStatus != entities.AnalysisStatusProcessing {
		t.Fatal("a recording whose lock is held must not be reset")
	}
	if queued := <-pool.queue; queued != stale.ID {
		t.Fatalf("expected stale recording to be requeued, got %s", queued)
	}
}

func TestWorkerPoolProcessesQueuedRecording(t *testing.T) {
	f := newOrchestratorFixture()
	pool := NewWorkerPool(f.orch, f.recordings, testPipelineConfig(), nil)

	if err := pool.StartWorkerPool(context.Background()); err != nil {
		t.Fatalf("StartWorkerPool: %v", err)
	}
	if err := pool.StartWorkerPool(context.Background()); err == nil {
		t.Fatal("second start should fail")
	}
	pool.Enqueue(f.recording.ID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.recordings.get(f.recording.ID).AnalysisStatus == entities.AnalysisStatusCompleted {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := pool.StopWorkerPool(); err != nil {
		t.Fatalf("StopWorkerPool: %v", err)
	}
	if got := f.recordings.get(f.recording.ID).AnalysisStatus; got != entities.AnalysisStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got)
	}
}

// slowRunner succeeds after delay and records how many runs overlapped
type slowRunner struct {
	delay time.Duration

	mu      sync.Mutex
	running int
	peak    int
	calls   int
}

func (s *slowRunner) Run(ctx context.Context, r *entities.Recording) (*entities.AnalysisResult, error) {
	s.mu.Lock()
	s.calls++
	s.running++
	if s.running > s.peak {
		s.peak = s.running
	}
	s.mu.Unlock()

	time.Sleep(s.delay)

	s.mu.Lock()
	s.running--
	s.mu.Unlock()
	return &entities.AnalysisResult{OverallScore: 70}, nil
}

func TestAttemptOutlivingLockTTLIsNotReset(t *testing.T) {
	store := cache.NewMemoryStore()
	defer store.Close()

	cfg := testPipelineConfig()
	cfg.LockTTL = 50 * time.Millisecond
	cfg.StaleAfter = 20 * time.Millisecond

	rec := entities.NewRecording(uuid.New(), uuid.New(), entities.SessionModeCDI, 300, "audio/long.m4a")
	recs := newMemRecordings(rec)
	runner := &slowRunner{delay: 300 * time.Millisecond}
	orch := NewOrchestrator(OrchestratorDeps{
		Recordings: recs,
		Runner:     runner,
		Notifier:   &fakeNotifier{},
		Audio:      &fakeAudio{},
		Locker:     cache.NewMemoryLocker(store),
		Sleep:      (&recordingSleeper{}).sleep,
	}, cfg, nil)
	pool := NewWorkerPool(orch, recs, cfg, nil)

	done := make(chan error, 1)
	go func() { done <- orch.process(context.Background(), rec.ID, 1) }()

	// the attempt is now older than both the lock ttl and StaleAfter
	time.Sleep(100 * time.Millisecond)
	if got := recs.get(rec.ID).AnalysisStatus; got != entities.AnalysisStatusProcessing {
		t.Fatalf("expected PROCESSING mid-attempt, got %s", got)
	}
	if n := pool.sweepStale(context.Background()); n != 0 {
		t.Fatalf("a running attempt must not be reset, got %d resets", n)
	}
	if err := orch.process(context.Background(), rec.ID, 2); !errors.Is(err, entities.ErrRecordingLocked) {
		t.Fatalf("expected ErrRecordingLocked for a second worker, got %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("process: %v", err)
	}
	if runner.peak != 1 || runner.calls != 1 {
		t.Fatalf("expected one attempt at a time and one run, got peak=%d calls=%d", runner.peak, runner.calls)
	}
	if got := recs.get(rec.ID).AnalysisStatus; got != entities.AnalysisStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got)
	}
}
