package jobcontext

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type KeyContext string

var (
	keyRecordingID  KeyContext = "recording_id"
	keyWorkerID     KeyContext = "worker_id"
	keyAttempt      KeyContext = "attempt"
	keyMaxAttempts  KeyContext = "max_attempts"
	keyAttemptStart KeyContext = "attempt_start_time"
)

// AttemptMetadata describes one pipeline attempt for a recording
type AttemptMetadata struct {
	RecordingID uuid.UUID
	WorkerID    int
	Attempt     int
	MaxAttempts int
	StartTime   time.Time
}

// AttemptBegin derives the context an attempt runs under. The attempt is
// detached from the parent's cancellation: once started it runs to completion
// or to error. Values of the parent are kept.
func AttemptBegin(parentCtx context.Context, recordingID uuid.UUID, workerID, attempt, maxAttempts int) context.Context {
	ctx := context.WithoutCancel(parentCtx)
	ctx = context.WithValue(ctx, keyRecordingID, recordingID)
	ctx = context.WithValue(ctx, keyWorkerID, workerID)
	ctx = context.WithValue(ctx, keyAttempt, attempt)
	ctx = context.WithValue(ctx, keyMaxAttempts, maxAttempts)
	ctx = context.WithValue(ctx, keyAttemptStart, time.Now())
	return ctx
}

// Run executes one attempt, converting a panic into an error
func Run(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic recovered: %v", p)
		}
	}()
	return fn(ctx)
}

// GetRecordingID extracts the recording ID from context
func GetRecordingID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(keyRecordingID).(uuid.UUID)
	return id, ok
}

// GetWorkerID extracts worker ID from context
func GetWorkerID(ctx context.Context) int {
	workerID, ok := ctx.Value(keyWorkerID).(int)
	if !ok {
		return -1
	}
	return workerID
}

// GetAttempt extracts the zero-based attempt number from context
func GetAttempt(ctx context.Context) int {
	attempt, ok := ctx.Value(keyAttempt).(int)
	if !ok {
		return 0
	}
	return attempt
}

// GetMaxAttempts extracts the attempt budget from context
func GetMaxAttempts(ctx context.Context) int {
	maxAttempts, ok := ctx.Value(keyMaxAttempts).(int)
	if !ok {
		return 3 // default
	}
	return maxAttempts
}

// GetAttemptStartTime extracts attempt start time from context
func GetAttemptStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(keyAttemptStart).(time.Time)
	return startTime, ok
}

// GetAttemptMetadata extracts all attempt metadata from context
func GetAttemptMetadata(ctx context.Context) *AttemptMetadata {
	recordingID, _ := GetRecordingID(ctx)
	startTime, _ := GetAttemptStartTime(ctx)

	return &AttemptMetadata{
		RecordingID: recordingID,
		WorkerID:    GetWorkerID(ctx),
		Attempt:     GetAttempt(ctx),
		MaxAttempts: GetMaxAttempts(ctx),
		StartTime:   startTime,
	}
}

// Fields returns zap fields identifying the attempt, for stage-level logging
func Fields(ctx context.Context) []zap.Field {
	md := GetAttemptMetadata(ctx)
	fields := []zap.Field{
		zap.Int("attempt", md.Attempt+1),
		zap.Int("max_attempts", md.MaxAttempts),
	}
	if md.RecordingID != uuid.Nil {
		fields = append(fields, zap.String("recording_id", md.RecordingID.String()))
	}
	if md.WorkerID >= 0 {
		fields = append(fields, zap.Int("worker_id", md.WorkerID))
	}
	return fields
}

// IsRetryableError checks if an error is transient.
// Retryable errors include: network errors, timeouts, deadlocks, rate limits
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// Context errors (timeout, cancelled)
	if strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "context canceled") {
		return true
	}

	// Network errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "unexpected eof") ||
		strings.Contains(errStr, "network unreachable") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "i/o timeout") {
		return true
	}

	// Database deadlock/lock errors (Postgres)
	if strings.Contains(errStr, "deadlock") ||
		strings.Contains(errStr, "40001") || // serialization_failure
		strings.Contains(errStr, "40p01") { // deadlock_detected
		return true
	}

	// API rate limiting
	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429") {
		return true
	}

	// Server errors (5xx)
	if strings.Contains(errStr, "status 5") ||
		strings.Contains(errStr, "status code: 5") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "bad gateway") {
		return true
	}

	// Temporary failures
	if strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "try again") {
		return true
	}

	return false
}
