package jobcontext

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestAttemptBeginIgnoresParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	ctx := AttemptBegin(parent, id, 2, 1, 3)
	cancel()

	if ctx.Err() != nil {
		t.Fatalf("attempt context cancelled with parent: %v", ctx.Err())
	}
	md := GetAttemptMetadata(ctx)
	if md.RecordingID != id || md.WorkerID != 2 || md.Attempt != 1 || md.MaxAttempts != 3 {
		t.Fatalf("unexpected metadata: %+v", md)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	err := Run(context.Background(), func(context.Context) error {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected error from panicking attempt")
	}
}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("read tcp: connection reset by peer"), true},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{errors.New("error, status code: 503, message: overloaded"), true},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("no adult speaker identified"), false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Errorf("IsRetryableError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
