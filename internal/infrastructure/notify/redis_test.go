package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

type capturePublisher struct {
	channel string
	body    []byte
	err     error
}

func (c *capturePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	c.channel = channel
	c.body, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if c.err != nil {
		cmd.SetErr(c.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestNotifyUserPublishesJSON(t *testing.T) {
	pub := &capturePublisher{}
	n := NewRedisNotifier(pub, "playcoach:user", "playcoach:ops", nil)
	id := uuid.New()

	if err := n.NotifyUser(context.Background(), entities.UserNotification{Type: entities.NotificationReportReady, RecordingID: id}); err != nil {
		t.Fatalf("NotifyUser returned error: %v", err)
	}
	if pub.channel != "playcoach:user" {
		t.Fatalf("published to %q", pub.channel)
	}
	var got entities.UserNotification
	if err := json.Unmarshal(pub.body, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Type != entities.NotificationReportReady || got.RecordingID != id {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestAlertOpsPublishError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("connection refused")}
	n := NewRedisNotifier(pub, "u", "ops", nil)

	err := n.AlertOps(context.Background(), entities.OpsAlert{RecordingID: uuid.New()})
	if err == nil || pub.channel != "ops" {
		t.Fatalf("expected publish error on ops channel, got %v (%s)", err, pub.channel)
	}
}
