package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

// Publisher is the part of a redis client the notifier needs
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes user events and ops alerts as JSON on redis channels.
// The push and alerting services subscribe to these channels.
type RedisNotifier struct {
	publisher   Publisher
	userChannel string
	opsChannel  string
	logger      *zap.Logger
}

// NewRedisNotifier creates a redis pub/sub notifier
func NewRedisNotifier(publisher Publisher, userChannel, opsChannel string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{
		publisher:   publisher,
		userChannel: userChannel,
		opsChannel:  opsChannel,
		logger:      logger,
	}
}

// NotifyUser publishes a user-facing event
func (n *RedisNotifier) NotifyUser(ctx context.Context, event entities.UserNotification) error {
	if err := n.publish(ctx, n.userChannel, event); err != nil {
		return err
	}
	if n.logger != nil {
		n.logger.Info("📣 User notified",
			zap.String("type", string(event.Type)),
			zap.String("recording_id", event.RecordingID.String()),
		)
	}
	return nil
}

// AlertOps publishes an operational alert
func (n *RedisNotifier) AlertOps(ctx context.Context, alert entities.OpsAlert) error {
	if err := n.publish(ctx, n.opsChannel, alert); err != nil {
		return err
	}
	if n.logger != nil {
		n.logger.Info("🚨 Ops alert published", zap.String("recording_id", alert.RecordingID.String()))
	}
	return nil
}

func (n *RedisNotifier) publish(ctx context.Context, channel string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := n.publisher.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// LogNotifier writes notifications to the log only. Used by the CLI and when
// redis is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyUser logs the event
func (n *LogNotifier) NotifyUser(ctx context.Context, event entities.UserNotification) error {
	if n.logger != nil {
		n.logger.Info("📣 User notification",
			zap.String("type", string(event.Type)),
			zap.String("recording_id", event.RecordingID.String()),
			zap.String("user_id", event.UserID.String()),
		)
	}
	return nil
}

// AlertOps logs the alert at error level
func (n *LogNotifier) AlertOps(ctx context.Context, alert entities.OpsAlert) error {
	if n.logger != nil {
		n.logger.Error("🚨 Ops alert",
			zap.String("recording_id", alert.RecordingID.String()),
			zap.String("error", alert.Error),
			zap.Int("retry_count", alert.RetryCount),
			zap.String("audio_key", alert.AudioKey),
			zap.String("audio_url", alert.AudioURL),
		)
	}
	return nil
}
