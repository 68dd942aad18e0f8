package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// Redis publishes each task as JSON on a pub/sub channel.  A mail or SMS
// gateway subscribes and does the actual delivery.
type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = "registrar.notifications"
	}
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Dispatch(ctx context.Context, task types.NotificationTask) error {
	if strings.TrimSpace(task.Target) == "" {
		return fmt.Errorf("task %s: %w", task.ID, ErrNoTarget)
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("%w: redis publish: %v", ErrChannelDown, err)
	}
	return nil
}

func (r *Redis) Reconnect(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

func (r *Redis) Close() error { return r.client.Close() }
