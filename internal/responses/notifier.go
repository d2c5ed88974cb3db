package responses

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/preconsulta/intake-platform/pkg/logging"
	"github.com/redis/go-redis/v9"
)

// Publisher announces new responses; satisfied by *RedisNotifier.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// RedisNotifier carries new-response notifications over Redis pub/sub, one
// channel per clinician so dashboard pushes stay scoped to the owner's own
// link set.
type RedisNotifier struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisNotifier creates the notifier.
func NewRedisNotifier(client *redis.Client, logger *logging.Logger) *RedisNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisNotifier{client: client, logger: logger}
}

func channelFor(ownerID uuid.UUID) string {
	return "respostas:new:" + ownerID.String()
}

// Publish broadcasts a notification to the owner's channel.
func (n *RedisNotifier) Publish(ctx context.Context, note Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("responses: marshal notification: %w", err)
	}
	if err := n.client.Publish(ctx, channelFor(note.OwnerID), payload).Err(); err != nil {
		return fmt.Errorf("responses: publish notification: %w", err)
	}
	return nil
}

// Subscribe delivers the owner's notifications until the context is
// cancelled or the returned stop function is called.
func (n *RedisNotifier) Subscribe(ctx context.Context, ownerID uuid.UUID) (<-chan Notification, func()) {
	sub := n.client.Subscribe(ctx, channelFor(ownerID))
	out := make(chan Notification)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var note Notification
			if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil {
				n.logger.Warn("malformed notification dropped", "error", err, "owner_id", ownerID)
				continue
			}
			select {
			case out <- note:
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() { _ = sub.Close() }
	return out, stop
}
