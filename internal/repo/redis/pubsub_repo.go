package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// PubSubRepo fans notification events out across API instances. Each user has
// a dedicated channel so an instance only subscribes for the connections it
// actually holds.
type PubSubRepo struct {
	client *goredis.Client
}

func NewPubSubRepo(client *goredis.Client) *PubSubRepo {
	return &PubSubRepo{client: client}
}

func UserChannel(userID int64) string {
	return fmt.Sprintf("notify:user:%d", userID)
}

func (r *PubSubRepo) Publish(ctx context.Context, userID int64, payload []byte) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 || len(payload) == 0 {
		return fmt.Errorf("invalid publish payload")
	}

	if err := r.client.Publish(ctx, UserChannel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	return nil
}

// Subscribe opens a subscription on the user's channel. The returned channel
// closes when ctx is cancelled or the subscription is closed.
func (r *PubSubRepo) Subscribe(ctx context.Context, userID int64) (<-chan []byte, func() error, error) {
	if r.client == nil {
		return nil, nil, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return nil, nil, fmt.Errorf("invalid user id")
	}

	sub := r.client.Subscribe(ctx, UserChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe notification channel: %w", err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, sub.Close, nil
}
