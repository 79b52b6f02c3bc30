package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"feedhub/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// BroadcastChannel is the Redis channel every instance's hub listens on.
const BroadcastChannel = "notifications:broadcast"

// Notifier publishes events to Redis so that every instance's hub can
// deliver them to its own clients.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client turns every call into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func (n *Notifier) Name() string { return "redis" }

// Broadcast encodes ev and publishes it on BroadcastChannel.
func (n *Notifier) Broadcast(ctx context.Context, ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	return n.PublishBroadcast(ctx, string(data))
}

// PublishBroadcast sends a raw payload to all connected clients.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	if err := n.rdb.Publish(ctx, BroadcastChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}

// StartSubscriber subscribes to BroadcastChannel and calls onMessage for each
// payload until ctx is cancelled. It returns once the subscription is live.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, BroadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", BroadcastChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in broadcast subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
