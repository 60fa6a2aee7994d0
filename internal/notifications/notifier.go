package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"friendfeed/internal/cache"
	"friendfeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes toast events for a session. It satisfies notify.Publisher.
type Notifier struct {
	rdb   *redis.Client
	local *Hub
}

// NewNotifier publishes through rdb, or straight to local when rdb is nil.
func NewNotifier(rdb *redis.Client, local *Hub) *Notifier {
	return &Notifier{rdb: rdb, local: local}
}

// PublishToast sends payload to every open page of sessionID.
func (n *Notifier) PublishToast(ctx context.Context, sessionID string, payload []byte) error {
	if n.rdb == nil {
		if n.local != nil {
			n.local.Deliver(sessionID, payload)
		}
		return nil
	}
	if err := n.rdb.Publish(ctx, cache.ToastChannel(sessionID), payload).Err(); err != nil {
		return fmt.Errorf("publish toast: %w", err)
	}
	return nil
}

// StartSubscriber subscribes to every session's toast channel and calls onMessage
// for each message until ctx is done.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(channel string, payload []byte)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, cache.ToastChannelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe toasts: %w", err)
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
							observability.GlobalLogger.Error("panic in toast subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, []byte(msg.Payload))
				}()
			}
		}
	}()
	return nil
}
