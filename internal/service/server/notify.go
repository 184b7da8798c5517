package server

import (
	"context"
	"encoding/json"
	"fmt"

	"pgprelay/internal/model"
	redisSvc "pgprelay/internal/service/redis"
	"pgprelay/internal/utils/log"

	"go.uber.org/zap"
)

// Notifier carries deliverable hints to receivers. Push buffers and
// broadcasts one notification, Drain empties the offline buffer, and Listen
// yields live notifications until the returned stop func is called.
//
// A watcher must Listen before it Drains: anything pushed in between then
// arrives on the live channel instead of being lost. Seeing the same
// notification twice is harmless; they only prompt a /retrieve.
type Notifier interface {
	Push(ctx context.Context, receiver string, n *model.Notification) error
	Drain(ctx context.Context, receiver string) ([]*model.Notification, error)
	Listen(ctx context.Context, receiver string) (<-chan *model.Notification, func(), error)
}

func notifyKey(receiver string) string {
	return fmt.Sprintf("notify:%s", receiver)
}

// redisNotifier backs the Notifier with a Redis list (offline buffer) plus
// pub/sub (live fan-out) on the same key.
type redisNotifier struct {
	redis *redisSvc.RedisService
}

func NewRedisNotifier(redis *redisSvc.RedisService) Notifier {
	return &redisNotifier{redis: redis}
}

func (rn *redisNotifier) Push(ctx context.Context, receiver string, n *model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	if err := rn.redis.RPush(ctx, notifyKey(receiver), data); err != nil {
		return err
	}
	return rn.redis.Publish(ctx, notifyKey(receiver), data)
}

func (rn *redisNotifier) Drain(ctx context.Context, receiver string) ([]*model.Notification, error) {
	key := notifyKey(receiver)
	vals, err := rn.redis.LRange(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := rn.redis.Del(ctx, key); err != nil {
		return nil, err
	}

	var res []*model.Notification
	for _, v := range vals {
		var n model.Notification
		if err := json.Unmarshal([]byte(v), &n); err != nil {
			return nil, err
		}
		res = append(res, &n)
	}
	return res, nil
}

func (rn *redisNotifier) Listen(ctx context.Context, receiver string) (<-chan *model.Notification, func(), error) {
	sub := rn.redis.Subscribe(ctx, notifyKey(receiver))
	// Force the SUBSCRIBE onto the wire so pushes after Listen returns are
	// guaranteed to reach the channel.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan *model.Notification)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var n model.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				log.Warn("bad notification payload", zap.String("receiver", receiver), zap.Error(err))
				continue
			}
			out <- &n
		}
	}()

	stop := func() { _ = sub.Close() }
	return out, stop, nil
}
