// Package bus fans chat stream cancellations out to every API instance.
package bus

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type CancelBus interface {
	Publish(ctx context.Context, key string) error
	// StartForwarder delivers every published key to onCancel until ctx ends.
	StartForwarder(ctx context.Context, onCancel func(key string)) error
	Close() error
}

type RedisConfig struct {
	Addr     string
	Password string
	Channel  string
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisCancelBus(log *logger.Logger, cfg RedisConfig) (CancelBus, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = "coursework:chat:cancel"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisBus(log, rdb, ch), nil
}

func newRedisBus(log *logger.Logger, rdb *goredis.Client, channel string) *redisBus {
	return &redisBus{log: log.With("service", "RedisCancelBus"), rdb: rdb, channel: channel}
}

func (b *redisBus) Publish(ctx context.Context, key string) error {
	return b.rdb.Publish(ctx, b.channel, key).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onCancel func(key string)) error {
	if onCancel == nil {
		return fmt.Errorf("onCancel callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				if m == nil || m.Payload == "" {
					b.log.Warn("Empty cancel payload")
					continue
				}
				onCancel(m.Payload)
			}
		}
	}()
	return nil
}

func (b *redisBus) Close() error {
	return b.rdb.Close()
}
