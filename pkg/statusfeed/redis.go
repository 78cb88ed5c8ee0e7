package statusfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

// HistoryLength is how many events the Redis history list keeps.
const HistoryLength = 1000

// RedisMirror republishes lock events on a Redis channel and keeps the most
// recent ones in a list for late subscribers.
type RedisMirror struct {
	client  *redis.Client
	channel string
}

func NewRedisMirror(ctx context.Context, addr, channel string) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	log.Info().Str("addr", addr).Str("channel", channel).Msg("Redis mirror connected")
	return &RedisMirror{client: client, channel: channel}, nil
}

func (m *RedisMirror) historyKey() string {
	return m.channel + ":history"
}

// Publish sends ev to subscribers and appends it to the history list.
func (m *RedisMirror) Publish(ctx context.Context, ev types.LockEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode lock event: %w", err)
	}
	if err := m.client.Publish(ctx, m.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish lock event: %w", err)
	}

	pipe := m.client.Pipeline()
	pipe.LPush(ctx, m.historyKey(), data)
	pipe.LTrim(ctx, m.historyKey(), 0, HistoryLength-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to store lock event history")
	}
	return nil
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}
