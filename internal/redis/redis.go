package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Connect dials the Redis instance backing the cross-instance event
// bridge and verifies it answers before the relay starts. The relay
// runs fine without one; callers skip Connect entirely when no URL is
// configured.
func Connect(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
