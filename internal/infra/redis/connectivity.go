package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connectivity treats a Redis PING answered within timeout as connected.
type Connectivity struct {
	client  *redis.Client
	timeout time.Duration
}

func NewConnectivity(client *redis.Client, timeout time.Duration) *Connectivity {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Connectivity{client: client, timeout: timeout}
}

func (c *Connectivity) IsConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Ping(ctx).Err() == nil
}
