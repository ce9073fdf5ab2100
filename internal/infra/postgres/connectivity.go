package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Connectivity treats a successful pool ping as connected.
type Connectivity struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewConnectivity(pool *pgxpool.Pool, timeout time.Duration) *Connectivity {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Connectivity{pool: pool, timeout: timeout}
}

func (c *Connectivity) IsConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.pool.Ping(ctx) == nil
}
