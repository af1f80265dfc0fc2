package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis operations the explorer uses: tracking the last
// block height processed per (network, provider) so block scans can compute
// the range to fetch, and detect providers whose head runs behind.
//
// A nil *Client is valid and reports every height as unknown, so the service
// runs without Redis at reduced functionality.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

const heightTTL = 24 * time.Hour

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

func heightKey(network, provider string) string {
	return fmt.Sprintf("latest_block_height_processed:%s:%s", network, provider)
}

// GetProcessedHeight returns the last processed height for one network and
// provider. found is false when nothing is cached (or no Redis is wired).
func (c *Client) GetProcessedHeight(
	ctx context.Context,
	network, provider string,
) (height uint64, found bool, err error) {
	if c == nil {
		return 0, false, nil
	}
	val, err := c.rdb.Get(ctx, heightKey(network, provider)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get failed: %w", err)
	}
	height, err = strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt height value %q: %w", val, err)
	}
	return height, true, nil
}

// SetProcessedHeight records the last processed height. The entry expires
// after a day so a decommissioned provider does not pin a stale height
// forever.
func (c *Client) SetProcessedHeight(
	ctx context.Context,
	network, provider string,
	height uint64,
) error {
	if c == nil {
		return nil
	}
	key := heightKey(network, provider)
	if err := c.rdb.Set(ctx, key, strconv.FormatUint(height, 10), heightTTL).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}
