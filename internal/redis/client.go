package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pytake/pytake-go/internal/config"
)

// Client wraps redis.Client. The job engine itself is purely in-process and
// has no hard Redis dependency, but the rest of the application this module
// is embedded in leans on it for sessions, rate limiting and the legacy
// queue system, so cmd/jobengine still dials one at startup and passes it
// to the health handler, which reports Redis reachability. No job handler
// uses it.
type Client struct {
	*redis.Client
}

// Config holds the connection parameters, mirroring the application
// config's Redis* fields.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int

	MaxRetries   int
	PoolSize     int
	MinIdleConns int

	URL string // when set, takes precedence over the discrete fields
}

// New dials Redis and verifies connectivity with a PING.
func New(cfg Config) (*Client, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Password:     cfg.Password,
			DB:           cfg.DB,
			MaxRetries:   cfg.MaxRetries,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Client{Client: client}, nil
}

// Connect dials Redis using the application config's Redis* fields.
func Connect(cfg *config.Config) (*Client, error) {
	return New(Config{
		Host:         cfg.RedisHost,
		Port:         cfg.RedisPort,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		MaxRetries:   cfg.RedisMaxRetries,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
		URL:          cfg.RedisURL,
	})
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.Client.Close()
}
