package observer

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/argusvision/inferd/internal/engine"
)

// Publisher pushes fetched result sets to a Redis channel per source
// inference, for consumers outside the process (dashboards, recorders).
type Publisher struct {
	client *redis.Client
}

// NewPublisher connects to the specified Redis address.
// If addr is empty, defaults to localhost:6379.
func NewPublisher(addr string) (*Publisher, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password by default
		DB:       0,  // Default DB
	})

	// Test connection
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &Publisher{client: client}, nil
}

// Observe implements engine.Observer. Publish failures are logged, not
// propagated — result distribution must not stall the inference cycle.
func (p *Publisher) Observe(results []engine.Result, source string) {
	if p.client == nil {
		return
	}
	payload, err := Marshal(results, source)
	if err != nil {
		log.Printf("[%s] dropping publication: %v", source, err)
		return
	}
	channel := fmt.Sprintf("inferd:results:%s", source)
	if err := p.client.Publish(context.Background(), channel, payload).Err(); err != nil {
		log.Printf("[%s] failed to publish results: %v", source, err)
	}
}

// Close closes the Redis connection
func (p *Publisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

var _ engine.Observer = (*Publisher)(nil)
