package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultViewTTL = 5 * time.Minute

// Cache keeps rendered report views in Redis for the duration of the
// client polling window.
type Cache struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewCache wraps a Redis client. A non-positive ttl falls back to the
// default.
func NewCache(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *Cache {
	if client == nil {
		panic("render: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultViewTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("reports.internal.render.cache")
	}
	return &Cache{redis: client, ttl: ttl, tracer: tracer}
}

// Get loads a cached view, returning (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, entryHash string) (*ReportView, error) {
	ctx, span := c.tracer.Start(ctx, "render.cache_get")
	defer span.End()

	data, err := c.redis.Get(ctx, viewKey(entryHash)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("render: failed to load cached view: %w", err)
	}

	var view ReportView
	if err := json.Unmarshal(data, &view); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("render: failed to decode cached view: %w", err)
	}
	return &view, nil
}

// Set stores a rendered view.
func (c *Cache) Set(ctx context.Context, entryHash string, view *ReportView) error {
	ctx, span := c.tracer.Start(ctx, "render.cache_set")
	defer span.End()

	data, err := json.Marshal(view)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("render: failed to marshal view: %w", err)
	}
	if err := c.redis.Set(ctx, viewKey(entryHash), data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("render: failed to persist view: %w", err)
	}
	return nil
}

func viewKey(entryHash string) string {
	return fmt.Sprintf("render:view:%s", entryHash)
}
