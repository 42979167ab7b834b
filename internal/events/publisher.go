// Package events announces finished imports on a Redis stream so the
// rest of the storefront (cache invalidation, search indexing) can
// react without polling the catalog.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type EventType string

const EventTypeProductImported EventType = "PRODUCT_IMPORTED"

// RedisClient is the subset of redis.Client the publisher needs; tests
// inject fakes.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// ProductImportedPayload describes one successful import.
type ProductImportedPayload struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`
	ProductID  string    `json:"product_id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Price      string    `json:"price"`
	ImageCount int       `json:"image_count"`
	SourceURL  string    `json:"source_url"`
	Source     string    `json:"source"`
}

type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = "stream:catalog_imports"
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishProductImported fills in event metadata and XAdds the payload.
// Publishing is best-effort from the caller's perspective; a failure
// here never rolls back the import.
func (p *Publisher) PublishProductImported(ctx context.Context, payload ProductImportedPayload) error {
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.EventType == "" {
		payload.EventType = string(EventTypeProductImported)
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}
	if payload.Source == "" {
		payload.Source = "importer"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_type": payload.EventType,
			"payload":    string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published",
		"event_id", payload.EventID,
		"event_type", payload.EventType,
		"product_id", payload.ProductID,
		"stream", p.stream,
	)

	return nil
}
