package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	args *redis.XAddArgs
	err  error
}

func (f *fakeRedis) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	f.args = args
	cmd := redis.NewStringCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal("1-0")
	}
	return cmd
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishProductImported(t *testing.T) {
	client := &fakeRedis{}
	publisher := NewPublisher(client, "stream:catalog_imports", testLogger())

	err := publisher.PublishProductImported(context.Background(), ProductImportedPayload{
		ProductID:  "0c7caa5e-0000-0000-0000-000000000000",
		Title:      "Linterna Táctica",
		Slug:       "linterna-tactica",
		Price:      "€12.99",
		ImageCount: 4,
		SourceURL:  "https://www.aliexpress.com/item/1005001234567890.html",
	})
	require.NoError(t, err)

	require.NotNil(t, client.args)
	assert.Equal(t, "stream:catalog_imports", client.args.Stream)
	assert.Equal(t, "PRODUCT_IMPORTED", client.args.Values.(map[string]interface{})["event_type"])

	var payload ProductImportedPayload
	raw := client.args.Values.(map[string]interface{})["payload"].(string)
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.NotEmpty(t, payload.EventID)
	assert.False(t, payload.Timestamp.IsZero())
	assert.Equal(t, "importer", payload.Source)
	assert.Equal(t, "Linterna Táctica", payload.Title)
	assert.Equal(t, 4, payload.ImageCount)
}

func TestPublishProductImportedRedisError(t *testing.T) {
	client := &fakeRedis{err: assert.AnError}
	publisher := NewPublisher(client, "", testLogger())

	err := publisher.PublishProductImported(context.Background(), ProductImportedPayload{Title: "x"})
	assert.Error(t, err)
	assert.Equal(t, "stream:catalog_imports", client.args.Stream, "stream name defaults")
}
