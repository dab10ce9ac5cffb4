package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepaaran/ingestr/internal/config"
	"github.com/pepaaran/ingestr/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := domain.ForcingRecord{
		SiteID:     "CH-Lae",
		Values:     map[string]float64{"tc": 8.25, "elv": 689},
		IngestedAt: now,
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("CH-Lae"), msg.Key)
	assert.Contains(t, string(msg.Value), `"site_id":"CH-Lae"`)
	assert.Contains(t, string(msg.Value), `"tc":8.25`)
	assert.Contains(t, string(msg.Value), `"elv":689`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "content-type", msg.Headers[0].Key)
	assert.Equal(t, []byte("application/json"), msg.Headers[0].Value)
	assert.Equal(t, "ingested_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestPublishForcingEmptyBatch(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "site-forcings"}
	w := NewWriter(cfg, slog.Default())

	// No records means no broker round trip, so this must succeed offline.
	require.NoError(t, w.PublishForcing(context.Background(), nil))
}
