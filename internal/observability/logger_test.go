package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantDebug bool
		wantInfo  bool
	}{
		{"default level is info", "", "text", false, true},
		{"debug enables everything", "debug", "text", true, true},
		{"warn suppresses info", "WARN", "json", false, false},
		{"unknown level falls back to info", "verbose", "json", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.level, tt.format)
			require.NotNil(t, logger)

			ctx := context.Background()
			assert.Equal(t, tt.wantDebug, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.wantInfo, logger.Enabled(ctx, slog.LevelInfo))
			assert.True(t, logger.Enabled(ctx, slog.LevelError))
		})
	}
}
