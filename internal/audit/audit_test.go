package audit

import (
	"context"
	"testing"

	"github.com/dropDatabas3/passgrant/internal/observability/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).With(logger.RequestID("rid-1")))

	Log(ctx, RefreshReplay, logger.ClientID("web"), logger.UserID("u1"))

	entries := logs.FilterLoggerName("audit").All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "token.refresh_replay", e.Message)
	fields := e.ContextMap()
	assert.Equal(t, "token.refresh_replay", fields["event"])
	assert.Equal(t, "web", fields["client_id"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "rid-1", fields["request_id"])
}
