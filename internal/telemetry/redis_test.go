package telemetry_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/telemetry"
)

func TestMonitorRedis(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	mr := miniredis.RunT(t)
	r := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	t.Cleanup(func() { r.Close() })

	require.NoError(t, telemetry.MonitorRedis(r))

	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, "studyroom:room:r1", "hi").Err())
	assert.ErrorIs(t, r.Get(ctx, "missing").Err(), redis.Nil)
	assert.Error(t, r.Do(ctx, "nosuchcommand").Err())

	logs := buf.String()
	assert.Contains(t, logs, "redis: dialed")
	assert.Contains(t, logs, "cmd=publish")
	assert.Contains(t, logs, `level=DEBUG msg="redis: command" cmd=get`, "a miss is not a failure")
	assert.Contains(t, logs, `level=WARN msg="redis: command failed" cmd=nosuchcommand`)
}
