package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"loan-assistant/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr, client := setupRedis(t)
	l := NewRedisLimiter(client, 2, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "s1"))
	assert.True(t, l.Allow(ctx, "s1"))
	assert.False(t, l.Allow(ctx, "s1"))
	assert.True(t, l.Allow(ctx, "s2"), "sessions are counted separately")

	assert.Equal(t, time.Minute, mr.TTL("rl:llm:s1"))

	mr.FastForward(time.Minute + time.Second)
	assert.True(t, l.Allow(ctx, "s1"), "window reset")
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewRedisLimiter(client, 1, time.Minute, logger.NewTestLogger(t))

	mock.ExpectIncr("rl:llm:s1").SetErr(errors.New("connection refused"))
	assert.True(t, l.Allow(context.Background(), "s1"))

	mock.ExpectIncr("rl:llm:s1").SetVal(1)
	mock.ExpectExpire("rl:llm:s1", time.Minute).SetErr(errors.New("readonly"))
	assert.True(t, l.Allow(context.Background(), "s1"))

	mock.ExpectIncr("rl:llm:s1").SetVal(2)
	assert.False(t, l.Allow(context.Background(), "s1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLimiter_Disabled(t *testing.T) {
	var nilLimiter *RedisLimiter
	assert.True(t, nilLimiter.Allow(context.Background(), "s1"))

	l := NewRedisLimiter(nil, 5, time.Minute, logger.NewNoOpLogger())
	assert.True(t, l.Allow(context.Background(), "s1"))

	_, client := setupRedis(t)
	l = NewRedisLimiter(client, 0, time.Minute, logger.NewNoOpLogger())
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(context.Background(), "s1"))
	}
}

func TestTranscript_AppendOnly(t *testing.T) {
	tr := NewTranscript()
	tr.Append("user", "hi")
	tr.Append("assistant", "hello")

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	msgs[0].Text = "mutated"

	assert.Equal(t, "hi", tr.Messages()[0].Text)
	assert.Equal(t, 2, tr.Len())
}
