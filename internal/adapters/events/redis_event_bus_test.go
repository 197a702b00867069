package events_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medicapp/backend/internal/adapters/events"
	"github.com/medicapp/backend/internal/domain/entities"
	redisclient "github.com/medicapp/backend/internal/infrastructure/clients/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEventBus connects to REDIS_TEST_ADDR or skips.
func newTestEventBus(t *testing.T) *events.RedisEventBus {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	bus := events.NewRedisEventBus(redisclient.Wrap(rdb))
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestRedisEventBus_PublishSubscribe(t *testing.T) {
	bus := newTestEventBus(t)
	channel := "test:" + uuid.NewString()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)

	event := entities.NewProviderEvent("p1", entities.ProviderEventUpdated)
	require.NoError(t, bus.Publish(context.Background(), channel, event))

	select {
	case got := <-received:
		require.NotNil(t, got)
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, "p1", got.ProviderID)
		assert.Equal(t, entities.ProviderEventUpdated, got.EventType)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestRedisEventBus_CancelClosesChannel(t *testing.T) {
	bus := newTestEventBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	received, err := bus.Subscribe(ctx, "test:"+uuid.NewString())
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-received:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestRedisEventBus_CloseEndsSubscriptions(t *testing.T) {
	bus := newTestEventBus(t)

	first, err := bus.Subscribe(context.Background(), "test:"+uuid.NewString())
	require.NoError(t, err)
	second, err := bus.Subscribe(context.Background(), "test:"+uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, bus.Close())

	_, ok := <-first
	assert.False(t, ok)
	_, ok = <-second
	assert.False(t, ok)
}
