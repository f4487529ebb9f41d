package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	channel string
	message []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(2)
	}
	return cmd
}

func TestRedisPublisher(t *testing.T) {
	log, _ := logger.NewTestLogger()

	t.Run("publishes JSON on the channel", func(t *testing.T) {
		client := &fakePublisher{}
		pub, err := NewRedisPublisher(client, "pathwise:invalidations", log)
		require.NoError(t, err)

		event := testEvent()
		require.NoError(t, pub.HandleEvent(context.Background(), event))
		assert.Equal(t, "pathwise:invalidations", client.channel)

		var decoded InvalidationEvent
		require.NoError(t, json.Unmarshal(client.message, &decoded))
		assert.Equal(t, event.ID, decoded.ID)
		assert.Equal(t, event.Tags, decoded.Tags)
		assert.True(t, event.OccurredAt.Equal(decoded.OccurredAt))
	})

	t.Run("surfaces publish failures", func(t *testing.T) {
		client := &fakePublisher{err: errors.New("connection refused")}
		pub, err := NewRedisPublisher(client, "pathwise:invalidations", log)
		require.NoError(t, err)

		err = pub.HandleEvent(context.Background(), testEvent())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("requires client and channel", func(t *testing.T) {
		_, err := NewRedisPublisher(nil, "c", log)
		assert.Error(t, err)
		_, err = NewRedisPublisher(&fakePublisher{}, "", log)
		assert.Error(t, err)
	})
}
