//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/marcelsud/sumit-gateway/notify"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisPublisher_Integration(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainersredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	}()

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: strings.TrimPrefix(addr, "redis://")})
	defer client.Close()

	sub := client.Subscribe(ctx, notify.DefaultChannel)
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publish := notify.RedisPublisher(client, "")
	require.NoError(t, publish(ctx, notify.Message{Topic: notify.TopicRetriesExhausted, EventID: "evt-9", At: time.Now()}))

	select {
	case m := <-sub.Channel():
		var msg notify.Message
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &msg))
		assert.Equal(t, notify.TopicRetriesExhausted, msg.Topic)
		assert.Equal(t, "evt-9", msg.EventID)
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}
