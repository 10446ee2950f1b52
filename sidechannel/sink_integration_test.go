//go:build integration

package sidechannel_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/marcelsud/sumit-gateway/sidechannel"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisSink_Integration(t *testing.T) {
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

	sink := sidechannel.NewRedisSink(client, "test:deadletters", 3)
	for i := range 5 {
		letter, err := sidechannel.NewDeadLetter(fmt.Sprintf("dl-%d", i), "notify", map[string]int{"n": i}, errors.New("failed"), time.Now())
		require.NoError(t, err)
		require.NoError(t, sink.Put(ctx, letter))
	}

	letters, err := sink.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, letters, 3)
	assert.Equal(t, "dl-4", letters[0].ID)
	assert.Equal(t, "dl-2", letters[2].ID)
	assert.JSONEq(t, `{"n":4}`, string(letters[0].Payload))
}
