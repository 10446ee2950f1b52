package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcelsud/sumit-gateway/config"
	"github.com/marcelsud/sumit-gateway/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testConfig(t *testing.T, targetURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	routesFile := filepath.Join(dir, "routes.yaml")
	require.NoError(t, os.WriteFile(routesFile, []byte(`
routes:
  - target_id: "crm"
    target_url: "`+targetURL+`"
    event_types: ["payment.*"]
`), 0o600))

	t.Setenv("STORE", "memory")
	t.Setenv("ROUTES_FILE", routesFile)
	t.Setenv("LOG_LEVEL", "disabled")
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	return cfg
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("success - memory store wiring", func(t *testing.T) {
		a, err := New(ctx, testConfig(t, "https://crm.example.com/hooks"), io.Discard)
		require.NoError(t, err)
		defer a.Close(ctx)

		assert.Nil(t, a.Redis)
		assert.NotNil(t, a.Gateway)
		assert.NoError(t, a.Health(ctx))
		assert.Len(t, a.Routes.List(), 1)
		assert.Equal(t, 5, a.Webhooks.RetryCeiling())
	})

	t.Run("error - missing routes file", func(t *testing.T) {
		cfg := testConfig(t, "https://crm.example.com/hooks")
		cfg.RoutesFile = filepath.Join(t.TempDir(), "missing.yaml")
		_, err := New(ctx, cfg, io.Discard)
		assert.ErrorContains(t, err, "loading routes")
	})

	t.Run("error - unreachable redis", func(t *testing.T) {
		cfg := testConfig(t, "https://crm.example.com/hooks")
		cfg.Store = "redis"
		cfg.RedisAddr = "127.0.0.1:1"
		_, err := New(ctx, cfg, io.Discard)
		assert.ErrorContains(t, err, "creating redis store")
	})
}

func TestSweeper(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	a, err := New(ctx, testConfig(t, srv.URL), io.Discard)
	require.NoError(t, err)

	ev, err := a.Webhooks.CreatePending(ctx, "payment.completed", json.RawMessage(`{"PaymentID":1}`), webhook.RelatedIDs{})
	require.NoError(t, err)

	// two minutes later the pending event is stale and the sweep picks it up
	a.Webhooks = webhook.NewService(a.Store, a.Dispatcher, webhook.Options{},
		webhook.WithClock(func() time.Time { return time.Now().Add(2 * time.Minute) }),
		webhook.WithNotifier(a.Hub),
	)

	s := a.NewSweeper(10*time.Millisecond, webhook.SweepOptions{})
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		s.Run(runCtx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := a.Webhooks.Get(ctx, ev.ID)
		return err == nil && got.Status == webhook.Sent
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(1), hits.Load())
	assert.NotEmpty(t, s.ID())
	require.NoError(t, a.Close(ctx))
}
