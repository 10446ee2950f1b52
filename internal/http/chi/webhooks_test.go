package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marcelsud/sumit-gateway/connector"
	"github.com/marcelsud/sumit-gateway/metrics"
	"github.com/marcelsud/sumit-gateway/routes"
	"github.com/marcelsud/sumit-gateway/sumit"
	"github.com/marcelsud/sumit-gateway/webhook"
	"github.com/marcelsud/sumit-gateway/webhook/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const catalog = `
endpoints:
  - path: "/billing/recurring/listforcustomer/"
    family: "numeric"
    mutation: false
    retry_on_rejection: true
routes:
  - target_id: "crm"
    target_url: "https://crm.example.com/hooks/sumit"
    signing_secret: "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"
    event_types: ["payment.*"]
    expected_status: 202
`

func newLoader(t *testing.T) *routes.Loader {
	t.Helper()
	loader := routes.NewLoader()
	require.NoError(t, loader.Parse([]byte(catalog)))
	return loader
}

func pendingEvent() webhook.Event {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	return webhook.Event{
		ID:            "evt-1",
		EventType:     "payment.completed",
		Payload:       json.RawMessage(`{"PaymentID":1}`),
		Status:        webhook.Pending,
		TransactionID: "tx-1",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequestWithContext(context.Background(), method, target, nil)
	} else {
		req, err = http.NewRequestWithContext(context.Background(), method, target, strings.NewReader(body))
	}
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("success - creates pending event", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		ev := pendingEvent()
		s.On("CreatePending", mock.Anything, "payment.completed", json.RawMessage(`{"PaymentID":1}`), webhook.RelatedIDs{TransactionID: "tx-1"}).Return(ev, nil)
		s.On("CanRetry", ev, webhook.Manual, mock.Anything).Return(true)
		h := WebhookHandlers(ctx, s, newLoader(t))

		w := do(t, h, http.MethodPost, "/v1/events", `{"type":"payment.completed","data":{"PaymentID":1},"transaction_id":"tx-1"}`, nil)
		assert.Equal(t, http.StatusCreated, w.Code)

		var got eventResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "evt-1", got.ID)
		assert.Equal(t, "pending", got.Status)
		assert.True(t, got.CanRetry)
	})

	t.Run("success - deliver schedules retry on failure", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		ev := pendingEvent()
		retrying := ev
		next := ev.CreatedAt.Add(10 * time.Second)
		retrying.Status, retrying.RetryCount, retrying.NextRetryAt = webhook.Retrying, 1, &next
		s.On("CreatePending", mock.Anything, "payment.completed", mock.Anything, mock.Anything).Return(ev, nil)
		s.On("Send", mock.Anything, "evt-1").Return(false, nil)
		s.On("ScheduleRetry", mock.Anything, "evt-1", 0).Return(retrying, nil)
		s.On("CanRetry", retrying, webhook.Manual, mock.Anything).Return(true)
		h := WebhookHandlers(ctx, s, newLoader(t))

		w := do(t, h, http.MethodPost, "/v1/events", `{"type":"payment.completed","data":{},"deliver":true}`, nil)
		assert.Equal(t, http.StatusCreated, w.Code)

		var got eventResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "retrying", got.Status)
		assert.Equal(t, 1, got.RetryCount)
		require.NotNil(t, got.NextRetryAt)
	})

	t.Run("error - invalid event", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("CreatePending", mock.Anything, "payment.*", mock.Anything, mock.Anything).
			Return(webhook.Event{}, errors.Join(webhook.ErrInvalidEvent, errors.New("wildcard")))
		h := WebhookHandlers(ctx, s, newLoader(t))

		w := do(t, h, http.MethodPost, "/v1/events", `{"type":"payment.*","data":{}}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("error - malformed body", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		h := WebhookHandlers(ctx, s, newLoader(t))

		w := do(t, h, http.MethodPost, "/v1/events", `{"type":`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("error - store failure is hidden", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("CreatePending", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(webhook.Event{}, errors.New("redis: connection refused"))
		h := WebhookHandlers(ctx, s, newLoader(t))

		w := do(t, h, http.MethodPost, "/v1/events", `{"type":"payment.completed","data":{}}`, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "redis")
	})
}

func TestGetEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		ev := pendingEvent()
		s.On("Get", mock.Anything, "evt-1").Return(ev, nil)
		s.On("CanRetry", ev, webhook.Manual, mock.Anything).Return(true)
		h := WebhookHandlers(ctx, s, newLoader(t))

		w := do(t, h, http.MethodGet, "/v1/events/evt-1", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"transaction_id":"tx-1"`)
	})

	t.Run("error - not found", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("Get", mock.Anything, "nope").Return(webhook.Event{}, webhook.ErrNotFound)
		h := WebhookHandlers(ctx, s, newLoader(t))

		w := do(t, h, http.MethodGet, "/v1/events/nope", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRetryEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("success - manual retry sends", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		failed := pendingEvent()
		failed.Status, failed.RetryCount = webhook.Failed, 5
		sent := failed
		sentAt := failed.CreatedAt.Add(time.Hour)
		sent.Status, sent.SentAt, sent.RetryCount = webhook.Sent, &sentAt, 5
		s.On("Get", mock.Anything, "evt-1").Return(failed, nil).Once()
		s.On("Retry", mock.Anything, "evt-1").Return(true, nil)
		s.On("Get", mock.Anything, "evt-1").Return(sent, nil).Once()
		s.On("CanRetry", sent, webhook.Manual, mock.Anything).Return(false)
		h := WebhookHandlers(ctx, s, newLoader(t))

		w := do(t, h, http.MethodPost, "/v1/events/evt-1/retry", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var got retryResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.True(t, got.Sent)
		assert.Equal(t, "sent", got.Event.Status)
		assert.False(t, got.Event.CanRetry)
	})

	t.Run("error - already sent", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		ev := pendingEvent()
		ev.Status = webhook.Sent
		s.On("Get", mock.Anything, "evt-1").Return(ev, nil)
		h := WebhookHandlers(ctx, s, newLoader(t))

		w := do(t, h, http.MethodPost, "/v1/events/evt-1/retry", "", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("error - locked", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		ev := pendingEvent()
		s.On("Get", mock.Anything, "evt-1").Return(ev, nil)
		s.On("Retry", mock.Anything, "evt-1").Return(false, webhook.ErrLocked)
		h := WebhookHandlers(ctx, s, newLoader(t))

		w := do(t, h, http.MethodPost, "/v1/events/evt-1/retry", "", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPostSweep(t *testing.T) {
	s := mocks.NewUseCase(t)
	s.On("Sweep", mock.Anything, webhook.SweepOptions{IncludeFailed: true}).Return(webhook.SweepReport{
		Claimed:  3,
		Sent:     1,
		Retrying: 1,
		Failed:   1,
		Errors:   []error{errors.New("event x: boom")},
		Duration: 1500 * time.Millisecond,
	}, nil)
	h := WebhookHandlers(context.Background(), s, newLoader(t))

	w := do(t, h, http.MethodPost, "/v1/sweep?include_failed=true", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var got sweepResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Claimed)
	assert.Equal(t, []string{"event x: boom"}, got.Errors)
	assert.Equal(t, int64(1500), got.DurationMS)
}

func TestCatalog(t *testing.T) {
	s := mocks.NewUseCase(t)
	h := WebhookHandlers(context.Background(), s, newLoader(t))

	t.Run("routes hide secrets", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/v1/routes", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "whsec_")

		var got []routeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.True(t, got[0].Signed)
		assert.Equal(t, 202, got[0].ExpectedStatus)
	})

	t.Run("endpoints include defaults and overrides", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/v1/endpoints", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var got []endpointResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		paths := make(map[string]endpointResponse)
		for _, e := range got {
			paths[e.Path] = e
		}
		require.Contains(t, paths, "/billing/recurring/listforcustomer/")
		assert.Equal(t, "numeric", paths["/billing/recurring/listforcustomer/"].Family)
		assert.True(t, paths["/billing/recurring/listforcustomer/"].RetryOnRejection)
		assert.Contains(t, paths, sumit.PathCharge)
	})
}

type fakeChecker struct {
	err    error
	locale string
}

func (f *fakeChecker) CheckCredentials(ctx context.Context) error {
	f.locale = sumit.LocaleFrom(ctx, "")
	return f.err
}

func TestCheckCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("success - valid with negotiated locale", func(t *testing.T) {
		checker := &fakeChecker{}
		h := WebhookHandlers(ctx, mocks.NewUseCase(t), newLoader(t), WithGateway(checker))

		w := do(t, h, http.MethodGet, "/v1/gateway/credentials", "", map[string]string{"Accept-Language": "en-US,en;q=0.9"})
		assert.Equal(t, http.StatusOK, w.Code)

		var got credentialsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.True(t, got.Valid)
		assert.Equal(t, "en", got.Locale)
		assert.Equal(t, "en", checker.locale)
	})

	t.Run("success - rejection reports invalid", func(t *testing.T) {
		checker := &fakeChecker{err: &sumit.DomainRejection{Path: sumit.PathCompanyDetails, Message: "Invalid credentials"}}
		h := WebhookHandlers(ctx, mocks.NewUseCase(t), newLoader(t), WithGateway(checker))

		w := do(t, h, http.MethodGet, "/v1/gateway/credentials", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var got credentialsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.False(t, got.Valid)
		assert.Equal(t, "he", got.Locale)
	})

	t.Run("error - transport failure", func(t *testing.T) {
		checker := &fakeChecker{err: &connector.TransportError{Method: "POST", URL: "https://api.sumit.co.il", Err: errors.New("refused")}}
		h := WebhookHandlers(ctx, mocks.NewUseCase(t), newLoader(t), WithGateway(checker))

		w := do(t, h, http.MethodGet, "/v1/gateway/credentials", "", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("error - not configured", func(t *testing.T) {
		h := WebhookHandlers(ctx, mocks.NewUseCase(t), newLoader(t))
		w := do(t, h, http.MethodGet, "/v1/gateway/credentials", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

type fakeCollector struct{}

func (fakeCollector) Collect(context.Context) (metrics.Metrics, error) {
	return metrics.Metrics{StatusCounts: map[string]int64{"pending": 2}}, nil
}

func (fakeCollector) GetStatusCounts(context.Context) (map[string]int64, error) {
	return map[string]int64{"pending": 2}, nil
}

func (fakeCollector) GetActiveSweepers(context.Context) ([]metrics.SweeperInfo, error) {
	return nil, nil
}

func TestHealthAndMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("success - healthy", func(t *testing.T) {
		h := WebhookHandlers(ctx, mocks.NewUseCase(t), newLoader(t), WithHealthCheck(func(context.Context) error { return nil }))
		w := do(t, h, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
	})

	t.Run("error - unhealthy", func(t *testing.T) {
		h := WebhookHandlers(ctx, mocks.NewUseCase(t), newLoader(t), WithHealthCheck(func(context.Context) error { return errors.New("down") }))
		w := do(t, h, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("success - metrics json and prometheus", func(t *testing.T) {
		prom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("webhook_status_count 2\n"))
		})
		h := WebhookHandlers(ctx, mocks.NewUseCase(t), newLoader(t), WithCollector(fakeCollector{}), WithMetricsHandler(prom))

		w := do(t, h, http.MethodGet, "/v1/metrics", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"pending":2`)

		w = do(t, h, http.MethodGet, "/metrics", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "webhook_status_count")
	})
}
