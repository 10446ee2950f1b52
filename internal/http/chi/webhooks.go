package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marcelsud/sumit-gateway/routes"
	"github.com/marcelsud/sumit-gateway/webhook"
)

/* HTTP layer DTOs for the operations API
 * Separate from domain entities to avoid leaking internal structure
 */

const maxEventBody = 1 << 20

// eventRequest creates a pending event; Deliver attempts it immediately
type eventRequest struct {
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data"`
	TransactionID  string          `json:"transaction_id"`
	SubscriptionID string          `json:"subscription_id"`
	Deliver        bool            `json:"deliver"`
}

type eventResponse struct {
	ID             string          `json:"id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	Status         string          `json:"status"`
	RetryCount     int             `json:"retry_count"`
	NextRetryAt    *time.Time      `json:"next_retry_at,omitempty"`
	SentAt         *time.Time      `json:"sent_at,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	SubscriptionID string          `json:"subscription_id,omitempty"`
	CanRetry       bool            `json:"can_retry"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type retryResponse struct {
	Sent  bool          `json:"sent"`
	Event eventResponse `json:"event"`
}

type sweepResponse struct {
	Claimed    int      `json:"claimed"`
	Sent       int      `json:"sent"`
	Retrying   int      `json:"retrying"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors"`
	DurationMS int64    `json:"duration_ms"`
}

// routeResponse represents an outbound route; the signing secret is never returned
type routeResponse struct {
	TargetID       string   `json:"target_id"`
	TargetURL      string   `json:"target_url"`
	Signed         bool     `json:"signed"`
	EventTypes     []string `json:"event_types"`
	ExpectedStatus int      `json:"expected_status"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
}

type endpointResponse struct {
	Path             string `json:"path"`
	Family           string `json:"family"`
	Key              string `json:"key"`
	TimeoutSeconds   int    `json:"timeout_seconds,omitempty"`
	Mutation         bool   `json:"mutation"`
	RetryOnRejection bool   `json:"retry_on_rejection"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) toResponse(ev webhook.Event) eventResponse {
	return eventResponse{
		ID:             ev.ID,
		EventType:      ev.EventType,
		Payload:        ev.Payload,
		Status:         ev.Status.String(),
		RetryCount:     ev.RetryCount,
		NextRetryAt:    ev.NextRetryAt,
		SentAt:         ev.SentAt,
		LastError:      ev.LastError,
		TransactionID:  ev.TransactionID,
		SubscriptionID: ev.SubscriptionID,
		CanRetry:       s.webhooks.CanRetry(ev, webhook.Manual, s.now()),
		CreatedAt:      ev.CreatedAt,
		UpdatedAt:      ev.UpdatedAt,
	}
}

// postEvent handles POST /v1/events
func (s *server) postEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req eventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	ev, err := s.webhooks.CreatePending(r.Context(), req.Type, req.Data, webhook.RelatedIDs{
		TransactionID:  req.TransactionID,
		SubscriptionID: req.SubscriptionID,
	})
	if errors.Is(err, webhook.ErrInvalidEvent) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if req.Deliver {
		ev, err = s.deliverNow(r, ev)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, s.toResponse(ev))
}

// deliverNow sends a fresh event once and schedules a retry when it fails
func (s *server) deliverNow(r *http.Request, ev webhook.Event) (webhook.Event, error) {
	sent, err := s.webhooks.Send(r.Context(), ev.ID)
	if err != nil {
		return ev, err
	}
	if !sent {
		return s.webhooks.ScheduleRetry(r.Context(), ev.ID, 0)
	}
	return s.webhooks.Get(r.Context(), ev.ID)
}

// getEvent handles GET /v1/events/{id}
func (s *server) getEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.webhooks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toResponse(ev))
}

// retryEvent handles POST /v1/events/{id}/retry
func (s *server) retryEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ev, err := s.webhooks.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ev.Status == webhook.Sent {
		writeError(w, http.StatusConflict, webhook.ErrAlreadySent.Error())
		return
	}

	sent, err := s.webhooks.Retry(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ev, err = s.webhooks.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, retryResponse{Sent: sent, Event: s.toResponse(ev)})
}

// postSweep handles POST /v1/sweep?include_failed=true
func (s *server) postSweep(w http.ResponseWriter, r *http.Request) {
	opts := webhook.SweepOptions{IncludeFailed: r.URL.Query().Get("include_failed") == "true"}
	report, err := s.webhooks.Sweep(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := sweepResponse{
		Claimed:    report.Claimed,
		Sent:       report.Sent,
		Retrying:   report.Retrying,
		Failed:     report.Failed,
		Skipped:    report.Skipped,
		Errors:     make([]string, 0, len(report.Errors)),
		DurationMS: report.Duration.Milliseconds(),
	}
	for _, e := range report.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

// getRoutes handles GET /v1/routes
func getRoutes(routeLoader *routes.Loader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allRoutes := routeLoader.List()

		responses := make([]routeResponse, 0, len(allRoutes))
		for _, route := range allRoutes {
			responses = append(responses, routeResponse{
				TargetID:       route.TargetID,
				TargetURL:      route.TargetURL,
				Signed:         route.SigningSecret != "",
				EventTypes:     route.EventTypes,
				ExpectedStatus: route.ExpectedStatus,
				TimeoutSeconds: int(route.Timeout.Seconds()),
			})
		}

		writeJSON(w, http.StatusOK, responses)
	})
}

// getEndpoints handles GET /v1/endpoints
func getEndpoints(routeLoader *routes.Loader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		policies := routeLoader.Endpoints()

		responses := make([]endpointResponse, 0, len(policies))
		for _, p := range policies {
			responses = append(responses, endpointResponse{
				Path:             p.Path,
				Family:           p.Family.String(),
				Key:              p.Key.String(),
				TimeoutSeconds:   int(p.Timeout.Seconds()),
				Mutation:         p.Mutation,
				RetryOnRejection: p.RetryOnRejection,
			})
		}

		writeJSON(w, http.StatusOK, responses)
	})
}

// fail maps service errors onto status codes
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, webhook.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, webhook.ErrLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, webhook.ErrAlreadySent):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
