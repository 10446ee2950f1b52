package chi

import (
	"net/http"

	"github.com/marcelsud/sumit-gateway/connector"
	"github.com/marcelsud/sumit-gateway/sumit"
)

type credentialsResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Locale  string `json:"locale"`
}

// getHealth handles GET /health
func (s *server) getHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// getMetrics handles GET /v1/metrics
func (s *server) getMetrics(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeError(w, http.StatusNotFound, "metrics not configured")
		return
	}
	m, err := s.collector.Collect(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

/* checkCredentials handles GET /v1/gateway/credentials
 * A gateway rejection means the keys are wrong (200, valid false),
 * a transport or configuration failure is a 502 or 500
 */
func (s *server) checkCredentials(w http.ResponseWriter, r *http.Request) {
	if s.gateway == nil {
		writeError(w, http.StatusNotFound, "gateway not configured")
		return
	}
	locale := sumit.LocaleFrom(r.Context(), s.locale)

	err := s.gateway.CheckCredentials(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, credentialsResponse{Valid: true, Locale: locale})
	case sumit.IsRejection(err):
		writeJSON(w, http.StatusOK, credentialsResponse{Valid: false, Message: err.Error(), Locale: locale})
	case connector.IsConfiguration(err):
		s.logger.Error().Err(err).Msg("gateway misconfigured")
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.logger.Warn().Err(err).Msg("gateway unreachable")
		writeError(w, http.StatusBadGateway, "gateway unreachable")
	}
}
