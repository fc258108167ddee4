package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "responder"

// NewRouter wires the REST surface. Only /metrics is behind the bearer
// token; Webex cannot send one, so the webhook relies on its signature.
func NewRouter(webhook http.Handler, authToken string, logger hclog.Logger) *mux.Router {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("http")

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/health", Health).Methods(http.MethodGet)
	router.Handle("/api/v1/webhooks/webex", webhook).Methods(http.MethodPost)

	router.Handle("/metrics", AuthMiddleware(authToken, logger)(promhttp.Handler())).Methods(http.MethodGet)

	router.Use(LoggingMiddleware(logger))
	return router
}

// Health check endpoint
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   serviceName,
	})
}

func LoggingMiddleware(logger hclog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger.Debug("→ request", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			logger.Debug("← request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}

// AuthMiddleware checks for "Bearer <token>". An empty token disables the
// check.
func AuthMiddleware(token string, logger hclog.Logger) mux.MiddlewareFunc {
	if token == "" {
		logger.Warn("⚠️ REST_API_AUTH_TOKEN not set - metrics auth disabled")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
