package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/watchheat/internal/api/handlers"
	"github.com/wonny/watchheat/pkg/logger"
)

// Routes bundles the handlers mounted by NewRouter. Metrics may be nil.
type Routes struct {
	Heat      *handlers.HeatHandler
	Snapshots *handlers.SnapshotHandler
	Metrics   http.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(routes Routes, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET", "HEAD")

	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics).Methods("GET", "HEAD")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Heat endpoints
	api.HandleFunc("/heat/{date}", routes.Heat.GetHeat).Methods("GET", "HEAD")

	// Snapshot endpoints; references may contain '/'
	api.HandleFunc("/items", routes.Snapshots.ListItems).Methods("GET", "HEAD")
	api.HandleFunc("/items/{brand}/{reference:.+}/snapshots", routes.Snapshots.GetSnapshots).Methods("GET", "HEAD")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "watchheat-api",
	})
}

// statusRecorder captures the status code for the request log
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
