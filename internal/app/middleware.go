package app

import (
	"net/http"
	"time"

	"github.com/eunsilkim-ELSA/family-calendar/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies) {
	r.Use(loggingMiddleware)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		recorder := rest.NewStatusRecorder(w)

		next.ServeHTTP(recorder, req)

		entry := log.WithFields(log.Fields{
			"method":      req.Method,
			"path":        req.URL.Path,
			"status":      recorder.Status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if recorder.Status >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request completed")
	})
}
