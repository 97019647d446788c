package app

import (
	"net/http"

	"github.com/eunsilkim-ELSA/family-calendar/internal/rest"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, storage *Storage) {
	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		rest.WriteOk(w, map[string]string{"status": "ok", "storage": storage.Driver})
	}).Methods("GET")
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	// Board
	r.HandleFunc("/api/data", deps.CalendarHandler.GetData).Methods("GET")
	r.HandleFunc("/api/config", deps.CalendarHandler.GetConfig).Methods("GET")
	r.HandleFunc("/api/week", deps.CalendarHandler.GetWeek).Methods("GET")

	// Events
	r.HandleFunc("/api/event", deps.CalendarHandler.AddEvent).Methods("POST")
	r.HandleFunc("/api/event/delete", deps.CalendarHandler.DeleteEvent).Methods("POST")
	r.HandleFunc("/api/event/update", deps.CalendarHandler.UpdateEvent).Methods("POST")

	// Export
	r.HandleFunc("/api/export.ics", deps.ExportHandler.Export).Methods("GET")
}
