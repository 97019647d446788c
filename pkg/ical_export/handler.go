package ical_export

import (
	"errors"
	"net/http"
	"time"

	"github.com/eunsilkim-ELSA/family-calendar/internal/rest"
	"github.com/eunsilkim-ELSA/family-calendar/internal/utils"
	"github.com/eunsilkim-ELSA/family-calendar/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	export *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{s}
}

// Export serves /api/export.ics?from=YYYY-MM-DD&to=YYYY-MM-DD. Both default to the current week.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	loc := h.export.settings.Location
	weekStart := calendar.WeekStart(utils.Today(h.export.clock, loc))

	from, ok := parseDate(w, r, "from", weekStart)
	if !ok {
		return
	}
	to, ok := parseDate(w, r, "to", from.AddDate(0, 0, 6))
	if !ok {
		return
	}

	body, err := h.export.Export(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, ErrInvalidRange) {
			rest.WriteError(w, http.StatusBadRequest, rest.ErrorInvalidInput, err.Error())
			return
		}
		log.Errorf("failed to export calendar: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, rest.ErrorStorageFailure, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="family-calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Errorf("failed to write calendar export: %v", err)
	}
}

func parseDate(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, true
	}
	parsed, err := time.ParseInLocation(calendar.DateLayout, value, fallback.Location())
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, rest.ErrorInvalidInput, "'"+name+"' must be in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}
