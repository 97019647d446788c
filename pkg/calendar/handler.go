package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eunsilkim-ELSA/family-calendar/internal/rest"
	"github.com/eunsilkim-ELSA/family-calendar/internal/utils"
	log "github.com/sirupsen/logrus"
)

const maxWeekShift = 4

type Handler struct {
	calendar Service
	settings *Settings
	clock    utils.Clock
}

// flexInt accepts both 3 and "3". An absent or empty value leaves it unset.
type flexInt struct {
	Value int
	Set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt{Value: n, Set: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a number, got %s", data)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("expected a number, got %q", s)
	}
	*f = flexInt{Value: n, Set: true}
	return nil
}

func (f flexInt) or(fallback int) int {
	if !f.Set {
		return fallback
	}
	return f.Value
}

type AddEventDTO struct {
	Date      string  `json:"date_str"`
	TimeIndex flexInt `json:"time_index"`
	EndTime   string  `json:"end_time"`
	Who       string  `json:"who"`
	Content   string  `json:"content"`
	Memo      string  `json:"memo"`
}

type DeleteEventDTO struct {
	Key     string  `json:"key"`
	Index   flexInt `json:"index"`
	EventId string  `json:"event_id"`
}

type UpdateEventDTO struct {
	Key            string  `json:"key"`
	Index          flexInt `json:"index"`
	EventId        string  `json:"event_id"`
	Content        string  `json:"content"`
	Who            string  `json:"who"`
	Memo           string  `json:"memo"`
	Date           string  `json:"date_str"`
	StartTimeIndex flexInt `json:"start_time_index"`
	EndTime        string  `json:"end_time"`
}

type ConfigDTO struct {
	Members       []Member  `json:"members"`
	DefaultMember string    `json:"default_member"`
	Weekdays      [7]string `json:"weekdays"`
	Times         []string  `json:"times"`
}

type WeekDTO struct {
	Week
	Events Board `json:"events"`
}

func NewHandler(s Service, settings *Settings, clock utils.Clock) *Handler {
	return &Handler{calendar: s, settings: settings, clock: clock}
}

func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	board, err := h.calendar.GetBoard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, board)
}

func (h *Handler) AddEvent(w http.ResponseWriter, r *http.Request) {
	var dto AddEventDTO
	if !decodeBody(w, r, &dto) {
		return
	}

	_, err := h.calendar.AddEvent(r.Context(), EventInput{
		Date:       dto.Date,
		StartIndex: dto.TimeIndex.or(0),
		EndTime:    dto.EndTime,
		Who:        dto.Who,
		Content:    dto.Content,
		Memo:       dto.Memo,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeBoard(w, r)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	var dto DeleteEventDTO
	if !decodeBody(w, r, &dto) {
		return
	}

	err := h.calendar.DeleteEvent(r.Context(), EventRef{
		EventId: strings.TrimSpace(dto.EventId),
		Key:     dto.Key,
		Index:   dto.Index.or(-1),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeBoard(w, r)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var dto UpdateEventDTO
	if !decodeBody(w, r, &dto) {
		return
	}

	change := EventChange{
		Content: dto.Content,
		Who:     dto.Who,
		Memo:    dto.Memo,
	}
	if strings.TrimSpace(dto.Date) != "" && dto.StartTimeIndex.Set {
		change.Reschedule = &Reschedule{
			Date:       dto.Date,
			StartIndex: dto.StartTimeIndex.Value,
			EndTime:    dto.EndTime,
		}
	}

	err := h.calendar.UpdateEvent(r.Context(), EventRef{
		EventId: strings.TrimSpace(dto.EventId),
		Key:     dto.Key,
		Index:   dto.Index.or(-1),
	}, change)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeBoard(w, r)
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	rest.WriteOk(w, ConfigDTO{
		Members:       h.settings.Household.Members(),
		DefaultMember: h.settings.Household.Default().Name,
		Weekdays:      WeekdayNames,
		Times:         h.settings.Slots.Labels(),
	})
}

// GetWeek returns the week containing ?date= (today when absent), moved by ?shift= weeks, with the
// events stored in it.
func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	today := utils.Today(h.clock, h.settings.Location)
	day := today

	if dateString := r.URL.Query().Get("date"); dateString != "" {
		parsed, err := time.ParseInLocation(DateLayout, dateString, h.settings.Location)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, rest.ErrorInvalidInput, "'date' must be in YYYY-MM-DD format")
			return
		}
		day = parsed
	}
	if shiftString := r.URL.Query().Get("shift"); shiftString != "" {
		shift, err := strconv.Atoi(shiftString)
		if err != nil || shift < -maxWeekShift || shift > maxWeekShift {
			rest.WriteError(w, http.StatusBadRequest, rest.ErrorInvalidInput,
				fmt.Sprintf("'shift' must be a number between %d and %d", -maxWeekShift, maxWeekShift))
			return
		}
		day = day.AddDate(0, 0, 7*shift)
	}

	board, err := h.calendar.GetBoard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	week := WeekOf(day, today)
	rest.WriteOk(w, WeekDTO{Week: week, Events: week.Filter(board)})
}

func (h *Handler) writeBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.calendar.GetBoard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteOk(w, board)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		// An empty body behaves like "{}".
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Debugf("invalid request body: %v", err)
		rest.WriteError(w, http.StatusBadRequest, rest.ErrorInvalidInput, "")
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidInput) {
		log.Debugf("rejected request: %v", err)
		rest.WriteError(w, http.StatusBadRequest, rest.ErrorInvalidInput, "")
		return
	}
	rest.WriteError(w, http.StatusInternalServerError, rest.ErrorStorageFailure, err.Error())
}
