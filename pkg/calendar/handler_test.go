package calendar

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eunsilkim-ELSA/family-calendar/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type boardResponse struct {
	Ok    bool   `json:"ok"`
	Data  Board  `json:"data"`
	Error string `json:"error"`
}

// Test setup helper
func setupHandlerTest(t *testing.T) (*Handler, Repository) {
	repo := newFileRepository(t)
	settings := DefaultSettings()
	settings.Location = time.UTC
	service := NewService(repo, settings, &sequenceIds{}, nil)
	clock := &utils.MockClock{FixedNow: time.Date(2024, 5, 8, 9, 30, 0, 0, time.UTC)}
	return NewHandler(service, settings, clock), repo
}

func post(t *testing.T, handle http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/event", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handle(w, req)
	return w
}

func decodeBoardResponse(t *testing.T, w *httptest.ResponseRecorder) boardResponse {
	t.Helper()
	var resp boardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandler_AddEvent(t *testing.T) {
	t.Run("returns the updated board", func(t *testing.T) {
		// given
		handler, _ := setupHandlerTest(t)

		// when
		w := post(t, handler.AddEvent, `{"date_str":"2024-05-05","time_index":2,"end_time":"11:00","who":"아빠","content":"병원","memo":""}`)

		// then
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBoardResponse(t, w)
		assert.True(t, resp.Ok)
		require.Len(t, resp.Data, 3)
		assert.Equal(t, "아빠: 병원 (08:00~10:00)", resp.Data["2024-05-05_10:00"][0].Text)
	})

	t.Run("accepts the time index as a string", func(t *testing.T) {
		handler, _ := setupHandlerTest(t)

		w := post(t, handler.AddEvent, `{"date_str":"2024-05-05","time_index":"4","who":"엄마","content":"요가"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, decodeBoardResponse(t, w).Data, "2024-05-05_10:00")
	})

	t.Run("defaults a missing time index to the first slot", func(t *testing.T) {
		handler, _ := setupHandlerTest(t)

		w := post(t, handler.AddEvent, `{"date_str":"2024-05-05","who":"엄마","content":"요가"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, Board{
			"2024-05-05_06:00": {{Text: "엄마: 요가", Bg: "#F8BBD0", Who: "엄마", EventId: "id-1"}},
		}, decodeBoardResponse(t, w).Data)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		bodies := []string{
			`{"time_index":2,"content":"병원"}`,
			`{"date_str":"2024-05-05","time_index":2,"content":""}`,
			`{"date_str":"2024-05-05","time_index":"two","content":"병원"}`,
			`{"date_str":"2024-05-05","time_index":99,"content":"병원"}`,
			`not json`,
		}
		for _, body := range bodies {
			handler, repo := setupHandlerTest(t)

			w := post(t, handler.AddEvent, body)

			assert.Equal(t, http.StatusBadRequest, w.Code, body)
			assert.JSONEq(t, `{"ok":false,"error":"invalid_input"}`, w.Body.String(), body)
			board, err := repo.GetBoard(t.Context())
			require.NoError(t, err)
			assert.Empty(t, board, body)
		}
	})
}

func TestHandler_DeleteEvent(t *testing.T) {
	t.Run("by event id", func(t *testing.T) {
		// given
		handler, repo := setupHandlerTest(t)
		require.Equal(t, http.StatusOK, post(t, handler.AddEvent, `{"date_str":"2024-05-05","time_index":2,"end_time":"11:00","content":"병원"}`).Code)

		// when
		w := post(t, handler.DeleteEvent, `{"event_id":"id-1"}`)

		// then
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBoardResponse(t, w)
		assert.True(t, resp.Ok)
		assert.Empty(t, resp.Data)
		board, err := repo.GetBoard(t.Context())
		require.NoError(t, err)
		assert.Empty(t, board)
	})

	t.Run("by key and index", func(t *testing.T) {
		handler, repo := setupHandlerTest(t)
		store(t, repo, SlotEvent{"2024-05-05_08:00", event("아빠: 옛날 일정", "")})

		w := post(t, handler.DeleteEvent, `{"key":"2024-05-05_08:00","index":"0"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decodeBoardResponse(t, w).Data)
	})

	t.Run("nothing to delete", func(t *testing.T) {
		handler, _ := setupHandlerTest(t)

		for _, body := range []string{`{}`, `{"event_id":"missing"}`, `{"key":"2024-05-05_08:00"}`, ``} {
			w := post(t, handler.DeleteEvent, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
	})
}

func TestHandler_UpdateEvent(t *testing.T) {
	t.Run("rewrites content and keeps the time range", func(t *testing.T) {
		// given
		handler, _ := setupHandlerTest(t)
		require.Equal(t, http.StatusOK, post(t, handler.AddEvent, `{"date_str":"2024-05-05","time_index":2,"end_time":"11:00","who":"아빠","content":"병원"}`).Code)

		// when
		w := post(t, handler.UpdateEvent, `{"key":"2024-05-05_09:00","index":0,"content":"치과","who":"엄마","memo":"예약 10분 전"}`)

		// then
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBoardResponse(t, w).Data
		require.Len(t, data, 3)
		for _, bucket := range data {
			assert.Equal(t, Event{Text: "엄마: 치과 (08:00~10:00)", Bg: "#F8BBD0", Who: "엄마", EventId: "id-1", Memo: "예약 10분 전"}, bucket[0])
		}
	})

	t.Run("moves the event when date and start are given", func(t *testing.T) {
		// given
		handler, _ := setupHandlerTest(t)
		require.Equal(t, http.StatusOK, post(t, handler.AddEvent, `{"date_str":"2024-05-05","time_index":2,"end_time":"11:00","who":"아빠","content":"병원"}`).Code)

		// when
		w := post(t, handler.UpdateEvent, `{"event_id":"id-1","content":"병원","who":"아빠","date_str":"2024-05-06","start_time_index":"12","end_time":""}`)

		// then
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, Board{
			"2024-05-06_18:00": {{Text: "아빠: 병원", Bg: "#BBDEFB", Who: "아빠", EventId: "id-1"}},
		}, decodeBoardResponse(t, w).Data)
	})

	t.Run("blank content is rejected", func(t *testing.T) {
		handler, _ := setupHandlerTest(t)

		w := post(t, handler.UpdateEvent, `{"event_id":"id-1","content":"  "}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"ok":false,"error":"invalid_input"}`, w.Body.String())
	})
}

func TestHandler_StorageFailure(t *testing.T) {
	// given
	settings := DefaultSettings()
	service := NewService(failingRepository{Repository: newFileRepository(t)}, settings, &sequenceIds{}, nil)
	handler := NewHandler(service, settings, utils.SystemClock{})

	// when
	w := post(t, handler.AddEvent, `{"date_str":"2024-05-05","time_index":2,"content":"병원"}`)

	// then
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "storage_failure", resp["error"])
	assert.Contains(t, resp["details"], "disk full")
}

func TestHandler_GetData(t *testing.T) {
	// given
	handler, repo := setupHandlerTest(t)
	store(t, repo, SlotEvent{"2024-05-05_08:00", event("아빠: 병원", "a")})
	w := httptest.NewRecorder()

	// when
	handler.GetData(w, httptest.NewRequest(http.MethodGet, "/api/data", nil))

	// then
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"2024-05-05_08:00":[{"text":"아빠: 병원","bg":"#BBDEFB","who":"아빠","event_id":"a"}]}`, w.Body.String())
}

func TestHandler_GetConfig(t *testing.T) {
	handler, _ := setupHandlerTest(t)
	w := httptest.NewRecorder()

	handler.GetConfig(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Ok   bool      `json:"ok"`
		Data ConfigDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Ok)
	assert.Equal(t, DefaultMembers(), resp.Data.Members)
	assert.Equal(t, "아빠", resp.Data.DefaultMember)
	assert.Equal(t, "일", resp.Data.Weekdays[0])
	assert.Len(t, resp.Data.Times, 19)
}

func TestHandler_GetWeek(t *testing.T) {
	type weekResponse struct {
		Ok   bool    `json:"ok"`
		Data WeekDTO `json:"data"`
	}
	getWeek := func(t *testing.T, handler *Handler, query string) (*httptest.ResponseRecorder, weekResponse) {
		w := httptest.NewRecorder()
		handler.GetWeek(w, httptest.NewRequest(http.MethodGet, "/api/week"+query, nil))
		var resp weekResponse
		if w.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		}
		return w, resp
	}

	t.Run("defaults to the current week with its events", func(t *testing.T) {
		// given
		handler, repo := setupHandlerTest(t)
		store(t, repo,
			SlotEvent{"2024-05-07_08:00", event("아빠: 이번 주", "a")},
			SlotEvent{"2024-05-12_08:00", event("아빠: 다음 주", "b")},
		)

		// when
		w, resp := getWeek(t, handler, "")

		// then
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2024년 05월 2주차", resp.Data.Title)
		assert.Equal(t, "일(05/05)", resp.Data.Days[0].Label)
		assert.True(t, resp.Data.Days[3].Today)
		assert.Equal(t, Board{"2024-05-07_08:00": {event("아빠: 이번 주", "a")}}, resp.Data.Events)
	})

	t.Run("date and shift select another week", func(t *testing.T) {
		handler, _ := setupHandlerTest(t)

		w, resp := getWeek(t, handler, "?date=2024-05-08&shift=-1")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2024-04-28", resp.Data.Days[0].Date)
		assert.Equal(t, "2024년 05월 1주차", resp.Data.Title)
	})

	t.Run("rejects bad parameters", func(t *testing.T) {
		handler, _ := setupHandlerTest(t)

		for _, query := range []string{"?date=2024/05/08", "?shift=abc", "?shift=5"} {
			w, _ := getWeek(t, handler, query)
			assert.Equal(t, http.StatusBadRequest, w.Code, query)
		}
	})
}
