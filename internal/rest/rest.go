package rest

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const (
	ErrorInvalidInput   = "invalid_input"
	ErrorStorageFailure = "storage_failure"
	ErrorNotFound       = "not_found"
)

// Response is the envelope of every JSON API answer.
type Response struct {
	Ok      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func WriteOk(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{Ok: true, Data: data})
}

func WriteError(w http.ResponseWriter, status int, code string, details string) {
	WriteJSON(w, status, Response{Ok: false, Error: code, Details: details})
}
