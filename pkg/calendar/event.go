package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date part of a slot key.
const DateLayout = "2006-01-02"

const slotKeySeparator = "_"

var ErrMalformedSlotKey = errors.New("malformed slot key")

// Event is a single record stored in a slot bucket. An event spanning several slots is stored as one
// copy per slot, every copy carrying the same EventId.
type Event struct {
	Text    string `json:"text"`
	Bg      string `json:"bg"`
	Who     string `json:"who"`
	EventId string `json:"event_id,omitempty"`
	Memo    string `json:"memo,omitempty"`
}

// Board maps slot keys ("2024-05-05_08:00") to their ordered buckets. Empty buckets are never kept.
type Board map[string][]Event

// SlotEvent is an event placed in a particular slot.
type SlotEvent struct {
	Key   string
	Event Event
}

func (e Event) validate() error {
	if strings.TrimSpace(e.Text) == "" {
		return errors.New("text is empty")
	}
	if strings.TrimSpace(e.Who) == "" {
		return errors.New("who is empty")
	}
	return nil
}

// Clone returns a deep copy of the board.
func (b Board) Clone() Board {
	clone := make(Board, len(b))
	for key, bucket := range b {
		clone[key] = append([]Event(nil), bucket...)
	}
	return clone
}

// Len returns the number of records over all buckets.
func (b Board) Len() int {
	n := 0
	for _, bucket := range b {
		n += len(bucket)
	}
	return n
}

func SlotKey(date string, label string) string {
	return date + slotKeySeparator + label
}

// ParseSlotKey splits a slot key into its date and time label.
func ParseSlotKey(key string) (string, string, error) {
	idx := strings.LastIndex(key, slotKeySeparator)
	if idx < 0 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedSlotKey, key)
	}
	date, label := key[:idx], key[idx+1:]
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", "", fmt.Errorf("%w: %q: invalid date", ErrMalformedSlotKey, key)
	}
	if _, err := time.Parse("15:04", label); err != nil && label != "24:00" {
		return "", "", fmt.Errorf("%w: %q: invalid time", ErrMalformedSlotKey, key)
	}
	return date, label, nil
}
