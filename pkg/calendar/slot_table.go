package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultFirstHour = 6
	DefaultLastHour  = 24
)

var ErrInvalidSlotRange = errors.New("invalid slot range")

// SlotTable is the fixed list of hourly time labels forming one column of the week grid.
// Index 0 is the first hour; the last label is the closing boundary ("24:00" by default).
type SlotTable struct {
	firstHour int
	labels    []string
}

func NewSlotTable(firstHour, lastHour int) (*SlotTable, error) {
	if firstHour < 0 || lastHour > 24 || firstHour >= lastHour {
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidSlotRange, firstHour, lastHour)
	}
	labels := make([]string, 0, lastHour-firstHour+1)
	for h := firstHour; h <= lastHour; h++ {
		labels = append(labels, fmt.Sprintf("%02d:00", h))
	}
	return &SlotTable{firstHour: firstHour, labels: labels}, nil
}

func DefaultSlotTable() *SlotTable {
	t, _ := NewSlotTable(DefaultFirstHour, DefaultLastHour)
	return t
}

func (t *SlotTable) Len() int {
	return len(t.labels)
}

func (t *SlotTable) Label(idx int) string {
	return t.labels[idx]
}

func (t *SlotTable) Labels() []string {
	return append([]string(nil), t.labels...)
}

// Hour returns the hour of day the slot at idx starts at.
func (t *SlotTable) Hour(idx int) int {
	return t.firstHour + idx
}

func (t *SlotTable) Valid(idx int) bool {
	return idx >= 0 && idx < len(t.labels)
}

// Index returns the position of an exact label.
func (t *SlotTable) Index(label string) (int, bool) {
	for i, l := range t.labels {
		if l == label {
			return i, true
		}
	}
	return 0, false
}

// ResolveEnd turns free-form end time input into the exclusive end index of a range starting at
// start. The matched label itself is exclusive: "11:00" ends the range after the 10:00 slot.
// Blank, unparseable, or not-after-start input yields a single-slot range. The result never
// exceeds Len.
func (t *SlotTable) ResolveEnd(endText string, start int) int {
	end := t.matchEnd(strings.TrimSpace(endText), start)
	if end > len(t.labels) {
		end = len(t.labels)
	}
	return end
}

func (t *SlotTable) matchEnd(text string, start int) int {
	single := start + 1
	if text == "" {
		return single
	}
	if i, ok := t.matchLabel(text); ok {
		if i <= start {
			return single
		}
		return i
	}
	if h, err := strconv.Atoi(text); err == nil && h >= t.firstHour && h < t.firstHour+len(t.labels) {
		i := h - t.firstHour
		if i <= start {
			return single
		}
		return i
	}
	return single
}

// matchLabel tries an exact label first, then the two-digit hour prefix so "16" or "16:30" find "16:00".
func (t *SlotTable) matchLabel(text string) (int, bool) {
	if i, ok := t.Index(text); ok {
		return i, true
	}
	for i, l := range t.labels {
		if strings.HasPrefix(text, l[:2]) {
			return i, true
		}
	}
	return 0, false
}

// Keys returns the slot keys of the range [start, end) on date.
func (t *SlotTable) Keys(date string, start, end int) []string {
	keys := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		keys = append(keys, SlotKey(date, t.labels[i]))
	}
	return keys
}

// Caption renders "who: content", followed by " (08:00~10:00)" when the range covers more than
// one slot. The suffix names the start label and the label of the last covered slot.
func (t *SlotTable) Caption(who, content string, start, end int) string {
	text := who + ": " + content
	if end > start+1 && end <= len(t.labels) {
		startLabel, endLabel := t.labels[start], t.labels[end-1]
		if endLabel != startLabel {
			text += " (" + startLabel + "~" + endLabel + ")"
		}
	}
	return text
}

// Recaption rewrites a stored caption for a new author and content, keeping the time range
// suffix of the old caption as it was.
func Recaption(oldText, who, content string) string {
	return who + ": " + content + timeRangeSuffix(oldText)
}

func timeRangeSuffix(text string) string {
	if !strings.Contains(text, " (") || !strings.Contains(text, "~") || !strings.Contains(text, ")") {
		return ""
	}
	return text[strings.LastIndex(text, " ("):]
}
