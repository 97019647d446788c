package ical_export

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/eunsilkim-ELSA/family-calendar/internal/utils"
	"github.com/eunsilkim-ELSA/family-calendar/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

const productId = "-//family-calendar//board export//KO"

// maxRange bounds the number of days exported at once.
const maxRange = 366

var ErrInvalidRange = errors.New("invalid export range")

type BoardReader interface {
	GetBoard(ctx context.Context) (calendar.Board, error)
}

type Service struct {
	board    BoardReader
	settings *calendar.Settings
	clock    utils.Clock
}

// exportEvent is one logical event merged from its per-slot records.
type exportEvent struct {
	uid   string
	date  string
	first int
	last  int
	event calendar.Event
}

func NewService(board BoardReader, settings *calendar.Settings, clock utils.Clock) *Service {
	return &Service{board: board, settings: settings, clock: clock}
}

// Export renders the events stored between from and to (inclusive dates) as an iCalendar document.
func (s *Service) Export(ctx context.Context, from, to time.Time) (string, error) {
	fromDate, toDate := from.Format(calendar.DateLayout), to.Format(calendar.DateLayout)
	if toDate < fromDate {
		return "", fmt.Errorf("%w: %s is before %s", ErrInvalidRange, toDate, fromDate)
	}
	if to.Sub(from) > maxRange*24*time.Hour {
		return "", fmt.Errorf("%w: more than %d days", ErrInvalidRange, maxRange)
	}

	board, err := s.board.GetBoard(ctx)
	if err != nil {
		return "", err
	}
	events := s.collect(board, fromDate, toDate)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productId)
	stamp := s.clock.Now()
	for _, e := range events {
		vevent := cal.AddEvent(e.uid)
		vevent.SetDtStampTime(stamp)
		start, end := s.span(e.date, e.first, e.last)
		vevent.SetStartAt(start)
		vevent.SetEndAt(end)
		vevent.SetSummary(e.event.Text)
		if e.event.Memo != "" {
			vevent.SetDescription(e.event.Memo)
		}
		vevent.SetProperty(ical.ComponentPropertyCategories, e.event.Who)
	}

	log.Debugf("exported %d event(s) between %s and %s", len(events), fromDate, toDate)
	return cal.Serialize(), nil
}

// collect merges the records of the board into logical events. Records sharing an id on one day
// become a single event covering all their slots; records without an id stand alone.
func (s *Service) collect(board calendar.Board, fromDate, toDate string) []*exportEvent {
	byId := make(map[string]*exportEvent)
	var events []*exportEvent

	for key, bucket := range board {
		date, label, err := calendar.ParseSlotKey(key)
		if err != nil || date < fromDate || date > toDate {
			continue
		}
		idx, ok := s.settings.Slots.Index(label)
		if !ok {
			log.Warnf("skipping %s: time is not on the grid", key)
			continue
		}
		for pos, e := range bucket {
			if e.EventId == "" {
				events = append(events, &exportEvent{
					uid:   key + "#" + strconv.Itoa(pos),
					date:  date,
					first: idx,
					last:  idx,
					event: e,
				})
				continue
			}
			groupKey := e.EventId + "/" + date
			if existing, ok := byId[groupKey]; ok {
				existing.first = min(existing.first, idx)
				existing.last = max(existing.last, idx)
				continue
			}
			merged := &exportEvent{uid: e.EventId, date: date, first: idx, last: idx, event: e}
			byId[groupKey] = merged
			events = append(events, merged)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].date != events[j].date {
			return events[i].date < events[j].date
		}
		if events[i].first != events[j].first {
			return events[i].first < events[j].first
		}
		return events[i].uid < events[j].uid
	})
	return events
}

// span returns the wall clock interval covered by the slots first..last of date. Every slot lasts
// an hour, except the closing boundary label ("24:00" by default), which is read as the last hour of the day so
// that an event never spills into the next date.
func (s *Service) span(date string, first, last int) (time.Time, time.Time) {
	slots := s.settings.Slots
	closing := slots.Hour(slots.Len() - 1)
	endHour := min(slots.Hour(last)+1, closing)
	startHour := min(slots.Hour(first), endHour-1)
	return s.atHour(date, startHour), s.atHour(date, endHour)
}

// atHour builds the time from the calendar fields so DST transitions keep the wall clock hour.
func (s *Service) atHour(date string, hour int) time.Time {
	day, _ := time.ParseInLocation(calendar.DateLayout, date, s.settings.Location)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, s.settings.Location)
}
