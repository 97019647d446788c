package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eunsilkim-ELSA/family-calendar/internal/event_bus"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrStorage      = errors.New("storage failure")
)

// EventInput is a new event placed from StartIndex up to the slot named by EndTime.
type EventInput struct {
	Date       string
	StartIndex int
	EndTime    string
	Who        string
	Content    string
	Memo       string
}

// EventRef addresses an event either by its id or by its position within a slot bucket.
// EventId wins when both are set.
type EventRef struct {
	EventId string
	Key     string
	Index   int
}

type EventChange struct {
	Content string
	Who     string
	Memo    string
	// Reschedule moves the event to a new range. Nil keeps the current slots.
	Reschedule *Reschedule
}

type Reschedule struct {
	Date       string
	StartIndex int
	EndTime    string
}

type Service interface {
	GetBoard(ctx context.Context) (Board, error)
	// AddEvent stores the event in every slot of its range and returns the shared event id.
	AddEvent(ctx context.Context, input EventInput) (string, error)
	DeleteEvent(ctx context.Context, ref EventRef) error
	UpdateEvent(ctx context.Context, ref EventRef, change EventChange) error
}

type IdGenerator interface {
	NewId() (string, error)
}

// UUIDGenerator issues time ordered UUIDv7 event ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewId() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type ServiceImpl struct {
	repo     Repository
	settings *Settings
	ids      IdGenerator
	eventBus *event_bus.EventBus
}

func NewService(repo Repository, settings *Settings, ids IdGenerator, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		settings: settings,
		ids:      ids,
		eventBus: eventBus,
	}
}

func (s *ServiceImpl) GetBoard(ctx context.Context) (Board, error) {
	board, err := s.repo.GetBoard(ctx)
	if err != nil {
		return nil, s.classify("load board", err)
	}
	return board, nil
}

func (s *ServiceImpl) AddEvent(ctx context.Context, input EventInput) (string, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return "", fmt.Errorf("%w: content is empty", ErrInvalidInput)
	}
	date, err := s.parseDate(input.Date)
	if err != nil {
		return "", err
	}
	if !s.settings.Slots.Valid(input.StartIndex) {
		return "", fmt.Errorf("%w: time index %d out of range", ErrInvalidInput, input.StartIndex)
	}

	eventId, err := s.ids.NewId()
	if err != nil {
		return "", s.classify("generate event id", err)
	}
	member := s.settings.Household.Resolve(input.Who)
	placed := s.place(date, input.StartIndex, input.EndTime, member, content, strings.TrimSpace(input.Memo), eventId)

	if err := s.repo.StoreEvents(ctx, placed); err != nil {
		return "", s.classify("store event", err)
	}

	log.Debugf("event %s added to %d slot(s) from %s", eventId, len(placed), placed[0].Key)
	s.publish(ctx, event_bus.CalendarEventAdded, event_bus.CalendarEventChanged{
		EventId:  eventId,
		Who:      member.Name,
		Text:     placed[0].Event.Text,
		SlotKeys: slotKeys(placed),
	})
	return eventId, nil
}

func (s *ServiceImpl) DeleteEvent(ctx context.Context, ref EventRef) error {
	if err := s.validateRef(ref); err != nil {
		return err
	}
	var deleted Event
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		target, err := resolve(ctx, repo, ref)
		if err != nil {
			return err
		}
		deleted = target
		return removeTarget(ctx, repo, ref, target)
	})
	if err != nil {
		return s.classify("delete event", err)
	}

	s.publish(ctx, event_bus.CalendarEventDeleted, event_bus.CalendarEventChanged{
		EventId:  deleted.EventId,
		Who:      deleted.Who,
		Text:     deleted.Text,
		SlotKeys: refKeys(ref),
	})
	return nil
}

func (s *ServiceImpl) UpdateEvent(ctx context.Context, ref EventRef, change EventChange) error {
	content := strings.TrimSpace(change.Content)
	if content == "" {
		return fmt.Errorf("%w: content is empty", ErrInvalidInput)
	}
	if err := s.validateRef(ref); err != nil {
		return err
	}
	member := s.settings.Household.Resolve(change.Who)
	memo := strings.TrimSpace(change.Memo)

	if change.Reschedule != nil {
		return s.reschedule(ctx, ref, *change.Reschedule, member, content, memo)
	}

	var updated Event
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		target, err := resolve(ctx, repo, ref)
		if err != nil {
			return err
		}
		edit := func(e Event) Event {
			e.Text = Recaption(e.Text, member.Name, content)
			e.Who = member.Name
			e.Bg = member.Color
			e.Memo = memo
			return e
		}
		updated = edit(target)
		if target.EventId != "" {
			_, err := repo.UpdateEvents(ctx, target.EventId, edit)
			return err
		}
		return repo.UpdateEventAt(ctx, ref.Key, ref.Index, edit)
	})
	if err != nil {
		return s.classify("update event", err)
	}

	s.publish(ctx, event_bus.CalendarEventUpdated, event_bus.CalendarEventChanged{
		EventId:  updated.EventId,
		Who:      updated.Who,
		Text:     updated.Text,
		SlotKeys: refKeys(ref),
	})
	return nil
}

// reschedule replaces the records of an event with a freshly placed range. The event keeps its
// id; a record that never had one gets a new id.
func (s *ServiceImpl) reschedule(ctx context.Context, ref EventRef, to Reschedule, member Member, content, memo string) error {
	date, err := s.parseDate(to.Date)
	if err != nil {
		return err
	}
	if !s.settings.Slots.Valid(to.StartIndex) {
		return fmt.Errorf("%w: time index %d out of range", ErrInvalidInput, to.StartIndex)
	}

	var placed []SlotEvent
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		target, err := resolve(ctx, repo, ref)
		if err != nil {
			return err
		}
		eventId := target.EventId
		if eventId == "" {
			if eventId, err = s.ids.NewId(); err != nil {
				return err
			}
		}
		if err := removeTarget(ctx, repo, ref, target); err != nil {
			return err
		}
		placed = s.place(date, to.StartIndex, to.EndTime, member, content, memo, eventId)
		return repo.StoreEvents(ctx, placed)
	})
	if err != nil {
		return s.classify("reschedule event", err)
	}

	s.publish(ctx, event_bus.CalendarEventUpdated, event_bus.CalendarEventChanged{
		EventId:  placed[0].Event.EventId,
		Who:      member.Name,
		Text:     placed[0].Event.Text,
		SlotKeys: slotKeys(placed),
		Moved:    true,
	})
	return nil
}

// place builds one record per slot of the range starting at start on date.
func (s *ServiceImpl) place(date string, start int, endTime string, member Member, content, memo, eventId string) []SlotEvent {
	slots := s.settings.Slots
	end := slots.ResolveEnd(endTime, start)
	event := Event{
		Text:    slots.Caption(member.Name, content, start, end),
		Bg:      member.Color,
		Who:     member.Name,
		EventId: eventId,
		Memo:    memo,
	}
	keys := slots.Keys(date, start, end)
	placed := make([]SlotEvent, 0, len(keys))
	for _, key := range keys {
		placed = append(placed, SlotEvent{Key: key, Event: event})
	}
	return placed
}

func (s *ServiceImpl) parseDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: date is missing", ErrInvalidInput)
	}
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		return "", fmt.Errorf("%w: malformed date %q", ErrInvalidInput, value)
	}
	return date.Format(DateLayout), nil
}

func (s *ServiceImpl) validateRef(ref EventRef) error {
	if ref.EventId != "" {
		return nil
	}
	if ref.Key == "" {
		return fmt.Errorf("%w: event_id or key is required", ErrInvalidInput)
	}
	if _, _, err := ParseSlotKey(ref.Key); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if ref.Index < 0 {
		return fmt.Errorf("%w: index %d out of range", ErrInvalidInput, ref.Index)
	}
	return nil
}

// resolve returns one record of the referenced event.
func resolve(ctx context.Context, repo Repository, ref EventRef) (Event, error) {
	if ref.EventId != "" {
		return repo.GetEvent(ctx, ref.EventId)
	}
	return repo.GetEventAt(ctx, ref.Key, ref.Index)
}

// removeTarget deletes every copy of an event with an id, or the single positional record of an
// event without one.
func removeTarget(ctx context.Context, repo Repository, ref EventRef, target Event) error {
	if target.EventId == "" {
		return repo.DeleteEventAt(ctx, ref.Key, ref.Index)
	}
	removed, err := repo.DeleteEvents(ctx, target.EventId)
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, target.EventId)
	}
	return nil
}

// classify maps repository failures onto the service errors: a missing event is the caller's
// mistake, anything else is a storage failure.
func (s *ServiceImpl) classify(op string, err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return err
	case errors.Is(err, ErrEventNotFound):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	default:
		log.Errorf("failed to %s: %v", op, err)
		return fmt.Errorf("%w: failed to %s: %w", ErrStorage, op, err)
	}
}

func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, payload event_bus.CalendarEventChanged) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, eventType, payload)); err != nil {
		log.Warnf("failed to publish %s: %v", eventType, err)
	}
}

func slotKeys(placed []SlotEvent) []string {
	keys := make([]string, 0, len(placed))
	for _, p := range placed {
		keys = append(keys, p.Key)
	}
	return keys
}

func refKeys(ref EventRef) []string {
	if ref.Key == "" {
		return nil
	}
	return []string{ref.Key}
}
