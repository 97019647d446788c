package event_bus

const (
	CalendarEventAdded   EventType = "calendar.event.added"
	CalendarEventUpdated EventType = "calendar.event.updated"
	CalendarEventDeleted EventType = "calendar.event.deleted"
)

// CalendarEventChanged describes a committed change to one logical calendar event.
type CalendarEventChanged struct {
	// EventId is empty for positional changes to records that never had an id.
	EventId string
	Who     string
	Text    string
	// SlotKeys lists the slots the change touched; for an update that moved the event these are
	// the new slots.
	SlotKeys []string
	// Moved is set when an update changed the time range.
	Moved bool
}
