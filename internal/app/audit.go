package app

import (
	"github.com/eunsilkim-ELSA/family-calendar/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

// SubscribeAuditLog logs every committed calendar change.
func SubscribeAuditLog(bus *event_bus.EventBus) (unsubscribe func()) {
	var unsubscribers []func()
	for _, eventType := range []event_bus.EventType{
		event_bus.CalendarEventAdded,
		event_bus.CalendarEventUpdated,
		event_bus.CalendarEventDeleted,
	} {
		unsubscribers = append(unsubscribers, event_bus.SubscribeTyped(bus, eventType,
			func(e event_bus.EventT[event_bus.CalendarEventChanged]) error {
				log.WithFields(log.Fields{
					"change":   string(e.Type),
					"event_id": e.Data.EventId,
					"who":      e.Data.Who,
					"slots":    len(e.Data.SlotKeys),
					"moved":    e.Data.Moved,
				}).Info(e.Data.Text)
				return nil
			}))
	}
	return func() {
		for _, u := range unsubscribers {
			u()
		}
	}
}
