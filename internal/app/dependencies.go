package app

import (
	"github.com/eunsilkim-ELSA/family-calendar/internal/config"
	"github.com/eunsilkim-ELSA/family-calendar/internal/event_bus"
	"github.com/eunsilkim-ELSA/family-calendar/internal/metrics"
	"github.com/eunsilkim-ELSA/family-calendar/internal/utils"
	"github.com/eunsilkim-ELSA/family-calendar/pkg/calendar"
	"github.com/eunsilkim-ELSA/family-calendar/pkg/ical_export"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus
	// Metrics is nil when metrics are disabled.
	Metrics *metrics.Metrics

	Settings           *calendar.Settings
	CalendarRepository calendar.Repository
	CalendarService    *calendar.ServiceImpl
	CalendarHandler    *calendar.Handler

	ExportService *ical_export.Service
	ExportHandler *ical_export.Handler

	unsubscribers []func()
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(repo calendar.Repository, settings *calendar.Settings, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()
	deps.unsubscribers = append(deps.unsubscribers, SubscribeAuditLog(deps.EventBus))
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New()
		deps.unsubscribers = append(deps.unsubscribers, deps.Metrics.Subscribe(deps.EventBus))
	}

	deps.Settings = settings
	deps.CalendarRepository = repo
	deps.CalendarService = calendar.NewService(repo, settings, calendar.UUIDGenerator{}, deps.EventBus)
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService, settings, deps.Clock)

	deps.ExportService = ical_export.NewService(deps.CalendarService, settings, deps.Clock)
	deps.ExportHandler = ical_export.NewHandler(deps.ExportService)

	return deps
}

func (d *Dependencies) Close() {
	for _, unsubscribe := range d.unsubscribers {
		unsubscribe()
	}
	d.unsubscribers = nil
}
