package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/eunsilkim-ELSA/family-calendar/internal/config"
	"github.com/eunsilkim-ELSA/family-calendar/pkg/calendar"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Application wires configuration, storage, router, and server lifecycle.
type Application struct {
	cfg     config.Application
	router  *mux.Router
	srv     *http.Server
	storage *Storage
	deps    *Dependencies
}

// NewApplication loads the configuration at configPath and constructs the full HTTP application,
// ready to Run().
func NewApplication(ctx context.Context, configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return NewApplicationWithConfig(ctx, cfg)
}

func NewApplicationWithConfig(ctx context.Context, cfg config.Application) (*Application, error) {
	ConfigureLogging(cfg.Log)

	settings, err := BuildSettings(cfg.Calendar)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar configuration: %w", err)
	}

	storage, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	deps := BuildDependencies(storage.Repository, settings, cfg)

	r := mux.NewRouter()
	SetupMiddleware(r, deps)
	RegisterRoutes(r, deps, storage)

	srv := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		WriteTimeout: cfg.Server.WriteTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Application{cfg: cfg, router: r, srv: srv, storage: storage, deps: deps}, nil
}

// Handler exposes the routed handler, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.router
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests and closes the storage.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s (storage: %s)", a.srv.Addr, a.storage.Driver)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		a.Close()
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := a.srv.Shutdown(shutdownCtx)
	a.Close()
	return err
}

// Close releases the storage and the bus subscriptions.
func (a *Application) Close() {
	a.deps.Close()
	if err := a.storage.Close(); err != nil {
		log.Errorf("failed to close storage: %v", err)
	}
}

// BuildSettings turns the calendar section of the configuration into the grid settings.
func BuildSettings(cfg config.Calendar) (*calendar.Settings, error) {
	slots, err := calendar.NewSlotTable(cfg.FirstHour, cfg.LastHour)
	if err != nil {
		return nil, err
	}

	members := make([]calendar.Member, 0, len(cfg.Members))
	for _, m := range cfg.Members {
		members = append(members, calendar.Member{Name: m.Name, Color: m.Color})
	}
	household, err := calendar.NewHousehold(members, cfg.DefaultMember)
	if err != nil {
		return nil, err
	}

	location := time.Local
	if cfg.Timezone != "" {
		location, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("unknown timezone %q: %w", cfg.Timezone, err)
		}
	}
	return calendar.NewSettings(slots, household, location)
}

func ConfigureLogging(cfg config.Log) {
	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
