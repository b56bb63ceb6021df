package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"oncall-sync/internal/adapter/costlocker"
	msql "oncall-sync/internal/adapter/mysql"
	"oncall-sync/internal/adapter/pagerduty"
	"oncall-sync/internal/config"
	"oncall-sync/internal/domain"
	"oncall-sync/internal/metrics"
	"oncall-sync/internal/migrate"
	"oncall-sync/internal/ports"
	"oncall-sync/internal/usecase"
)

// App wires adapters and use cases.
type App struct {
	log     *slog.Logger
	uc      *usecase.SyncUseCase
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
	closers []func() error

	inflight sync.WaitGroup
}

func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	schedule := pagerduty.NewClient(cfg.PagerDuty.BaseURL, cfg.PagerDuty.APIKey, cfg.PagerDuty.ScheduleID, log)

	var (
		tracker ports.Tracker
		closers []func() error
	)
	switch strings.ToLower(cfg.Tracker.Backend) {
	case config.TrackerMySQL:
		// Run migrations before opening the tracker for use
		if err := migrate.Run(ctx, cfg.MySQL.DSN, log); err != nil {
			return nil, err
		}
		t, err := msql.NewTracker(ctx, cfg.MySQL.DSN, cfg.MySQL.UserID, loc, log)
		if err != nil {
			return nil, err
		}
		tracker = t
		closers = append(closers, t.Close)
	case config.TrackerCostlocker:
		tracker = costlocker.NewClient(cfg.Costlocker.BaseURL, cfg.Costlocker.APIKey, loc, log)
	default:
		return nil, fmt.Errorf("unknown tracker backend %q", cfg.Tracker.Backend)
	}

	m := metrics.New()
	uc := &usecase.SyncUseCase{
		Log:      log,
		Schedule: schedule,
		Tracker:  tracker,
		Target: domain.ClassificationKey{
			ProjectID:  cfg.Target.ProjectID,
			ActivityID: cfg.Target.ActivityID,
			TaskID:     cfg.Target.TaskID,
		},
		Location: loc,
		Metrics:  m,
	}

	a := newApp(log, uc, m, loc)
	a.closers = closers
	return a, nil
}

func newApp(log *slog.Logger, uc *usecase.SyncUseCase, m *metrics.Metrics, loc *time.Location) *App {
	return &App{log: log, uc: uc, metrics: m, loc: loc, now: time.Now}
}

// RunOnce runs a sync to completion. Cancellation of ctx is not propagated,
// so a run never stops between purge and regenerate.
func (a *App) RunOnce(ctx context.Context, window domain.Window) (usecase.Report, error) {
	a.inflight.Add(1)
	defer a.inflight.Done()
	return a.uc.Run(context.WithoutCancel(ctx), window)
}

// Window resolves since/until overrides against the default window in the
// sync timezone.
func (a *App) Window(since, until string) (domain.Window, error) {
	return config.ResolveWindow(since, until, a.now(), a.loc)
}

// Close waits for a run in progress, then releases adapter resources.
func (a *App) Close() error {
	a.inflight.Wait()
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
