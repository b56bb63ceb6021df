package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"oncall-sync/internal/domain"
	"oncall-sync/internal/metrics"
	"oncall-sync/internal/paging"
	"oncall-sync/internal/ports"
)

// ErrAlreadyRunning is returned when Run is called while another run is in progress.
var ErrAlreadyRunning = errors.New("sync already running")

// SyncUseCase purges previously generated on-call records from the tracker and
// recreates them from the current on-call schedule.
//
// Every external call is issued and awaited before the next one. The tracker
// offers no transaction across writes, so the purge must finish before any
// record is created; the first failure aborts the run and a re-run from
// scratch is the recovery path.
type SyncUseCase struct {
	Log      *slog.Logger
	Schedule ports.ScheduleSource
	Tracker  ports.Tracker

	// Target is the project/activity/task that generated records are logged on.
	Target domain.ClassificationKey
	// Location is the zone new record start times are expressed in.
	Location *time.Location
	// PageSize for on-call queries; defaults to paging.DefaultPageSize.
	PageSize int
	// NewID assigns ids to created records; defaults to random UUIDs.
	NewID   func() string
	Metrics *metrics.Metrics

	running atomic.Bool
}

// Report summarizes a completed run.
type Report struct {
	Periods  int
	Deleted  int
	NotFound int
	Created  []domain.Interval
}

func (uc *SyncUseCase) Run(ctx context.Context, window domain.Window) (Report, error) {
	if uc.Schedule == nil || uc.Tracker == nil {
		return Report{}, errors.New("usecase not initialized: missing dependencies")
	}
	if !uc.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer uc.running.Store(false)

	started := time.Now()
	rep, err := uc.run(ctx, window)
	uc.Metrics.RecordRun(err, time.Since(started))
	return rep, err
}

func (uc *SyncUseCase) run(ctx context.Context, window domain.Window) (Report, error) {
	log := uc.logger()
	var rep Report

	log.Info("fetching on-call periods", slog.Time("since", window.Since), slog.Time("until", window.Until))
	periods, err := uc.fetchOnCalls(ctx, window)
	if err != nil {
		return rep, err
	}
	rep.Periods = len(periods)
	log.Info("fetched on-call periods", slog.Int("count", len(periods)))

	user, err := uc.Tracker.CurrentUser(ctx)
	if err != nil {
		return rep, fmt.Errorf("tracker user: %w", err)
	}
	if user.ID == "" {
		return rep, fmt.Errorf("tracker user: %w", domain.ErrMissingUser)
	}
	records, err := uc.Tracker.ListWorkRecords(ctx, user, window)
	if err != nil {
		return rep, fmt.Errorf("list work records: %w", err)
	}
	generated, other := domain.Partition(records, uc.Target)
	log.Info("fetched work records",
		slog.Int("count", len(records)),
		slog.Int("generated", len(generated)),
		slog.Int("other", len(other)),
	)

	if err := uc.purge(ctx, generated, &rep); err != nil {
		return rep, err
	}
	if err := uc.regenerate(ctx, periods, domain.Intervals(other), &rep); err != nil {
		return rep, err
	}
	log.Info("worklog creation finished", slog.Int("deleted", rep.Deleted), slog.Int("created", len(rep.Created)))
	return rep, nil
}

// fetchOnCalls drains all on-call pages for the schedule user and drops
// periods with duplicate boundaries. Fetch order is kept.
func (uc *SyncUseCase) fetchOnCalls(ctx context.Context, window domain.Window) ([]domain.OnCallPeriod, error) {
	user, err := uc.Schedule.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("schedule user: %w", domain.ErrMissingUser)
	}

	pageSize := uc.PageSize
	if pageSize == 0 {
		pageSize = paging.DefaultPageSize
	}
	pages := paging.Seq(ctx, pageSize, func(ctx context.Context, offset, limit int) ([]domain.OnCallPeriod, error) {
		return uc.Schedule.ListOnCalls(ctx, user.ID, window, offset, limit)
	})
	periods, err := paging.Collect(pages)
	if err != nil {
		return nil, fmt.Errorf("list on-calls: %w", err)
	}
	return domain.DeduplicateOnCalls(periods), nil
}

func (uc *SyncUseCase) purge(ctx context.Context, generated []domain.WorkRecord, rep *Report) error {
	log := uc.logger()
	log.Info("deleting old worklogs", slog.Int("count", len(generated)))
	for _, r := range generated {
		log.Info("deleting worklog",
			slog.String("id", r.ID),
			slog.String("name", r.Name),
			slog.Time("start", r.Start),
			slog.Time("end", r.End()),
		)
		err := uc.Tracker.DeleteWorkRecord(ctx, r.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			log.Warn("worklog already gone", slog.String("id", r.ID))
			rep.NotFound++
			uc.Metrics.RecordDeleteNotFound()
		case err != nil:
			return fmt.Errorf("delete worklog %s: %w", r.ID, err)
		default:
			rep.Deleted++
			uc.Metrics.RecordDeleted()
		}
	}
	log.Info("old worklogs deleted")
	return nil
}

func (uc *SyncUseCase) regenerate(ctx context.Context, periods []domain.OnCallPeriod, otherWork []domain.Interval, rep *Report) error {
	log := uc.logger()
	loc := uc.Location
	if loc == nil {
		loc = time.UTC
	}
	newID := uc.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}

	log.Info("creating on-call worklogs")
	for _, p := range periods {
		log.Info("creating worklogs for on-call", slog.String("period", p.Interval.String()))
		for _, iv := range Reconcile(p.Interval, otherWork) {
			rec := domain.NewWorkRecordFor(newID(), uc.Target, domain.Interval{Start: iv.Start.In(loc), End: iv.End.In(loc)})
			log.Info("creating on-call worklog",
				slog.String("id", rec.ID),
				slog.String("interval", iv.String()),
				slog.Int64("duration_sec", rec.DurationSec),
			)
			if err := uc.Tracker.CreateWorkRecord(ctx, rec); err != nil {
				return fmt.Errorf("create worklog %s: %w", iv, err)
			}
			rep.Created = append(rep.Created, iv)
			uc.Metrics.RecordCreated()
		}
	}
	return nil
}

func (uc *SyncUseCase) logger() *slog.Logger {
	if uc.Log != nil {
		return uc.Log
	}
	return slog.Default()
}
