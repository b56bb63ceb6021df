package ports

import (
	"context"

	"oncall-sync/internal/domain"
)

// ScheduleSource reads on-call shifts from the scheduling system.
type ScheduleSource interface {
	CurrentUser(ctx context.Context) (domain.User, error)
	// ListOnCalls returns one page of on-call periods for userID in window.
	ListOnCalls(ctx context.Context, userID string, window domain.Window, offset, limit int) ([]domain.OnCallPeriod, error)
}

// Tracker reads and writes logged time in the time-tracking system.
// DeleteWorkRecord must return an error wrapping domain.ErrNotFound when the
// id does not exist so that callers can tolerate it.
type Tracker interface {
	CurrentUser(ctx context.Context) (domain.User, error)
	ListWorkRecords(ctx context.Context, user domain.User, window domain.Window) ([]domain.WorkRecord, error)
	DeleteWorkRecord(ctx context.Context, id string) error
	CreateWorkRecord(ctx context.Context, rec domain.NewWorkRecord) error
}
