package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"oncall-sync/internal/domain"
)

// Tracker implements ports.Tracker on a MySQL worklogs table. It serves teams
// that keep their time ledger in their own database rather than Costlocker.
type Tracker struct {
	db     *sql.DB
	userID string
	loc    *time.Location
	log    *slog.Logger
}

// NewTracker opens a MySQL connection using the provided DSN. userID is the
// identity records are listed and created for. Date-only window bounds are
// resolved in loc.
// Example DSN: user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
func NewTracker(ctx context.Context, dsn, userID string, loc *time.Location, log *slog.Logger) (*Tracker, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	// Writes are issued one at a time by the sync; a small pool is enough.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{db: db, userID: userID, loc: loc, log: log}, nil
}

func (t *Tracker) CurrentUser(ctx context.Context) (domain.User, error) {
	if t.userID == "" {
		return domain.User{}, domain.ErrMissingUser
	}
	return domain.User{ID: t.userID}, nil
}

// ListWorkRecords returns the user's records starting on any date the window
// touches, matching the date-granular filter of hosted trackers.
func (t *Tracker) ListWorkRecords(ctx context.Context, user domain.User, window domain.Window) ([]domain.WorkRecord, error) {
	from := startOfDay(window.Since.In(t.loc))
	to := startOfDay(window.Until.In(t.loc)).AddDate(0, 0, 1)

	const q = `
SELECT id, name, project_id, activity_id, task_id, started_at, duration_sec
FROM worklogs
WHERE user_id = ? AND started_at >= ? AND started_at < ?
ORDER BY started_at, id;
`
	rows, err := t.db.QueryContext(ctx, q, user.ID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WorkRecord
	for rows.Next() {
		var r domain.WorkRecord
		if err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Key.ProjectID,
			&r.Key.ActivityID,
			&r.Key.TaskID,
			&r.Start,
			&r.DurationSec,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteWorkRecord removes a record by id. An id with no row yields
// domain.ErrNotFound.
func (t *Tracker) DeleteWorkRecord(ctx context.Context, id string) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM worklogs WHERE id = ? AND user_id = ?", id, t.userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("mysql: worklog %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (t *Tracker) CreateWorkRecord(ctx context.Context, rec domain.NewWorkRecord) error {
	const q = `
INSERT INTO worklogs
  (id, user_id, name, project_id, activity_id, task_id, started_at, duration_sec)
VALUES
  (?, ?, '', ?, ?, ?, ?, ?);
`
	if _, err := t.db.ExecContext(
		ctx,
		q,
		rec.ID,
		t.userID,
		rec.Key.ProjectID,
		rec.Key.ActivityID,
		rec.Key.TaskID,
		rec.Start.UTC(),
		rec.DurationSec,
	); err != nil {
		return err
	}
	t.log.Debug("mysql tracker inserted worklog", slog.String("id", rec.ID))
	return nil
}

// Close closes the underlying DB.
func (t *Tracker) Close() error { return t.db.Close() }

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
