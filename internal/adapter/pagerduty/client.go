package pagerduty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pd "github.com/PagerDuty/go-pagerduty"

	"oncall-sync/internal/domain"
)

// queryTimeZone is the zone PagerDuty renders on-call boundaries in.
const queryTimeZone = "Etc/UTC"

// Client implements ports.ScheduleSource for a single PagerDuty schedule.
type Client struct {
	api        *pd.Client
	scheduleID string
	log        *slog.Logger
}

// NewClient builds a client for scheduleID. baseURL overrides the API
// endpoint when non-empty.
func NewClient(baseURL, apiKey, scheduleID string, log *slog.Logger) *Client {
	var opts []pd.ClientOptions
	if baseURL != "" {
		opts = append(opts, pd.WithAPIEndpoint(baseURL))
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		api:        pd.NewClient(apiKey, opts...),
		scheduleID: scheduleID,
		log:        log,
	}
}

// CurrentUser resolves the user that owns the API key.
func (c *Client) CurrentUser(ctx context.Context) (domain.User, error) {
	u, err := c.api.GetCurrentUserWithContext(ctx, pd.GetCurrentUserOptions{})
	if err != nil {
		return domain.User{}, fmt.Errorf("pagerduty: current user: %w", err)
	}
	if u == nil || u.ID == "" {
		return domain.User{}, domain.ErrMissingUser
	}
	return domain.User{ID: u.ID, Name: u.Name}, nil
}

// ListOnCalls returns one page of userID's on-call shifts on the schedule.
func (c *Client) ListOnCalls(ctx context.Context, userID string, window domain.Window, offset, limit int) ([]domain.OnCallPeriod, error) {
	if offset < 0 || limit <= 0 {
		return nil, errors.New("pagerduty: invalid page bounds")
	}
	opts := pd.ListOnCallOptions{
		UserIDs:     []string{userID},
		ScheduleIDs: []string{c.scheduleID},
		TimeZone:    queryTimeZone,
		Since:       window.Since.UTC().Format(time.RFC3339),
		Until:       window.Until.UTC().Format(time.RFC3339),
	}
	opts.Limit = uint(limit)
	opts.Offset = uint(offset)

	resp, err := c.api.ListOnCallsWithContext(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("pagerduty: list on-calls: %w", err)
	}
	c.log.Debug("fetched on-call page", slog.Int("offset", offset), slog.Int("count", len(resp.OnCalls)))

	out := make([]domain.OnCallPeriod, 0, len(resp.OnCalls))
	for _, oc := range resp.OnCalls {
		iv, err := boundaries(oc.Start, oc.End, window)
		if err != nil {
			return nil, fmt.Errorf("pagerduty: on-call %s/%s: %w", oc.Schedule.ID, oc.User.ID, err)
		}
		out = append(out, domain.OnCallPeriod{Interval: iv, ScheduleID: oc.Schedule.ID})
	}
	return out, nil
}

// boundaries parses an on-call's start and end. PagerDuty leaves them empty
// for permanent on-call; those are clamped to the queried window.
func boundaries(start, end string, window domain.Window) (domain.Interval, error) {
	iv := domain.Interval{Start: window.Since, End: window.Until}
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return iv, err
		}
		iv.Start = t
	}
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return iv, err
		}
		iv.End = t
	}
	return iv, nil
}
