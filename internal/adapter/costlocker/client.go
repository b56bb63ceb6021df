package costlocker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"oncall-sync/internal/domain"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
	// Costlocker returns the whole timesheet in one page for the volumes a
	// single person logs per month.
	timesheetLimit = 5000
)

// Client implements ports.Tracker on the Costlocker JSON-RPC API. Every call
// is a POST of a JSON object whose keys name the operations to run.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	loc     *time.Location
	log     *slog.Logger
}

// NewClient builds a client. Start times sent to and read from Costlocker are
// wall-clock times in loc.
func NewClient(baseURL, apiKey string, loc *time.Location, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://rest.costlocker.com/api"
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		loc:     loc,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// CurrentUser resolves the person that owns the API key.
func (c *Client) CurrentUser(ctx context.Context) (domain.User, error) {
	var resp struct {
		Persons    []rawPerson `json:"7_Lst_Person"`
		Identities []struct {
			PersonID flexID `json:"person_id"`
		} `json:"7_Identities"`
	}
	req := map[string]any{
		"7_Lst_Person":  struct{}{},
		"7_Identities": struct{}{},
	}
	if err := c.call(ctx, req, &resp); err != nil {
		return domain.User{}, err
	}
	if len(resp.Identities) == 0 || resp.Identities[0].PersonID == "" {
		return domain.User{}, domain.ErrMissingUser
	}
	want := string(resp.Identities[0].PersonID)
	for _, p := range resp.Persons {
		if string(p.Key) == want {
			return domain.User{ID: want, Name: strings.TrimSpace(p.FirstName + " " + p.LastName)}, nil
		}
	}
	return domain.User{}, fmt.Errorf("costlocker: person %s: %w", want, domain.ErrMissingUser)
}

// ListWorkRecords fetches the user's timesheet for the dates window touches.
// Costlocker filters by date only and both bounds are inclusive.
func (c *Client) ListWorkRecords(ctx context.Context, user domain.User, window domain.Window) ([]domain.WorkRecord, error) {
	req := map[string]any{
		"7_Report_Timesheet": map[string]any{
			"datef":          window.Since.In(c.loc).Format(dateLayout),
			"datet":          window.Until.In(c.loc).Format(dateLayout),
			"personDisabled": nil,
			"nonproject":     true,
			"person": map[string]any{
				"or":     []string{user.ID},
				"and":    []string{},
				"not_or": []string{},
			},
		},
		"Report_Timesheet_Items": map[string]any{
			"pageByEntry": true,
			"limit":       timesheetLimit,
			"offset":      0,
		},
	}
	var resp struct {
		Items []rawTimesheetItem `json:"Report_Timesheet_Items"`
	}
	if err := c.call(ctx, req, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.WorkRecord, 0, len(resp.Items))
	for _, it := range resp.Items {
		start, err := c.parseDateTime(it.Date)
		if err != nil {
			return nil, fmt.Errorf("costlocker: worklog %s: %w", it.UUID, err)
		}
		out = append(out, domain.WorkRecord{
			ID:          it.UUID,
			Name:        it.Name,
			Start:       start,
			DurationSec: int64(math.Round(it.Seconds)),
			Key: domain.ClassificationKey{
				ProjectID:  string(it.ProjectID),
				ActivityID: string(it.ActivityID),
				TaskID:     string(it.TaskID),
			},
		})
	}
	if len(out) == timesheetLimit {
		c.log.Warn("costlocker timesheet hit the page limit, results may be truncated", slog.Int("limit", timesheetLimit))
	}
	return out, nil
}

// DeleteWorkRecord removes a tracking entry by its uuid.
func (c *Client) DeleteWorkRecord(ctx context.Context, id string) error {
	req := map[string]any{
		"5_Resource_Tracking_TrackingDelete": map[string]any{"key": id},
	}
	return c.call(ctx, req, nil)
}

// CreateWorkRecord saves a new tracking entry.
func (c *Client) CreateWorkRecord(ctx context.Context, rec domain.NewWorkRecord) error {
	req := map[string]any{
		"5_Resource_Tracking_TrackingSave": map[string]any{
			"Tracking": rawTracking{
				UUID:       rec.ID,
				Name:       "",
				ProjectID:  rec.Key.ProjectID,
				ActivityID: rec.Key.ActivityID,
				TaskID:     rec.Key.TaskID,
				Date:       rec.Start.In(c.loc).Format(dateTimeLayout),
				Seconds:    rec.DurationSec,
			},
		},
	}
	return c.call(ctx, req, nil)
}

func (c *Client) call(ctx context.Context, body any, out any) error {
	if c.apiKey == "" {
		return errors.New("missing api key")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Static "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("costlocker: %s: %w", snippet(raw), domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("costlocker: unexpected status %d: %s", resp.StatusCode, snippet(raw))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		if out != nil {
			return errors.New("costlocker: empty response")
		}
		return nil
	}
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("costlocker: decode response: %w", err)
	}
	if hasErrors(envelope.Errors) {
		msg := string(envelope.Errors)
		if strings.Contains(strings.ToLower(msg), "not found") {
			return fmt.Errorf("costlocker: %s: %w", msg, domain.ErrNotFound)
		}
		return fmt.Errorf("costlocker: %s", msg)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("costlocker: decode response: %w", err)
	}
	return nil
}

func (c *Client) parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{dateTimeLayout, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, c.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func hasErrors(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null" && s != "[]" && s != "{}" && s != `""`
}

func snippet(b []byte) string {
	if len(b) > 4096 {
		b = b[:4096]
	}
	return string(b)
}

type rawPerson struct {
	Key       flexID `json:"key"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type rawTimesheetItem struct {
	UUID       string  `json:"uuid"`
	Name       string  `json:"name"`
	Date       string  `json:"dt"`
	Seconds    float64 `json:"in"`
	ProjectID  flexID  `json:"project_id"`
	ActivityID flexID  `json:"activity_id"`
	TaskID     flexID  `json:"task_id"`
}

type rawTracking struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	ProjectID  string `json:"project_id"`
	ActivityID string `json:"activity_id"`
	TaskID     string `json:"task_id"`
	Date       string `json:"dt"`
	Seconds    int64  `json:"in"`
}

// flexID accepts identifiers encoded either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}
