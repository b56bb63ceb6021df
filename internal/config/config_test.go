package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PAGERDUTY_API_KEY", "PAGERDUTY_SCHEDULE_ID", "PAGERDUTY_BASE_URL",
		"COSTLOCKER_API_KEY", "COSTLOCKER_BASE_URL",
		"TARGET_PROJECT_ID", "TARGET_ACTIVITY_ID", "TARGET_TASK_ID",
		"TRACKER_BACKEND", "MYSQL_DSN", "MYSQL_USER_ID", "SYNC_TZ", "HTTP_ADDR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "PVSO6AU", cfg.PagerDuty.ScheduleID)
	assert.Equal(t, "17514", cfg.Target.ActivityID)
	assert.Equal(t, "https://rest.costlocker.com/api", cfg.Costlocker.BaseURL)
	assert.Equal(t, TrackerCostlocker, cfg.Tracker.Backend)
	assert.Equal(t, "Europe/Prague", cfg.Sync.Timezone)
	assert.Error(t, cfg.Validate(), "credentials are missing")
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "oncall-sync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pagerduty:
  api_key: pd-from-file
  schedule_id: SCHED1
costlocker:
  api_key: cl-from-file
target:
  project_id: "100"
  task_id: "7"
sync:
  timezone: UTC
`), 0o600))
	t.Setenv("COSTLOCKER_API_KEY", "cl-from-env")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "pd-from-file", cfg.PagerDuty.APIKey)
	assert.Equal(t, "SCHED1", cfg.PagerDuty.ScheduleID)
	assert.Equal(t, "cl-from-env", cfg.Costlocker.APIKey)
	assert.Equal(t, "100", cfg.Target.ProjectID)
	assert.Equal(t, "7", cfg.Target.TaskID)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pagerduty: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_MySQLBackend(t *testing.T) {
	var cfg Config
	cfg.PagerDuty.APIKey = "pd"
	cfg.Target.ProjectID = "1"
	cfg.Target.TaskID = "2"
	cfg.Tracker.Backend = TrackerMySQL
	cfg.ApplyDefaults()

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MySQL DSN")

	cfg.MySQL.DSN = "u:p@tcp(localhost:3306)/db"
	cfg.MySQL.UserID = "me"
	assert.NoError(t, cfg.Validate())

	cfg.Tracker.Backend = "sheets"
	assert.Error(t, cfg.Validate())
}

func TestParseBoundaries(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	def := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := ParseStart("", def, loc)
	require.NoError(t, err)
	assert.Equal(t, def, got)

	got, err = ParseStart("2025-03-01T10:00:00Z", def, loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))

	got, err = ParseStart("2025-03-01", def, loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, loc)))

	got, err = ParseEnd("2025-03-31", def, loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 31, 23, 59, 59, 999000000, loc)))

	_, err = ParseEnd("yesterday", def, loc)
	assert.Error(t, err)
}

func TestResolveWindow(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 3, 17, 15, 4, 5, 0, loc)

	w, err := ResolveWindow("", "", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, loc), w.Since)
	assert.Equal(t, time.Date(2025, 3, 17, 23, 59, 59, 999000000, loc), w.Until)

	w, err = ResolveWindow("2025-02-01", "2025-02-28", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, loc), w.Since)

	_, err = ResolveWindow("2025-04-01", "2025-03-01", now, loc)
	assert.Error(t, err)
}
