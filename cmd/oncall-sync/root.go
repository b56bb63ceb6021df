package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"oncall-sync/internal/app"
	"oncall-sync/internal/config"
)

// rootOptions holds flags shared by every command. Flags override values
// from the config file and environment only when set explicitly.
type rootOptions struct {
	configPath string
	verbose    bool
	since      string
	until      string

	overrides []override
}

type override struct {
	flag  string
	value *string
	apply func(cfg *config.Config, v string)
}

func newRootCommand() *cobra.Command {
	cmd, _ := buildRootCommand()
	return cmd
}

func buildRootCommand() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "oncall-sync",
		Short: "Record PagerDuty on-call time as Costlocker worklogs",
		Long: `Synchronize on-call shifts into the time tracker.

Every run deletes the worklogs previously created on the on-call
project/activity/task and recreates them from the PagerDuty schedule, leaving
out time already logged on other work. Re-running is always safe.

Example:
  oncall-sync --pd-api-key $PD --cl-api-key $CL --cl-project-id 100 --cl-task-id 7
  oncall-sync --config oncall-sync.yaml --since 2025-03-01 --until 2025-03-31`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", os.Getenv("ONCALL_SYNC_CONFIG"), "path to a YAML config file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&opts.since, "since", "", "RFC3339 or YYYY-MM-DD start of the sync window (default: start of current month)")
	flags.StringVar(&opts.until, "until", "", "RFC3339 or YYYY-MM-DD end of the sync window, inclusive (default: end of today)")

	opts.bind(cmd, "pd-api-key", "PagerDuty API key", func(c *config.Config, v string) { c.PagerDuty.APIKey = v })
	opts.bind(cmd, "pd-schedule-id", "PagerDuty schedule ID (default PVSO6AU)", func(c *config.Config, v string) { c.PagerDuty.ScheduleID = v })
	opts.bind(cmd, "cl-api-key", "Costlocker API key", func(c *config.Config, v string) { c.Costlocker.APIKey = v })
	opts.bind(cmd, "cl-project-id", "Costlocker on-call project ID", func(c *config.Config, v string) { c.Target.ProjectID = v })
	opts.bind(cmd, "cl-activity-id", "Costlocker on-call activity ID (default 17514)", func(c *config.Config, v string) { c.Target.ActivityID = v })
	opts.bind(cmd, "cl-task-id", "Costlocker on-call task ID", func(c *config.Config, v string) { c.Target.TaskID = v })
	opts.bind(cmd, "tracker", "tracker backend: costlocker or mysql", func(c *config.Config, v string) { c.Tracker.Backend = v })
	opts.bind(cmd, "mysql-dsn", "MySQL DSN for the mysql tracker", func(c *config.Config, v string) { c.MySQL.DSN = v })
	opts.bind(cmd, "mysql-user-id", "user id records belong to in the mysql tracker", func(c *config.Config, v string) { c.MySQL.UserID = v })
	opts.bind(cmd, "timezone", "timezone worklog times are expressed in (default Europe/Prague)", func(c *config.Config, v string) { c.Sync.Timezone = v })

	cmd.AddCommand(newServeCommand(opts))
	return cmd, opts
}

func (o *rootOptions) bind(cmd *cobra.Command, name, usage string, apply func(*config.Config, string)) {
	v := new(string)
	cmd.PersistentFlags().StringVar(v, name, "", usage)
	o.overrides = append(o.overrides, override{flag: name, value: v, apply: apply})
}

// loadConfig reads file and environment configuration, then applies flags
// that were set on the command line.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	for _, ov := range o.overrides {
		if cmd.Flags().Changed(ov.flag) {
			ov.apply(&cfg, *ov.value)
		}
	}
	return cfg, nil
}

func runOnce(cmd *cobra.Command, opts *rootOptions) error {
	log := slog.Default()
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	window, err := application.Window(opts.since, opts.until)
	if err != nil {
		return err
	}
	rep, err := application.RunOnce(ctx, window)
	if err != nil {
		return err
	}
	log.Info("sync completed",
		slog.Int("periods", rep.Periods),
		slog.Int("deleted", rep.Deleted),
		slog.Int("created", len(rep.Created)),
	)
	return nil
}
