package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/cadence/internal/config"
	"github.com/sandeepkv93/cadence/internal/eventbus"
	"github.com/sandeepkv93/cadence/internal/logx"
	"github.com/sandeepkv93/cadence/internal/notify"
	"github.com/sandeepkv93/cadence/internal/scheduler"
	"github.com/sandeepkv93/cadence/internal/update"
)

func runCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the reminder and pattern loops until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			d := a.newDispatcher()
			sched, err := a.newScheduler(d)
			if err != nil {
				return err
			}

			events, unsubscribe := a.bus.Subscribe(64)
			defer unsubscribe()
			go logNotices(ctx, a.log, events)

			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()

			cfg := a.config()
			watcher := config.NewWatcher(a.configPath, cfg, a.log, func(next config.Config) {
				a.applyConfig(opts.override(next), d, sched)
			})
			go func() {
				if err := watcher.Run(ctx); err != nil {
					a.log.Warn("config hot reload disabled", logx.String("path", a.configPath), logx.Err(err))
				}
			}()

			notifySystemd(a.log, daemon.SdNotifyReady)
			a.log.Info("cadence running",
				logx.String("db", cfg.DBPath),
				logx.Duration("reminder_interval", cfg.ReminderInterval.Std()),
				logx.Duration("pattern_interval", cfg.PatternInterval.Std()),
				logx.Bool("desktop", cfg.Notifications.Desktop),
			)

			<-ctx.Done()
			notifySystemd(a.log, daemon.SdNotifyStopping)
			a.log.Info("shutting down")
			return nil
		},
	}
}

type notifyApplier interface {
	Apply(cfg notify.Config)
}

type intervalApplier interface {
	Reconfigure(iv scheduler.Intervals) error
}

// applyConfig re-applies everything that can change without a restart. It
// runs on the watcher's goroutine.
func (a *app) applyConfig(next config.Config, d notifyApplier, sched intervalApplier) {
	a.logs.Apply(logConfig(next))
	d.Apply(notifyConfig(next))
	if err := sched.Reconfigure(intervals(next)); err != nil {
		a.log.Warn("interval change rejected", logx.Err(err))
	}
	prev := a.config()
	if next.DBPath != prev.DBPath || next.Timezone != prev.Timezone {
		a.log.Warn("database and timezone changes apply after restart")
	}
	a.setConfig(next)
}

func notifySystemd(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}

// logNotices is the daemon's in-app channel: reminders the desktop could not
// show end up in the log.
func logNotices(ctx context.Context, log logx.Logger, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Topic != eventbus.NotificationFallback {
				continue
			}
			if n, ok := ev.Data.(eventbus.Notice); ok {
				log.Info("reminder",
					logx.String("title", n.Title),
					logx.String("body", n.Body),
					logx.String("subject_id", n.SubjectID),
					logx.String("reason", n.Reason),
				)
			}
		}
	}
}

func watchCmd(opts *appOptions) *cobra.Command {
	var noScheduler bool
	var refresh time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live terminal view of tasks, reminders and patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			// The terminal belongs to the view; logs go to the file only.
			quiet := logConfig(a.config())
			quiet.Console = false
			if quiet.File == "" {
				quiet.Level = "off"
			}
			a.logs.Apply(quiet)

			events, unsubscribe := a.bus.Subscribe(128)
			defer unsubscribe()

			var checker update.Checker
			if !noScheduler {
				sched, err := a.newScheduler(a.newDispatcher())
				if err != nil {
					return err
				}
				if err := sched.Start(ctx); err != nil {
					return err
				}
				defer sched.Stop()
				checker = sched
			}

			m := update.NewModel(update.Options{
				Context:  ctx,
				Backend:  a.svc,
				Checker:  checker,
				Events:   events,
				Location: a.loc,
				Refresh:  refresh,
			})
			if _, err := tea.NewProgram(m, tea.WithContext(ctx)).Run(); err != nil && ctx.Err() == nil {
				return fmt.Errorf("watch: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run the poll loops in this process")
	cmd.Flags().DurationVar(&refresh, "refresh", 15*time.Second, "list refresh interval")
	return cmd
}

func checkCmd(opts *appOptions) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fire due reminders and materialize due patterns once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch scope {
			case "all", "reminders", "patterns":
			default:
				return fmt.Errorf("--only must be all, reminders or patterns, got %q", scope)
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			events, unsubscribe := a.bus.Subscribe(256)
			defer unsubscribe()

			sched, err := a.newScheduler(a.newDispatcher())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			now := time.Now()
			var checkErr error
			if scope == "all" || scope == "patterns" {
				n, err := sched.CheckPatterns(ctx, now)
				checkErr = err
				fmt.Fprintf(out, "patterns: %d task(s) generated\n", n)
			}
			if scope == "all" || scope == "reminders" {
				tick := sched.CheckReminders(ctx, now)
				fmt.Fprintf(out, "reminders: %d fired, %d purged\n", tick.Fired, tick.Purged)
			}
			printNotices(out, events)
			return checkErr
		},
	}

	cmd.Flags().StringVar(&scope, "only", "all", "what to check: all, reminders or patterns")
	return cmd
}
