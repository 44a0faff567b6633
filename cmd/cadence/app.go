package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/cadence/internal/commands"
	"github.com/sandeepkv93/cadence/internal/config"
	"github.com/sandeepkv93/cadence/internal/eventbus"
	"github.com/sandeepkv93/cadence/internal/logx"
	"github.com/sandeepkv93/cadence/internal/model"
	"github.com/sandeepkv93/cadence/internal/notify"
	"github.com/sandeepkv93/cadence/internal/patterns"
	"github.com/sandeepkv93/cadence/internal/reminders"
	"github.com/sandeepkv93/cadence/internal/scheduler"
	"github.com/sandeepkv93/cadence/internal/service"
	"github.com/sandeepkv93/cadence/internal/storage"
)

type appOptions struct {
	configPath string
	dbPath     string
	logLevel   string
	envFiles   []string
}

// app is one opened database with its stores, bus and logger.
type app struct {
	configPath string
	cfgMu      sync.RWMutex
	cfg        config.Config
	logs       *logx.Service
	log        logx.Logger
	loc        *time.Location
	repo       *storage.SQLiteRepository
	bus        eventbus.Bus
	svc        *service.Service
}

func (o *appOptions) resolvedConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	return config.DefaultPath()
}

func (o *appOptions) loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(o.envFiles...); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(o.resolvedConfigPath())
	if err != nil {
		return config.Config{}, err
	}
	return o.override(cfg), nil
}

// override applies command-line flags, which win over file and environment.
func (o *appOptions) override(cfg config.Config) config.Config {
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg
}

func openApp(ctx context.Context, opts *appOptions) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(logConfig(cfg))
	repo, err := storage.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}

	patternStore := patterns.New(patterns.Options{
		Repo:       repo,
		Calculator: model.Calculator{Location: loc, Hooks: patterns.BuiltinHooks()},
		Logger:     log,
	})
	reminderStore := reminders.New(reminders.Options{Repo: repo, Logger: log, Location: loc})
	bus := eventbus.New()
	svc := service.New(service.Options{
		Patterns:  patternStore,
		Reminders: reminderStore,
		Tasks:     repo,
		Bus:       bus,
		Logger:    log,
	})
	if err := svc.Load(ctx); err != nil {
		_ = repo.Close()
		_ = logs.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}

	return &app{
		configPath: opts.resolvedConfigPath(),
		cfg:        cfg,
		logs:       logs,
		log:        log,
		loc:        loc,
		repo:       repo,
		bus:        bus,
		svc:        svc,
	}, nil
}

// config returns the active configuration. It changes when the watcher
// reloads the file.
func (a *app) config() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

func (a *app) setConfig(cfg config.Config) {
	a.cfgMu.Lock()
	a.cfg = cfg
	a.cfgMu.Unlock()
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		a.log.Warn("close database", logx.Err(err))
	}
	_ = a.logs.Close()
}

func (a *app) newDispatcher() *notify.Dispatcher {
	return notify.New(notifyConfig(a.config()), notify.NewExecNative(true), a.bus, a.log)
}

func (a *app) newScheduler(d scheduler.Dispatcher) (*scheduler.Scheduler, error) {
	return scheduler.New(scheduler.Config{
		Reminders:  a.svc,
		Patterns:   a.svc,
		Dispatcher: d,
		Tasks:      a.svc,
		Intervals:  intervals(a.config()),
		Location:   a.loc,
		Logger:     a.log,
	})
}

func (a *app) subjectIDs(ctx context.Context) []string {
	tasks, err := a.svc.ListTasks(ctx, storage.TaskListFilter{})
	if err != nil {
		a.log.Warn("list tasks", logx.Err(err))
	}
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	for _, r := range a.svc.Reminders().List() {
		ids = append(ids, r.SubjectID)
	}
	return ids
}

func (a *app) resolvePattern(input string) (string, error) {
	ids := make([]string, 0)
	for _, p := range a.svc.ListPatterns() {
		ids = append(ids, p.ID)
	}
	return commands.ResolveID(input, ids)
}

func (a *app) resolveReminder(input string) (string, error) {
	ids := make([]string, 0)
	for _, r := range a.svc.Reminders().List() {
		ids = append(ids, r.ID)
	}
	return commands.ResolveID(input, ids)
}

func (a *app) resolveTask(ctx context.Context, input string) (string, error) {
	tasks, err := a.svc.ListTasks(ctx, storage.TaskListFilter{})
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return commands.ResolveID(input, ids)
}

func logConfig(cfg config.Config) logx.Config {
	return logx.Config{Level: cfg.Log.Level, Console: cfg.Log.Console, File: cfg.Log.File}
}

func notifyConfig(cfg config.Config) notify.Config {
	return notify.Config{Enabled: cfg.Notifications.Desktop, RatePerSec: cfg.Notifications.RatePerSec}
}

func intervals(cfg config.Config) scheduler.Intervals {
	return scheduler.Intervals{
		Reminders: cfg.ReminderInterval.Std(),
		Patterns:  cfg.PatternInterval.Std(),
		Retention: cfg.Retention(),
	}
}

func formatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02 15:04")
}

func formatTimePtr(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t, loc)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
