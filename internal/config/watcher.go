package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sandeepkv93/cadence/internal/logx"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a config file when it changes and hands every valid,
// different config to OnChange.
type Watcher struct {
	Path     string
	OnChange func(Config)
	Logger   logx.Logger
	Debounce time.Duration

	mu   sync.Mutex
	last Config
}

func NewWatcher(path string, current Config, log logx.Logger, onChange func(Config)) *Watcher {
	return &Watcher{Path: path, OnChange: onChange, Logger: log, last: current}
}

// Run watches the file's directory until ctx is done. Editors often
// replace files instead of writing them, so events are matched by name.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.Logger
	if log.IsZero() {
		log = logx.Nop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	dir := filepath.Dir(w.Path)
	file := filepath.Base(w.Path)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(dir); err != nil {
		return err
	}
	log.Debug("config watcher started", logx.String("path", w.Path))

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() { w.reload(log) })
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("config: watcher closed")
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("config: watcher closed")
			}
			log.Warn("config watch error", logx.Err(err))
		}
	}
}

func (w *Watcher) reload(log logx.Logger) {
	cfg, err := Load(w.Path)
	if err != nil {
		log.Warn("config reload rejected", logx.String("path", w.Path), logx.Err(err))
		return
	}
	w.mu.Lock()
	unchanged := cfg == w.last
	if !unchanged {
		w.last = cfg
	}
	w.mu.Unlock()
	if unchanged {
		log.Debug("config unchanged; skipping", logx.String("path", w.Path))
		return
	}
	log.Info("config reloaded", logx.String("path", w.Path))
	if w.OnChange != nil {
		w.OnChange(cfg)
	}
}
