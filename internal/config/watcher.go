package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads the configuration when a file in the config directory
// changes and hands the new configuration to the registered callbacks.
// An invalid file is logged and ignored; the last good configuration stays.
type Watcher struct {
	loader    *Loader
	logger    *zap.Logger
	debounce  time.Duration
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewWatcher starts watching the loader's directory.
func NewWatcher(loader *Loader, initial *Config, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(loader.BasePath()); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", loader.BasePath(), err)
	}

	w := &Watcher{
		loader:   loader,
		logger:   logger,
		debounce: defaultDebounce,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
		config:   initial,
	}
	go w.watchLoop()

	logger.Info("Configuration hot reloading enabled", zap.String("dir", loader.BasePath()))
	return w, nil
}

// OnChange registers a callback to be called when configuration changes.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops the configuration watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !isConfigFile(event.Name) {
				continue
			}
			w.logger.Debug("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload, keeping previous", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.config
	w.config = cfg
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	if old != nil && old.Logging.Level != cfg.Logging.Level {
		w.logger.Info("Configuration changes detected",
			zap.String("log_level", old.Logging.Level+" -> "+cfg.Logging.Level),
		)
	}

	for _, callback := range callbacks {
		callback(cfg)
	}
}

func isConfigFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
