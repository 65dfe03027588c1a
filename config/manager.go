package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	configFileName = "config.json"

	// editors often write a file in several steps
	reloadDelay = 300 * time.Millisecond
)

// Manager owns the JSON config file. Changes made through Set or Update are
// written atomically; hand edits are picked up by Watch.
type Manager struct {
	path string
	log  zerolog.Logger

	mu       sync.RWMutex
	cfg      Config
	onChange func(Config)
	watching bool
}

type ManagerOption func(*Manager)

// WithConfigDir places config.json in dir.
func WithConfigDir(dir string) ManagerOption {
	return func(m *Manager) {
		if dir != "" {
			m.path = filepath.Join(dir, configFileName)
		}
	}
}

// WithConfigPath uses path as the config file.
func WithConfigPath(path string) ManagerOption {
	return func(m *Manager) {
		if path != "" {
			m.path = path
		}
	}
}

func WithManagerLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager loads the config file, creating it with defaults when missing.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With().Str("component", "config").Logger()

	if m.path == "" {
		path, err := defaultConfigPath()
		if err != nil {
			return nil, err
		}
		m.path = path
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg, err := readConfigFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = *DefaultConfigWithRoot(filepath.Dir(m.path))
		if err := writeConfigFile(m.path, cfg); err != nil {
			return nil, fmt.Errorf("write initial config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m.cfg = cfg
	return m, nil
}

// Get returns the config as stored on disk.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Effective returns the stored config with environment overrides applied.
func (m *Manager) Effective() Config {
	cfg := m.Get()
	cfg.LoadFromEnv()
	return cfg
}

func (m *Manager) Path() string {
	return m.path
}

// UpdateFromJSON replaces the config with the decoded document. Keys absent
// from the document take their default values.
func (m *Manager) UpdateFromJSON(doc string) error {
	cfg := *DefaultConfigWithRoot(filepath.Dir(m.path))
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return m.Update(cfg)
}

// Update validates cfg, writes it to disk and notifies the watcher callback.
func (m *Manager) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if reflect.DeepEqual(m.Get(), cfg) {
		return nil
	}
	if err := writeConfigFile(m.path, cfg); err != nil {
		return err
	}
	m.apply(cfg)
	return nil
}

// Watch reloads the file after external edits and passes each new value to
// onChange. Writes made by this Manager match the current value and are not
// reported twice. The watcher stops when ctx is done.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	m.mu.Lock()
	m.onChange = onChange
	if m.watching {
		m.mu.Unlock()
		return nil
	}
	m.watching = true
	m.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.setWatching(false)
		return err
	}
	// the directory survives rename-over-write saves, the file does not
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		m.setWatching(false)
		return fmt.Errorf("watch config dir: %w", err)
	}

	go m.watch(ctx, watcher)
	return nil
}

func (m *Manager) setWatching(v bool) {
	m.mu.Lock()
	m.watching = v
	m.mu.Unlock()
}

func (m *Manager) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	defer m.setWatching(false)

	pending := time.NewTimer(reloadDelay)
	pending.Stop()
	defer pending.Stop()

	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if touchesFile(evt, m.path) {
				pending.Reset(reloadDelay)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn().Err(err).Msg("config watcher error")
		case <-pending.C:
			m.reload()
		case <-ctx.Done():
			return
		}
	}
}

func touchesFile(evt fsnotify.Event, path string) bool {
	return filepath.Clean(evt.Name) == filepath.Clean(path) &&
		evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (m *Manager) reload() {
	cfg, err := readConfigFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		m.log.Debug().Str("path", m.path).Msg("config file removed, keeping current settings")
		return
	}
	if err != nil {
		m.log.Warn().Err(err).Str("path", m.path).Msg("config reload failed")
		return
	}
	if err := cfg.Validate(); err != nil {
		m.log.Warn().Err(err).Msg("ignoring invalid config")
		return
	}
	if reflect.DeepEqual(m.Get(), cfg) {
		return
	}
	m.log.Info().Str("path", m.path).Msg("config reloaded")
	m.apply(cfg)
}

func (m *Manager) apply(cfg Config) {
	m.mu.Lock()
	m.cfg = cfg
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(cfg)
	}
}

// readConfigFile decodes path over the defaults so that keys missing from an
// older file keep their default values.
func readConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := *DefaultConfigWithRoot(filepath.Dir(path))
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "StockPulse", configFileName), nil
}

// writeConfigFile replaces path through a temp file and rename.
func writeConfigFile(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "cfg-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
