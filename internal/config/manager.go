package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Manager struct {
	path string
	log  *zap.SugaredLogger

	mu      sync.RWMutex
	config  *Config
	hooks   []func(*Config)
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewManager loads the user's config file. Validation problems are logged,
// not returned, so a broken file can still be fixed while the daemon runs.
func NewManager(logger *zap.Logger) (*Manager, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	if _, err := Load(); err != nil {
		return nil, err
	}
	return newManager(path, logger)
}

func newManager(path string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{path: path, log: logger.Named("config").Sugar()}

	m.log.Infof("Config manager: loading %s", path)
	config, err := LoadFile(path)
	if err != nil {
		m.log.Errorf("Config manager: failed to load initial configuration: %v", err)
		return nil, err
	}
	if err := config.Validate(); err != nil {
		m.log.Warnf("Config manager: validation warning: %v", err)
	}
	m.config = config
	return m, nil
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	configCopy.Providers = make(map[string]ProviderConfig, len(m.config.Providers))
	for k, v := range m.config.Providers {
		configCopy.Providers[k] = v
	}
	return &configCopy
}

// OnReload registers fn to run with every successfully reloaded and
// validated configuration. Hooks run on the watcher goroutine.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// watch the directory: editors replace the file on save
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	m.log.Infof("Config manager: watching %s for changes", m.path)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				m.log.Infof("Config manager: file change detected: %s. Reloading config...", event.Name)
				m.reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warnf("Config watcher error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) reload() {
	newConfig, err := LoadFile(m.path)
	if err != nil {
		m.log.Errorf("Config manager: failed to reload config: %v", err)
		return
	}
	if err := newConfig.Validate(); err != nil {
		m.log.Errorf("Config manager: invalid config after reload: %v", err)
		return
	}

	m.mu.Lock()
	m.config = newConfig
	hooks := append([]func(*Config){}, m.hooks...)
	m.mu.Unlock()

	m.log.Infof("Config manager: configuration successfully reloaded")
	for _, fn := range hooks {
		fn(m.GetConfig())
	}
}
