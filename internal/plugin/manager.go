package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager discovers plugins and dispatches events to them.
type Manager struct {
	pluginDir string
	plugins   map[string]*Plugin
	exec      *Executor
	logger    *log.Logger
	mu        sync.RWMutex
}

// NewManager creates a Manager for pluginDir. A nil logger uses the default.
func NewManager(pluginDir string, exec *Executor, logger *log.Logger) *Manager {
	if exec == nil {
		exec = NewExecutor(0)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		pluginDir: pluginDir,
		plugins:   make(map[string]*Plugin),
		exec:      exec,
		logger:    logger,
	}
}

// Discover loads every subdirectory of the plugin directory that holds a
// plugin.json manifest. A missing directory means no plugins.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plugins = make(map[string]*Plugin)

	info, err := os.Stat(m.pluginDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginPath := filepath.Join(m.pluginDir, entry.Name())
		manifestPath := filepath.Join(pluginPath, "plugin.json")

		if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
			continue
		}

		manifestData, err := os.ReadFile(manifestPath)
		if err != nil {
			m.logger.Warn("skipping plugin", "dir", entry.Name(), "err", err)
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(manifestData, &manifest); err != nil {
			m.logger.Warn("skipping plugin with invalid manifest", "dir", entry.Name(), "err", err)
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			m.logger.Warn("skipping plugin without name or executable", "dir", entry.Name())
			continue
		}

		executablePath := filepath.Join(pluginPath, manifest.Executable)

		plugin := &Plugin{
			Manifest:   manifest,
			Path:       pluginPath,
			Executable: executablePath,
		}

		m.plugins[manifest.Name] = plugin
		m.logger.Debug("plugin discovered", "name", manifest.Name, "events", manifest.Events)
	}

	return nil
}

// Get returns a plugin by name.
// Returns ErrPluginNotFound if the plugin does not exist.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}

	return plugin, nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, plugin := range m.plugins {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})

	return plugins
}

// Result is the outcome of one plugin run during Dispatch.
type Result struct {
	Plugin   string
	Response *Response
	Err      error
}

// Dispatch runs every plugin subscribed to req.Event, one after another in
// name order. A failing plugin is logged and does not stop the others.
func (m *Manager) Dispatch(ctx context.Context, req Request) []Result {
	var results []Result
	for _, p := range m.List() {
		if !p.Manifest.Handles(req.Event) {
			continue
		}

		r := req
		resp, err := m.exec.Execute(ctx, p, &r)
		if err == nil && !resp.Success {
			err = fmt.Errorf("plugin %s: %s", p.Manifest.Name, resp.Error)
		}
		if err != nil {
			m.logger.Warn("plugin failed", "plugin", p.Manifest.Name, "event", req.Event, "err", err)
		} else {
			m.logger.Info("plugin ran", "plugin", p.Manifest.Name, "event", req.Event)
		}
		results = append(results, Result{Plugin: p.Manifest.Name, Response: resp, Err: err})
	}
	return results
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
