package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tailscale/hujson"

	"github.com/ayusman/mimic/internal/log"
)

// ManifestFile is the name of the manifest inside a plugin directory.
const ManifestFile = "plugin.json"

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrUnsupportedFormat is returned when no exporter writes a format.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	errIncompleteManifest = errors.New("manifest needs a name and an executable")
)

// Manager discovers exporters under a directory.
type Manager struct {
	dir     string
	mu      sync.RWMutex
	plugins map[string]*Plugin
}

func NewManager(pluginDir string) *Manager {
	return &Manager{dir: pluginDir, plugins: map[string]*Plugin{}}
}

// loadPlugin reads the manifest in dir. Manifests may carry comments and
// trailing commas.
func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	var m Manifest
	if err := json.Unmarshal(std, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ManifestFile, err)
	}
	if m.Name == "" || m.Executable == "" {
		return nil, errIncompleteManifest
	}
	return &Plugin{Manifest: m, Path: dir, Executable: filepath.Join(dir, m.Executable)}, nil
}

// Discover rescans the plugin directory. Each subdirectory holding a
// valid manifest is one exporter; anything else is skipped. A missing
// directory yields no plugins.
func (m *Manager) Discover() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	found := make(map[string]*Plugin, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.dir, entry.Name())
		p, err := loadPlugin(dir)
		switch {
		case errors.Is(err, os.ErrNotExist):
			continue
		case err != nil:
			log.Warn("skipping plugin", "dir", dir, "err", err)
			continue
		}
		if prev, dup := found[p.Manifest.Name]; dup {
			log.Warn("duplicate plugin name", "name", p.Manifest.Name, "kept", prev.Path, "skipped", dir)
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()

	log.Info("plugins discovered", "dir", m.dir, "count", len(found))
	return nil
}

func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.plugins[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}

// ForFormat returns the first plugin, by name, that writes format.
func (m *Manager) ForFormat(format string) (*Plugin, error) {
	for _, p := range m.List() {
		if p.Manifest.Supports(format) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// List returns every discovered plugin sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	m.mu.RUnlock()

	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})
	return plugins
}

// PluginDir returns the directory Discover scans.
func (m *Manager) PluginDir() string { return m.dir }
