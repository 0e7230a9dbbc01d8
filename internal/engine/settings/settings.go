// Package settings loads and holds the compiler/matcher runtime
// configuration document, grounded on the teacher's EGConfigManager
// shape (strict YAML load, an atomically-swappable pointer for safe
// concurrent reads, a small set of post-load defaults) adapted to this
// domain's EngineConfig.
package settings

import (
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/edgecomet/blockengine/internal/common/configtypes"
	"github.com/edgecomet/blockengine/internal/common/yamlutil"
)

// Manager holds the loaded EngineConfig behind an atomic pointer so
// readers never observe a partially-updated document.
type Manager struct {
	cfg    atomic.Pointer[configtypes.EngineConfig]
	path   string
	logger *zap.Logger
}

var _ configtypes.ConfigManager = (*Manager)(nil)

// Load reads and strictly parses the YAML document at path, applies
// defaults, and returns a ready Manager.
func Load(path string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{path: path, logger: logger}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload re-reads the configuration file from disk, replacing the
// currently-held document on success. A failed reload leaves the
// previous configuration in place.
func (m *Manager) Reload() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", m.path, err)
	}

	var cfg configtypes.EngineConfig
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return fmt.Errorf("parse config %q: %w", m.path, err)
	}

	applyDefaults(&cfg)

	if cfg.Metrics.Enabled {
		if err := configtypes.ValidateListenAddress(cfg.Metrics.Listen); err != nil {
			return fmt.Errorf("metrics.listen: %w", err)
		}
	}

	m.cfg.Store(&cfg)
	m.logger.Info("engine config loaded",
		zap.String("path", m.path),
		zap.Int("psl_overrides", len(cfg.Engine.PSLOverrides)),
		zap.Int("trusted_site_bootstrap", len(cfg.Engine.TrustedSiteBootstrap)),
	)
	return nil
}

// GetConfig returns the currently-loaded configuration document.
func (m *Manager) GetConfig() *configtypes.EngineConfig {
	return m.cfg.Load()
}

func applyDefaults(cfg *configtypes.EngineConfig) {
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = configtypes.LogFormatConsole
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = configtypes.LogFormatText
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "blockengine"
	}
	if len(cfg.Engine.DefaultSchemes) == 0 {
		cfg.Engine.DefaultSchemes = []string{"http", "https"}
	}
	if cfg.Engine.RemoveparamTTL == 0 {
		cfg.Engine.RemoveparamTTL = configtypes.Duration(0)
	}
}
