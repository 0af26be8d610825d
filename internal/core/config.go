// Package core holds the services that sit between the storage layer and the
// outer surfaces: configuration, task and dependency mutation with cycle and
// start guards, snapshot-based graph queries, and the recompute loop.
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/taskgraph/internal/graph"
	"github.com/valter-silva-au/taskgraph/internal/logging"
	"github.com/valter-silva-au/taskgraph/pkg/models"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the workspace configuration file. Viper also
// accepts it with a .yaml extension.
const ConfigFileName = ".tgconfig"

// ConfigurationManager loads and validates the workspace configuration.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
	// WriteDefaultConfig creates .tgconfig with default values. It fails if
	// the file already exists.
	WriteDefaultConfig() (string, error)
}

type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager reading .tgconfig
// from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns the configuration used when .tgconfig is absent.
func DefaultGlobalConfig() *models.GlobalConfig {
	layout := graph.DefaultLayoutOptions()
	return &models.GlobalConfig{
		StoreDir: ".taskgraph",
		Layout: models.LayoutConfig{
			ColumnWidth: layout.ColumnWidth,
			RowHeight:   layout.RowHeight,
			OriginX:     layout.OriginX,
			OriginY:     layout.OriginY,
		},
		MaxDepth:        graph.DefaultMaxDepth,
		GuardMode:       models.GuardEnforce,
		Log:             models.LogConfig{Level: logging.LevelInfo},
		WatchDebounceMs: 200,
	}
}

func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("store_dir", cfg.StoreDir)
	v.SetDefault("layout.column_width", cfg.Layout.ColumnWidth)
	v.SetDefault("layout.row_height", cfg.Layout.RowHeight)
	v.SetDefault("layout.origin_x", cfg.Layout.OriginX)
	v.SetDefault("layout.origin_y", cfg.Layout.OriginY)
	v.SetDefault("max_depth", cfg.MaxDepth)
	v.SetDefault("guard_mode", string(cfg.GuardMode))
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("watch_debounce_ms", cfg.WatchDebounceMs)
	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)
	v.SetDefault("notifications.slack.webhook_url", cfg.Notifications.Slack.WebhookURL)

	v.SetEnvPrefix("TG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ConfigFileName, err)
	}
	return cfg, nil
}

// ValidateConfig reports every invalid field at once.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string
	if strings.TrimSpace(cfg.StoreDir) == "" {
		errs = append(errs, "store_dir must not be empty")
	}
	if cfg.Layout.ColumnWidth <= 0 {
		errs = append(errs, fmt.Sprintf("layout.column_width must be positive, got %g", cfg.Layout.ColumnWidth))
	}
	if cfg.Layout.RowHeight <= 0 {
		errs = append(errs, fmt.Sprintf("layout.row_height must be positive, got %g", cfg.Layout.RowHeight))
	}
	if cfg.MaxDepth < 1 {
		errs = append(errs, fmt.Sprintf("max_depth must be at least 1, got %d", cfg.MaxDepth))
	}
	switch cfg.GuardMode {
	case models.GuardEnforce, models.GuardWarn, models.GuardOff:
	default:
		errs = append(errs, fmt.Sprintf("guard_mode %q is invalid, must be one of: enforce, warn, off", cfg.GuardMode))
	}
	if !logging.ValidLevel(cfg.Log.Level) {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid, must be one of: debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.WatchDebounceMs < 0 {
		errs = append(errs, fmt.Sprintf("watch_debounce_ms must be non-negative, got %d", cfg.WatchDebounceMs))
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url is required when notifications are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (cm *viperConfigManager) WriteDefaultConfig() (string, error) {
	path := filepath.Join(cm.basePath, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("writing default config: %s already exists", path)
	}
	data, err := yaml.Marshal(DefaultGlobalConfig())
	if err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}
	if err := os.MkdirAll(cm.basePath, 0o750); err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}
	return path, nil
}

// LayoutOptions converts the configured spacing into projector options.
func LayoutOptions(cfg *models.GlobalConfig) graph.LayoutOptions {
	return graph.LayoutOptions{
		ColumnWidth: cfg.Layout.ColumnWidth,
		RowHeight:   cfg.Layout.RowHeight,
		OriginX:     cfg.Layout.OriginX,
		OriginY:     cfg.Layout.OriginY,
	}
}
