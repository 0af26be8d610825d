package models

// GuardMode controls how a move to in_progress reacts when the task still has
// unmet blocking dependencies.
type GuardMode string

const (
	GuardEnforce GuardMode = "enforce"
	GuardWarn    GuardMode = "warn"
	GuardOff     GuardMode = "off"
)

// LayoutConfig holds the spacing used by the layout projector.
type LayoutConfig struct {
	ColumnWidth float64 `yaml:"column_width" mapstructure:"column_width"`
	RowHeight   float64 `yaml:"row_height" mapstructure:"row_height"`
	OriginX     float64 `yaml:"origin_x" mapstructure:"origin_x"`
	OriginY     float64 `yaml:"origin_y" mapstructure:"origin_y"`
}

// LogConfig holds structured logger settings.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file,omitempty" mapstructure:"file"`
}

// SlackConfig holds the Slack webhook used for alert notifications.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig controls outbound alert notifications.
type NotificationConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// GlobalConfig holds system-wide settings read from .tgconfig via Viper.
type GlobalConfig struct {
	StoreDir        string             `yaml:"store_dir" mapstructure:"store_dir"`
	Layout          LayoutConfig       `yaml:"layout" mapstructure:"layout"`
	MaxDepth        int                `yaml:"max_depth" mapstructure:"max_depth"`
	GuardMode       GuardMode          `yaml:"guard_mode" mapstructure:"guard_mode"`
	Log             LogConfig          `yaml:"log" mapstructure:"log"`
	WatchDebounceMs int                `yaml:"watch_debounce_ms" mapstructure:"watch_debounce_ms"`
	Notifications   NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}
