// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration. Values come from, in
// increasing precedence: built-in defaults, config.yaml, STRIDR_* environment
// variables, and command-line flags bound through viper.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File sink, rotated by lumberjack. Disabled when LogFile is empty.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls the Chrome instance and the session layer.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// PostLoadWait is the quiet period required after navigation before the
	// page counts as stable.
	PostLoadWait time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	IgnoreTLS    bool          `mapstructure:"ignore_tls" yaml:"ignore_tls"`
}

// EngineConfig controls the step interpreter and the interaction executor.
// The named timeouts back the adaptive per-step timeout table; the attach and
// action timeouts drive the escalation passes inside the executor.
type EngineConfig struct {
	BaseStepTimeout     time.Duration `mapstructure:"base_step_timeout" yaml:"base_step_timeout"`
	SemanticStepTimeout time.Duration `mapstructure:"semantic_step_timeout" yaml:"semantic_step_timeout"`
	SignInTimeout       time.Duration `mapstructure:"sign_in_timeout" yaml:"sign_in_timeout"`
	MenuTimeout         time.Duration `mapstructure:"menu_timeout" yaml:"menu_timeout"`
	DropdownTimeout     time.Duration `mapstructure:"dropdown_timeout" yaml:"dropdown_timeout"`
	SettingsTimeout     time.Duration `mapstructure:"settings_timeout" yaml:"settings_timeout"`
	CreationTimeout     time.Duration `mapstructure:"creation_timeout" yaml:"creation_timeout"`
	WaitFloor           time.Duration `mapstructure:"wait_floor" yaml:"wait_floor"`

	AttachTimeout      time.Duration `mapstructure:"attach_timeout" yaml:"attach_timeout"`
	ActionTimeout      time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	RetryVisibleWait   time.Duration `mapstructure:"retry_visible_wait" yaml:"retry_visible_wait"`
	RetryActionTimeout time.Duration `mapstructure:"retry_action_timeout" yaml:"retry_action_timeout"`
	// ForcedClickLimit bounds how many candidates the forced-click pass will
	// attempt before giving up.
	ForcedClickLimit int `mapstructure:"forced_click_limit" yaml:"forced_click_limit"`
	ScrollIncrements int `mapstructure:"scroll_increments" yaml:"scroll_increments"`

	NetworkIdleQuiet   time.Duration `mapstructure:"network_idle_quiet" yaml:"network_idle_quiet"`
	NetworkIdleTimeout time.Duration `mapstructure:"network_idle_timeout" yaml:"network_idle_timeout"`
}

// HistoryConfig controls the local sqlite run-history store.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// SetDefaults registers every default value on the given viper instance.
// Kept separate from Load so tests can build configs without touching disk.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "stridr")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1440)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.navigation_timeout", 45*time.Second)
	v.SetDefault("browser.post_load_wait", 1200*time.Millisecond)

	v.SetDefault("engine.base_step_timeout", 10*time.Second)
	v.SetDefault("engine.semantic_step_timeout", 60*time.Second)
	v.SetDefault("engine.sign_in_timeout", 30*time.Second)
	v.SetDefault("engine.menu_timeout", 30*time.Second)
	v.SetDefault("engine.dropdown_timeout", 20*time.Second)
	v.SetDefault("engine.settings_timeout", 20*time.Second)
	v.SetDefault("engine.creation_timeout", 15*time.Second)
	v.SetDefault("engine.wait_floor", time.Second)
	v.SetDefault("engine.attach_timeout", 400*time.Millisecond)
	v.SetDefault("engine.action_timeout", 2*time.Second)
	v.SetDefault("engine.retry_visible_wait", 2500*time.Millisecond)
	v.SetDefault("engine.retry_action_timeout", 5*time.Second)
	v.SetDefault("engine.forced_click_limit", 8)
	v.SetDefault("engine.scroll_increments", 5)
	v.SetDefault("engine.network_idle_quiet", 500*time.Millisecond)
	v.SetDefault("engine.network_idle_timeout", 4*time.Second)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "stridr-history.db")
}

// Load reads configuration from the given file (or ./config.yaml when file is
// empty), applies STRIDR_* environment overrides, and unmarshals the result.
// A missing config file is not an error; defaults apply.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("STRIDR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
