// Package config loads settings from flags, TODO_* environment variables, a
// YAML config file and built-in defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName   = "todo"
	envPrefix = "TODO"
)

// Config holds all configuration options.
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Web     WebConfig     `mapstructure:"web"`
	WebTUI  WebTUIConfig  `mapstructure:"webtui"`
	UI      UIConfig      `mapstructure:"ui"`
	State   StateConfig   `mapstructure:"state"`
	Log     LogConfig     `mapstructure:"log"`
}

// BackendConfig locates the task server.
type BackendConfig struct {
	URL string `mapstructure:"url"`
	// Timeout bounds each request. Zero waits indefinitely.
	Timeout time.Duration `mapstructure:"timeout"`
}

// WebConfig controls the browser front end.
type WebConfig struct {
	Addr string `mapstructure:"addr"`
	// Reload is "refetch" (rebuild the table from the server after a change)
	// or "page" (ask the browser to reload).
	Reload      string `mapstructure:"reload"`
	DatastarURL string `mapstructure:"datastar_url"`
}

type WebTUIConfig struct {
	Addr string `mapstructure:"addr"`
}

// UIConfig holds settings shared by every front end.
type UIConfig struct {
	DefaultSort    string        `mapstructure:"default_sort"`
	MessageVisible time.Duration `mapstructure:"message_visible"`
	MessageFade    time.Duration `mapstructure:"message_fade"`
}

// StateConfig locates the view-state database. ":memory:" keeps nothing
// between runs.
type StateConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File receives log output. Empty means stderr for commands and nowhere
	// for the terminal UI.
	File string `mapstructure:"file"`
}

// DefaultDatastarURL is the client bundle the web front end loads.
const DefaultDatastarURL = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{URL: "http://127.0.0.1:5000"},
		Web: WebConfig{
			Addr:        "127.0.0.1:3335",
			Reload:      "refetch",
			DatastarURL: DefaultDatastarURL,
		},
		WebTUI: WebTUIConfig{Addr: "127.0.0.1:3334"},
		UI: UIConfig{
			DefaultSort:    "asc",
			MessageVisible: 5 * time.Second,
			MessageFade:    300 * time.Millisecond,
		},
		State: StateConfig{Path: filepath.Join(Dir(), "state.sqlite")},
		Log:   LogConfig{Level: "info"},
	}
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers every key so that environment variables and
// Unmarshal see it.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("backend.url", d.Backend.URL)
	v.SetDefault("backend.timeout", d.Backend.Timeout)

	v.SetDefault("web.addr", d.Web.Addr)
	v.SetDefault("web.reload", d.Web.Reload)
	v.SetDefault("web.datastar_url", d.Web.DatastarURL)

	v.SetDefault("webtui.addr", d.WebTUI.Addr)

	v.SetDefault("ui.default_sort", d.UI.DefaultSort)
	v.SetDefault("ui.message_visible", d.UI.MessageVisible)
	v.SetDefault("ui.message_fade", d.UI.MessageFade)

	v.SetDefault("state.path", d.State.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// ReadFile reads an explicit config file, or searches the default locations
// when file is empty. A missing file in the default locations is not an error.
func ReadFile(v *viper.Viper, file string) error {
	if strings.TrimSpace(file) != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		return nil
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	c.Web.Reload = strings.ToLower(strings.TrimSpace(c.Web.Reload))
	c.UI.DefaultSort = strings.ToLower(strings.TrimSpace(c.UI.DefaultSort))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.State.Path = strings.TrimSpace(c.State.Path)
}

// Dir returns the path to the user's config directory.
func Dir() string {
	if dir := os.Getenv("TODO_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".config", appName)
}

// File returns the path of the default config file.
func File() string {
	return filepath.Join(Dir(), "config.yaml")
}
