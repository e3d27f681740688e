package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environment variables that override file settings
const (
	EnvConfigPath = "MAILFLOW_CONFIG"
	EnvAPIURL     = "MAILFLOW_API_URL"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid configuration")

// APIConfig points the client at the MailFlow backend
type APIConfig struct {
	BaseURL string `json:"base_url"`
	Timeout string `json:"timeout"`
}

// StoreConfig controls the local preference database
type StoreConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"` // empty = ~/.config/mailflow/mailflow.db
}

// MetricsConfig controls the optional Prometheus endpoint
type MetricsConfig struct {
	Enabled    bool   `json:"enabled"`
	ListenAddr string `json:"listen_addr"`
}

// Config holds all configuration for MailFlow
type Config struct {
	API APIConfig `json:"api"`

	// Keyboard shortcuts
	Keys KeyBindings `json:"keys"`

	// Layout configuration
	Layout LayoutConfig `json:"layout"`

	// Logging
	LogFile  string `json:"log_file"`
	LogLevel string `json:"log_level"`

	Store   StoreConfig   `json:"store"`
	Metrics MetricsConfig `json:"metrics"`
}

// LayoutConfig defines layout-specific configuration
type LayoutConfig struct {
	ShowBorders    bool   `json:"show_borders"`
	CurrentTheme   string `json:"current_theme"`    // Active theme name (e.g., "mailflow-dark")
	CustomThemeDir string `json:"custom_theme_dir"` // Custom themes directory (empty = default)
	MarkdownStyle  string `json:"markdown_style"`   // glamour style for chat replies: dark, light, notty
}

// KeyBindings defines keyboard shortcuts for the TUI
type KeyBindings struct {
	// Pages
	Inbox   string `json:"inbox"`
	Drafts  string `json:"drafts"`
	Prompts string `json:"prompts"`
	Chat    string `json:"chat"`
	Stats   string `json:"stats"`

	// Collections
	Refresh       string `json:"refresh"`
	Search        string `json:"search"`
	Priority      string `json:"priority"` // Cycle the priority filter
	ProcessAll    string `json:"process_all"`
	GenerateDraft string `json:"generate_draft"`
	Create        string `json:"create"`
	Edit          string `json:"edit"`
	Delete        string `json:"delete"`
	ImportPrompt  string `json:"import_prompt"`
	ExportPrompt  string `json:"export_prompt"`

	// Saved filters
	SaveFilter   string `json:"save_filter"`
	SavedFilters string `json:"saved_filters"`

	ExportChat string `json:"export_chat"`
	Help       string `json:"help"`
	Quit       string `json:"quit"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
		},
		Keys:     DefaultKeyBindings(),
		Layout:   DefaultLayoutConfig(),
		LogFile:  DefaultLogPath(),
		LogLevel: "info",
		Store: StoreConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9464",
		},
	}
}

// DefaultKeyBindings returns default keyboard shortcuts
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		Inbox:   "1",
		Drafts:  "2",
		Prompts: "3",
		Chat:    "4",
		Stats:   "5",

		Refresh:       "R",
		Search:        "/",
		Priority:      "p",
		ProcessAll:    "P",
		GenerateDraft: "g",
		Create:        "c",
		Edit:          "e",
		Delete:        "d",
		ImportPrompt:  "i",
		ExportPrompt:  "x",

		SaveFilter:   "S",
		SavedFilters: "F",

		ExportChat: "X",
		Help:       "?",
		Quit:       "q",
	}
}

// DefaultLayoutConfig returns default layout configuration
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		ShowBorders:    true,
		CurrentTheme:   "mailflow-dark",
		CustomThemeDir: "",
		MarkdownStyle:  "dark",
	}
}

// LoadConfig loads configuration from file over the defaults. A missing file is
// not an error; a malformed one is.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}

	return cfg, nil
}

// ApplyEnv applies environment overrides. lookup is os.LookupEnv outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && strings.TrimSpace(v) != "" {
		c.API.BaseURL = strings.TrimSpace(v)
	}
}

// Validate checks the settings the client cannot run without
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: api.base_url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: api.base_url must use http or https, got %q", ErrInvalidConfig, c.API.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: api.base_url has no host", ErrInvalidConfig)
	}
	if c.API.Timeout != "" {
		if d, err := time.ParseDuration(c.API.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("%w: api.timeout %q", ErrInvalidConfig, c.API.Timeout)
		}
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.ListenAddr) == "" {
		return fmt.Errorf("%w: metrics.listen_addr is required when metrics are enabled", ErrInvalidConfig)
	}
	return nil
}

// GetAPITimeout returns the parsed api.timeout, or 0 (no timeout) when unset or invalid
func (c *Config) GetAPITimeout() time.Duration {
	if c.API.Timeout != "" {
		if d, err := time.ParseDuration(c.API.Timeout); err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// DefaultConfigDir returns ~/.config/mailflow
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mailflow")
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.json")
}

// DefaultStorePath returns the default preference database path
func DefaultStorePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "mailflow.db")
}

// DefaultLogPath returns the default log file path, next to the config file
func DefaultLogPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "mailflow.log")
}

// LogPath resolves the log file location. An empty log_file disables logging.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.LogFile) == "" {
		return ""
	}
	return expandHome(c.LogFile)
}

// DefaultThemeDir returns the default themes directory
func DefaultThemeDir() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "themes")
}

// StorePath resolves the preference database location
func (c *Config) StorePath() string {
	if strings.TrimSpace(c.Store.Path) != "" {
		return expandHome(c.Store.Path)
	}
	return DefaultStorePath()
}

// ThemeDir resolves the themes directory
func (c *Config) ThemeDir() string {
	if strings.TrimSpace(c.Layout.CustomThemeDir) != "" {
		return expandHome(c.Layout.CustomThemeDir)
	}
	return DefaultThemeDir()
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
