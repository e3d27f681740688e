package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultThemeName is the theme shipped in code
const DefaultThemeName = "mailflow-dark"

// ThemeLoader handles loading and saving YAML themes
type ThemeLoader struct {
	themesDir string
}

// themeFile is the on-disk layout of a theme
type themeFile struct {
	MailFlow *ColorsConfig `yaml:"mailflow"`
}

// NewThemeLoader creates a new theme loader
func NewThemeLoader(themesDir string) *ThemeLoader {
	return &ThemeLoader{
		themesDir: themesDir,
	}
}

// Load returns the named theme. The built-in theme is used when name is empty,
// names the built-in theme without a file overriding it, or cannot be found.
// Missing colors in a file fall back to the built-in ones.
func (tl *ThemeLoader) Load(name string) (*ColorsConfig, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".yaml")
	if name == "" {
		return DefaultColors(), nil
	}

	theme, err := tl.LoadThemeFromFile(name + ".yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultColors(), nil
		}
		return nil, err
	}
	return theme, nil
}

// LoadThemeFromFile loads a theme from a YAML file in the themes directory or
// at an absolute path
func (tl *ThemeLoader) LoadThemeFromFile(filename string) (*ColorsConfig, error) {
	path := filepath.Join(tl.themesDir, filename)
	if !fileExists(path) {
		path = filename
		if !filepath.IsAbs(path) || !fileExists(path) {
			return nil, fmt.Errorf("theme file not found: %s: %w", filename, os.ErrNotExist)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}

	var raw struct {
		MailFlow *yaml.Node `yaml:"mailflow"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}
	if raw.MailFlow == nil {
		return nil, fmt.Errorf("invalid theme file: missing mailflow section")
	}
	theme := DefaultColors()
	if err := raw.MailFlow.Decode(theme); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}
	if err := ValidateTheme(theme); err != nil {
		return nil, err
	}

	return theme, nil
}

// ListAvailableThemes returns the theme names found on disk plus the built-in one
func (tl *ThemeLoader) ListAvailableThemes() ([]string, error) {
	themes := []string{DefaultThemeName}

	entries, err := os.ReadDir(tl.themesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return themes, nil
		}
		return nil, fmt.Errorf("failed to read themes directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		if name != DefaultThemeName {
			themes = append(themes, name)
		}
	}
	sort.Strings(themes[1:])

	return themes, nil
}

// SaveThemeToFile saves a theme configuration to a YAML file
func (tl *ThemeLoader) SaveThemeToFile(theme *ColorsConfig, filename string) error {
	if err := os.MkdirAll(tl.themesDir, 0755); err != nil {
		return fmt.Errorf("failed to create themes directory: %w", err)
	}

	data, err := yaml.Marshal(themeFile{MailFlow: theme})
	if err != nil {
		return fmt.Errorf("failed to marshal theme: %w", err)
	}

	if err := os.WriteFile(filepath.Join(tl.themesDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write theme file: %w", err)
	}

	return nil
}

// ValidateTheme checks the colors every page depends on
func ValidateTheme(theme *ColorsConfig) error {
	if theme == nil {
		return fmt.Errorf("theme is nil")
	}

	required := []struct {
		name  string
		color Color
	}{
		{"body.fgColor", theme.Body.FgColor},
		{"priority.high", theme.Priority.High},
		{"status.error", theme.Status.Error},
	}
	for _, req := range required {
		if req.color == "" {
			return fmt.Errorf("missing required color: %s", req.name)
		}
	}

	return nil
}

// Helper function to check if file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
