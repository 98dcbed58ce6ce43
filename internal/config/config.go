package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const appName = "diffstream"

type Config struct {
	Edit        EditConfig        `mapstructure:"edit" yaml:"edit"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	Theme       ThemeConfig       `mapstructure:"theme" yaml:"theme,omitempty"`
}

// EditConfig tunes the reconstruction engine and the apply command.
type EditConfig struct {
	MaxPendingLines int  `mapstructure:"max_pending_lines" yaml:"max_pending_lines"` // Recovery buffer cap
	ChunkSize       int  `mapstructure:"chunk_size" yaml:"chunk_size"`               // Bytes read per stream chunk
	ShowDiff        bool `mapstructure:"show_diff" yaml:"show_diff"`                 // Print a unified diff after applying
	Backup          bool `mapstructure:"backup" yaml:"backup"`                       // Keep <file>.orig before overwriting

	// Glob patterns (doublestar syntax) for files that must never be written
	ProtectedPaths []string `mapstructure:"protected_paths" yaml:"protected_paths,omitempty"`
}

// DiagnosticsConfig configures diagnostic data collection
type DiagnosticsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`   // Write a report when reconstruction fails
	Dir     string `mapstructure:"dir" yaml:"dir,omitempty"` // Override default directory
}

// ThemeConfig allows customization of UI colors
// Colors can be ANSI color numbers (0-255) or hex codes (#RRGGBB)
type ThemeConfig struct {
	Primary   string `mapstructure:"primary" yaml:"primary,omitempty"`     // main accent (file names, highlights)
	Secondary string `mapstructure:"secondary" yaml:"secondary,omitempty"` // secondary accent (headers, borders)
	Success   string `mapstructure:"success" yaml:"success,omitempty"`     // additions, success states
	Error     string `mapstructure:"error" yaml:"error,omitempty"`         // deletions, error states
	Warning   string `mapstructure:"warning" yaml:"warning,omitempty"`     // recovered markers
	Muted     string `mapstructure:"muted" yaml:"muted,omitempty"`         // dimmed text
	Text      string `mapstructure:"text" yaml:"text,omitempty"`           // primary text
	Spinner   string `mapstructure:"spinner" yaml:"spinner,omitempty"`     // progress indicator
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		Edit: EditConfig{
			MaxPendingLines: 256,
			ChunkSize:       4096,
			ShowDiff:        true,
		},
	}
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	def := Defaults()
	v.SetDefault("edit.max_pending_lines", def.Edit.MaxPendingLines)
	v.SetDefault("edit.chunk_size", def.Edit.ChunkSize)
	v.SetDefault("edit.show_diff", def.Edit.ShowDiff)
	v.SetDefault("edit.backup", def.Edit.Backup)
	v.SetDefault("edit.protected_paths", []string{})
	v.SetDefault("diagnostics.enabled", false)
	v.SetDefault("diagnostics.dir", "")

	// Unmarshal only consults the environment for keys viper already knows
	v.SetDefault("theme.primary", def.Theme.Primary)
	v.SetDefault("theme.secondary", def.Theme.Secondary)
	v.SetDefault("theme.success", def.Theme.Success)
	v.SetDefault("theme.error", def.Theme.Error)
	v.SetDefault("theme.warning", def.Theme.Warning)
	v.SetDefault("theme.muted", def.Theme.Muted)
	v.SetDefault("theme.text", def.Theme.Text)
	v.SetDefault("theme.spinner", def.Theme.Spinner)

	v.SetEnvPrefix("DIFFSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - won't error if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Diagnostics.Dir = expandEnv(cfg.Diagnostics.Dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Edit.MaxPendingLines < 1 {
		return fmt.Errorf("edit.max_pending_lines must be at least 1, got %d", c.Edit.MaxPendingLines)
	}
	if c.Edit.ChunkSize < 1 {
		return fmt.Errorf("edit.chunk_size must be at least 1, got %d", c.Edit.ChunkSize)
	}
	for _, pattern := range c.Edit.ProtectedPaths {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("edit.protected_paths: invalid pattern %q", pattern)
		}
	}
	return nil
}

// ApplyOverrides applies command-line flag values on top of the loaded config.
// Zero values leave the config untouched.
func (c *Config) ApplyOverrides(chunkSize, maxPendingLines int) {
	if chunkSize > 0 {
		c.Edit.ChunkSize = chunkSize
	}
	if maxPendingLines > 0 {
		c.Edit.MaxPendingLines = maxPendingLines
	}
}

// IsProtected reports whether path matches one of edit.protected_paths.
// Patterns are tried against the path relative to the working directory and
// against the bare file name.
func (c *Config) IsProtected(path string) bool {
	if len(c.Edit.ProtectedPaths) == 0 {
		return false
	}
	candidates := []string{filepath.ToSlash(filepath.Base(path))}
	if abs, err := filepath.Abs(path); err == nil {
		if wd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(wd, abs); err == nil && !strings.HasPrefix(rel, "..") {
				candidates = append(candidates, filepath.ToSlash(rel))
			}
		}
	}

	for _, pattern := range c.Edit.ProtectedPaths {
		for _, candidate := range candidates {
			if ok, _ := doublestar.Match(pattern, candidate); ok {
				return true
			}
		}
	}
	return false
}

// DiagnosticsDir returns the configured diagnostics directory or the default.
func (c *Config) DiagnosticsDir() string {
	if c.Diagnostics.Dir != "" {
		return c.Diagnostics.Dir
	}
	return GetDiagnosticsDir()
}

// expandEnv expands a value that is entirely an environment reference
// ($VAR or ${VAR}); anything else is returned unchanged.
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

func GetDiagnosticsDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appName, "diagnostics")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appName+"-diagnostics") // fallback
	}
	return filepath.Join(homeDir, ".local", "share", appName, "diagnostics")
}

func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes cfg to the config path, replacing any existing file.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Marshal renders cfg as YAML with two-space indentation.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
