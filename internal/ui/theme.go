package ui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/samsaffron/diffstream/internal/config"
)

// Theme defines the color palette for the UI
type Theme struct {
	Primary   lipgloss.Color // file names, highlights
	Secondary lipgloss.Color // headers, borders

	Success lipgloss.Color // additions, applied blocks
	Error   lipgloss.Color // deletions, failures
	Warning lipgloss.Color // recovered markers, fuzzy matches
	Muted   lipgloss.Color // line numbers, hunk separators
	Text    lipgloss.Color
	Spinner lipgloss.Color
	Border  lipgloss.Color

	// Diff line backgrounds, true color
	DiffAddBg    [3]int
	DiffRemoveBg [3]int
}

// DefaultTheme returns the default color theme (gruvbox)
func DefaultTheme() *Theme {
	return &Theme{
		Primary:      lipgloss.Color("#b8bb26"), // gruvbox green
		Secondary:    lipgloss.Color("#83a598"), // gruvbox aqua
		Success:      lipgloss.Color("#b8bb26"),
		Error:        lipgloss.Color("#fb4934"),
		Warning:      lipgloss.Color("#fabd2f"),
		Muted:        lipgloss.Color("#928374"),
		Text:         lipgloss.Color("#ebdbb2"),
		Spinner:      lipgloss.Color("#d3869b"),
		Border:       lipgloss.Color("#83a598"),
		DiffAddBg:    [3]int{30, 60, 30},
		DiffRemoveBg: [3]int{60, 30, 30},
	}
}

// ThemeFromConfig creates a theme with config overrides applied
func ThemeFromConfig(cfg config.ThemeConfig) *Theme {
	theme := DefaultTheme()

	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&theme.Primary, cfg.Primary)
	set(&theme.Secondary, cfg.Secondary)
	set(&theme.Border, cfg.Secondary) // border follows secondary
	set(&theme.Success, cfg.Success)
	set(&theme.Error, cfg.Error)
	set(&theme.Warning, cfg.Warning)
	set(&theme.Muted, cfg.Muted)
	set(&theme.Text, cfg.Text)
	set(&theme.Spinner, cfg.Spinner)
	return theme
}

var currentTheme = DefaultTheme()

// GetTheme returns the current active theme
func GetTheme() *Theme {
	return currentTheme
}

// InitTheme initializes the theme from config
func InitTheme(cfg config.ThemeConfig) {
	currentTheme = ThemeFromConfig(cfg)
	rendererCache.Clear()
}

// ThemePreset represents a predefined color theme
type ThemePreset struct {
	Name        string
	Description string
	Config      config.ThemeConfig
}

// PresetThemes contains all predefined themes
var PresetThemes = map[string]ThemePreset{
	"gruvbox": {
		Name:        "gruvbox",
		Description: "Retro groove color scheme (default)",
		Config: config.ThemeConfig{
			Primary:   "#b8bb26",
			Secondary: "#83a598",
			Success:   "#b8bb26",
			Error:     "#fb4934",
			Warning:   "#fabd2f",
			Muted:     "#928374",
			Text:      "#ebdbb2",
			Spinner:   "#d3869b",
		},
	},
	"dracula": {
		Name:        "dracula",
		Description: "Dark theme with purple accents",
		Config: config.ThemeConfig{
			Primary:   "#bd93f9",
			Secondary: "#8be9fd",
			Success:   "#50fa7b",
			Error:     "#ff5555",
			Warning:   "#f1fa8c",
			Muted:     "#6272a4",
			Text:      "#f8f8f2",
			Spinner:   "#ff79c6",
		},
	},
	"nord": {
		Name:        "nord",
		Description: "Arctic, north-bluish palette",
		Config: config.ThemeConfig{
			Primary:   "#88c0d0",
			Secondary: "#81a1c1",
			Success:   "#a3be8c",
			Error:     "#bf616a",
			Warning:   "#ebcb8b",
			Muted:     "#4c566a",
			Text:      "#eceff4",
			Spinner:   "#b48ead",
		},
	},
	"classic": {
		Name:        "classic",
		Description: "256-color palette for older terminals",
		Config: config.ThemeConfig{
			Primary:   "10",
			Secondary: "4",
			Success:   "10",
			Error:     "9",
			Warning:   "11",
			Muted:     "245",
			Text:      "15",
			Spinner:   "205",
		},
	},
}

// PresetThemeNames returns preset names with the default first.
func PresetThemeNames() []string {
	names := make([]string, 0, len(PresetThemes))
	for name := range PresetThemes {
		if name != "gruvbox" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{"gruvbox"}, names...)
}

// GetPresetTheme returns a preset by name, or nil if not found
func GetPresetTheme(name string) *ThemePreset {
	if preset, ok := PresetThemes[name]; ok {
		return &preset
	}
	return nil
}

// MatchPresetTheme finds a preset that matches the given config, or returns empty string
func MatchPresetTheme(cfg config.ThemeConfig) string {
	for name, preset := range PresetThemes {
		if preset.Config == cfg {
			return name
		}
	}
	return ""
}
