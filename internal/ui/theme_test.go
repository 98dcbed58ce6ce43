package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/samsaffron/diffstream/internal/config"
)

func TestThemeFromConfigOverrides(t *testing.T) {
	theme := ThemeFromConfig(config.ThemeConfig{Primary: "#123456", Secondary: "#abcdef"})
	if theme.Primary != lipgloss.Color("#123456") {
		t.Errorf("Primary = %q", theme.Primary)
	}
	if theme.Border != lipgloss.Color("#abcdef") {
		t.Errorf("Border = %q, want secondary", theme.Border)
	}
	if theme.Error != DefaultTheme().Error {
		t.Errorf("Error = %q, want default", theme.Error)
	}
}

func TestPresetThemeNames(t *testing.T) {
	names := PresetThemeNames()
	if len(names) != len(PresetThemes) {
		t.Fatalf("got %d names, want %d", len(names), len(PresetThemes))
	}
	if names[0] != "gruvbox" {
		t.Errorf("first preset = %q, want gruvbox", names[0])
	}
	for _, name := range names {
		preset := GetPresetTheme(name)
		if preset == nil {
			t.Fatalf("GetPresetTheme(%q) = nil", name)
		}
		if got := MatchPresetTheme(preset.Config); got != name {
			t.Errorf("MatchPresetTheme(%s) = %q", name, got)
		}
	}
	if GetPresetTheme("solarized") != nil {
		t.Error("unknown preset should be nil")
	}
}

func TestInitThemeResetsRenderers(t *testing.T) {
	defer InitTheme(config.ThemeConfig{})

	_ = RenderMarkdown("# hi", 40)
	if _, ok := rendererCache.Load(40); !ok {
		t.Fatal("renderer was not cached")
	}
	InitTheme(GetPresetTheme("nord").Config)
	if _, ok := rendererCache.Load(40); ok {
		t.Fatal("InitTheme should clear cached renderers")
	}
	if GetTheme().Primary != lipgloss.Color("#88c0d0") {
		t.Errorf("Primary = %q, want nord", GetTheme().Primary)
	}
}

func TestRenderMarkdown(t *testing.T) {
	if RenderMarkdown("", 80) != "" {
		t.Fatal("empty content should render empty")
	}
	out := StripANSI(RenderMarkdown("The edit **failed**.", 80))
	if !strings.Contains(out, "failed") || strings.Contains(out, "**") {
		t.Errorf("got %q", out)
	}
}

func TestFormatResultPlain(t *testing.T) {
	var sb strings.Builder
	st := NewStyles(&sb)
	if got := StripANSI(st.FormatResult(true, "ok")); got != SuccessIcon+" ok" {
		t.Errorf("got %q", got)
	}
	if got := StripANSI(st.FormatWarning("careful")); got != WarnIcon+" careful" {
		t.Errorf("got %q", got)
	}
}
