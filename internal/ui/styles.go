package ui

import (
	"io"

	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// Status indicators
const (
	SuccessIcon = "✓"
	FailIcon    = "✗"
	WarnIcon    = "!"
)

// Styles returns styled text helpers bound to a renderer
type Styles struct {
	renderer *lipgloss.Renderer
	theme    *Theme

	Title       lipgloss.Style
	Success     lipgloss.Style
	Error       lipgloss.Style
	Warning     lipgloss.Style
	Muted       lipgloss.Style
	Bold        lipgloss.Style
	Highlighted lipgloss.Style
	DiffHeader  lipgloss.Style
	Box         lipgloss.Style
}

// NewStyles creates a new Styles instance for the given output. The color
// profile is detected from output, so a pipe or file gets plain text.
func NewStyles(output io.Writer) *Styles {
	return NewStylesWithTheme(output, currentTheme)
}

// NewStylesWithTheme creates styles with a specific theme
func NewStylesWithTheme(output io.Writer, theme *Theme) *Styles {
	r := lipgloss.NewRenderer(output)

	return &Styles{
		renderer: r,
		theme:    theme,

		Title: r.NewStyle().
			Bold(true).
			Foreground(theme.Text),

		Success: r.NewStyle().
			Foreground(theme.Success),

		Error: r.NewStyle().
			Foreground(theme.Error),

		Warning: r.NewStyle().
			Foreground(theme.Warning),

		Muted: r.NewStyle().
			Foreground(theme.Muted),

		Bold: r.NewStyle().
			Bold(true),

		Highlighted: r.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		DiffHeader: r.NewStyle().
			Foreground(theme.Secondary).
			Bold(true),

		Box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
	}
}

// Theme returns the theme used by these styles
func (s *Styles) Theme() *Theme {
	return s.theme
}

// FormatResult returns a styled success/fail result
func (s *Styles) FormatResult(success bool, msg string) string {
	if success {
		return s.Success.Render(SuccessIcon+" ") + msg
	}
	return s.Error.Render(FailIcon+" ") + msg
}

// FormatWarning returns a styled warning line
func (s *Styles) FormatWarning(msg string) string {
	return s.Warning.Render(WarnIcon+" ") + msg
}

// GlamourStyle returns a glamour StyleConfig based on the current theme
func GlamourStyle() ansi.StyleConfig {
	return GlamourStyleFromTheme(currentTheme)
}

// GlamourStyleFromTheme starts from glamour's dark style and recolors the
// elements a failure report uses.
func GlamourStyleFromTheme(theme *Theme) ansi.StyleConfig {
	style := styles.DarkStyleConfig

	text := string(theme.Text)
	secondary := string(theme.Secondary)
	warning := string(theme.Warning)
	primary := string(theme.Primary)
	errColor := string(theme.Error)

	style.Document.Color = &text
	style.Heading.Color = &secondary
	style.Heading.Bold = boolPtr(true)
	style.H1.BackgroundColor = nil
	style.H1.Color = &secondary
	style.Strong.Color = &errColor
	style.Emph.Color = &warning
	style.Code.Color = &primary
	style.Code.BackgroundColor = nil
	return style
}

func boolPtr(b bool) *bool {
	return &b
}
