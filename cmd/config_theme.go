package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samsaffron/diffstream/internal/config"
	"github.com/samsaffron/diffstream/internal/ui"
	"github.com/spf13/cobra"
)

var configThemeCmd = &cobra.Command{
	Use:   "theme [name]",
	Short: "Select a UI color theme",
	Long: `Select a color theme for diffs and reports.

Without a name, an interactive selector shows a live preview of each theme.
Press enter to select and save, or esc to cancel.

Available themes: ` + strings.Join(ui.PresetThemeNames(), ", "),
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: ui.PresetThemeNames(),
	RunE:      configTheme,
}

var (
	themeUp     = key.NewBinding(key.WithKeys("up", "k"))
	themeDown   = key.NewBinding(key.WithKeys("down", "j"))
	themeSelect = key.NewBinding(key.WithKeys("enter"))
	themeCancel = key.NewBinding(key.WithKeys("esc", "q", "ctrl+c"))
)

func init() {
	configCmd.AddCommand(configThemeCmd)
}

func configTheme(cmd *cobra.Command, args []string) error {
	var selected string
	if len(args) == 1 {
		selected = args[0]
	} else {
		current := ""
		if cfg, err := config.Load(); err == nil {
			current = ui.MatchPresetTheme(cfg.Theme)
		}

		var err error
		if selected, err = runThemeSelector(current); err != nil {
			return err
		}
		if selected == "" {
			return nil // cancelled
		}
	}

	preset := ui.GetPresetTheme(selected)
	if preset == nil {
		return fmt.Errorf("unknown theme: %s (available: %s)", selected, strings.Join(ui.PresetThemeNames(), ", "))
	}

	if err := config.SaveTheme(preset.Config); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	ui.InitTheme(preset.Config)

	fmt.Fprintf(cmd.OutOrStdout(), "Theme set to: %s\n", selected)
	return nil
}

// themeSelectorModel is the bubbletea model for theme selection
type themeSelectorModel struct {
	presets      []ui.ThemePreset
	cursor       int
	currentTheme string
	selected     string
	cancelled    bool
}

func newThemeSelectorModel(currentTheme string) themeSelectorModel {
	var presets []ui.ThemePreset
	cursor := 0
	for _, name := range ui.PresetThemeNames() {
		if name == currentTheme {
			cursor = len(presets)
		}
		presets = append(presets, *ui.GetPresetTheme(name))
	}

	return themeSelectorModel{
		presets:      presets,
		cursor:       cursor,
		currentTheme: currentTheme,
	}
}

func (m themeSelectorModel) Init() tea.Cmd {
	return nil
}

func (m themeSelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, themeUp):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, themeDown):
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, themeSelect):
		m.selected = m.presets[m.cursor].Name
		return m, tea.Quit
	case key.Matches(keyMsg, themeCancel):
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m themeSelectorModel) View() string {
	if len(m.presets) == 0 {
		return "No themes available"
	}

	hovered := m.presets[m.cursor]
	previewTheme := ui.ThemeFromConfig(hovered.Config)

	var list strings.Builder
	list.WriteString(lipgloss.NewStyle().Bold(true).Render("Select Theme"))
	list.WriteString("\n\n")

	for i, preset := range m.presets {
		label := preset.Name
		if preset.Name == m.currentTheme {
			label += " (current)"
		}
		if i == m.cursor {
			list.WriteString(lipgloss.NewStyle().Bold(true).Foreground(previewTheme.Primary).Render("❯ " + label))
		} else {
			list.WriteString("  " + label)
		}
		list.WriteString("\n")
	}

	list.WriteString("\n")
	list.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("↑/↓ navigate · enter select · esc cancel"))

	listCol := lipgloss.NewStyle().Width(30).Render(list.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, listCol, "  ", renderThemePreview(previewTheme, hovered))
}

// renderThemePreview shows how a diff and a failure report look in theme.
func renderThemePreview(theme *ui.Theme, preset ui.ThemePreset) string {
	var b strings.Builder

	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(1, 2)

	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Text)
	primary := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary)
	muted := lipgloss.NewStyle().Foreground(theme.Muted)
	success := lipgloss.NewStyle().Foreground(theme.Success)
	failure := lipgloss.NewStyle().Foreground(theme.Error)
	warning := lipgloss.NewStyle().Foreground(theme.Warning)

	b.WriteString(title.Render("Preview: "+preset.Name) + "\n")
	b.WriteString(muted.Render(preset.Description) + "\n\n")

	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Edit: ") + primary.Render("main.go") + muted.Render(" +1 -1") + "\n")
	b.WriteString(muted.Render("  3  ") + "func main() {\n")
	b.WriteString(failure.Render("  4- ") + "\tfmt.Println(\"hi\")\n")
	b.WriteString(success.Render("  4+ ") + "\tfmt.Println(\"hello\")\n\n")

	b.WriteString(success.Render(ui.SuccessIcon+" ") + "main.go (1 block(s))\n")
	b.WriteString(warning.Render(ui.WarnIcon+" ") + "repaired 1 misplaced marker(s)\n")
	b.WriteString(failure.Render(ui.FailIcon+" ") + "search block not found\n")

	return border.Render(b.String())
}

// runThemeSelector runs the interactive theme selector and returns the selected theme name
func runThemeSelector(currentTheme string) (string, error) {
	// Use /dev/tty so the selector works with redirected stdio
	var opts []tea.ProgramOption
	if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		defer tty.Close()
		opts = append(opts, tea.WithInput(tty), tea.WithOutput(tty))
	}

	finalModel, err := tea.NewProgram(newThemeSelectorModel(currentTheme), opts...).Run()
	if err != nil {
		return "", err
	}

	m := finalModel.(themeSelectorModel)
	if m.cancelled {
		return "", nil
	}
	return m.selected, nil
}
