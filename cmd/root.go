package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/samsaffron/diffstream/internal/config"
	"github.com/samsaffron/diffstream/internal/ui"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var debugLogs bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugLogs, "debug", "d", false, "Show debug information")
}

var rootCmd = &cobra.Command{
	Use:   "diffstream",
	Short: "Apply streamed SEARCH/REPLACE edits to files",
	Long: `diffstream reconstructs a file from a stream of SEARCH/REPLACE blocks,
as produced by a code-editing model, and writes the result.

Examples:
  diffstream apply main.go --diff edits.txt
  llm-tool | diffstream apply main.go --dry-run
  diffstream replace main.go --old "foo()" --new "bar()"
  diffstream insert main.go --line 10 --text "// note"

  diffstream config                       # view configuration
  diffstream config theme                 # pick a color theme`,
	Version:           Version,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(cmd.ErrOrStderr(), debugLogs))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads the config file and applies its theme.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	ui.InitTheme(cfg.Theme)
	return cfg, nil
}
