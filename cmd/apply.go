package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samsaffron/diffstream/internal/config"
	"github.com/samsaffron/diffstream/internal/diagnostics"
	"github.com/samsaffron/diffstream/internal/edit"
	"github.com/samsaffron/diffstream/internal/signal"
	"github.com/samsaffron/diffstream/internal/ui"
	"github.com/spf13/cobra"
)

var (
	applyDiffPath   string
	applyDryRun     bool
	applyChunkSize  int
	applyMaxPending int
	applyBackup     bool
	applyNoDiff     bool
	applyConfirm    bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Apply a stream of SEARCH/REPLACE blocks to a file",
	Long: `Read SEARCH/REPLACE blocks from stdin (or --diff) and apply them to a file
as they arrive. A file that does not exist is treated as empty.

Block format:
  <<<<<<< SEARCH
  text to find
  =======
  replacement
  >>>>>>> REPLACE

Examples:
  diffstream apply main.go --diff edits.txt
  cat edits.txt | diffstream apply main.go --dry-run
  diffstream apply main.go --chunk-size 16 --debug < edits.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVar(&applyDiffPath, "diff", "-", "File containing the blocks ('-' for stdin)")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show what would change without writing")
	applyCmd.Flags().IntVar(&applyChunkSize, "chunk-size", 0, "Bytes fed to the engine per read (overrides config)")
	applyCmd.Flags().IntVar(&applyMaxPending, "max-pending", 0, "Lines held while repairing misplaced markers (overrides config)")
	applyCmd.Flags().BoolVar(&applyBackup, "backup", false, "Keep <file>.orig before overwriting")
	applyCmd.Flags().BoolVar(&applyNoDiff, "no-diff", false, "Do not print the unified diff")
	applyCmd.Flags().BoolVar(&applyConfirm, "confirm", false, "Ask before writing the file")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(applyChunkSize, applyMaxPending)
	if cmd.Flags().Changed("backup") {
		cfg.Edit.Backup = applyBackup
	}

	original, err := readOriginal(path)
	if err != nil {
		return err
	}

	in, err := openDiff(cmd, applyDiffPath)
	if err != nil {
		return err
	}
	defer in.Close()

	ctx, stop := signal.NotifyContext(cmd.Context())
	defer stop()

	logger := slog.Default().With("file", path)
	var recoveries []string
	r := edit.NewReconstructor(original, edit.ReconstructorConfig{
		MaxPendingLines: cfg.Edit.MaxPendingLines,
		Logger:          logger,
		Callbacks: edit.ReconstructorCallbacks{
			OnBlockComplete: func(b edit.Block) {
				logger.Debug("block applied", "start", b.Start, "end", b.End, "level", b.Level.String())
			},
			OnRecover: func(got edit.Marker, state edit.State) {
				recoveries = append(recoveries, fmt.Sprintf("%s marker while %s", got, state))
				logger.Warn("repaired misplaced marker", "marker", got.String(), "state", state.String())
			},
		},
	})

	received, err := streamDiff(ctx, in, r, cfg.Edit.ChunkSize)
	var updated string
	if err == nil {
		updated, err = r.Finish()
	}
	if err != nil {
		if r.IsHalted() {
			return reportFailure(cmd, cfg, path, original, received, r, recoveries, err)
		}
		return err
	}

	if len(recoveries) > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.NewStyles(cmd.ErrOrStderr()).FormatWarning(
			fmt.Sprintf("repaired %d misplaced marker(s)", len(recoveries))))
	}

	return writeResult(cmd, cfg, path, original, updated, writeOptions{
		dryRun:  applyDryRun,
		noDiff:  applyNoDiff,
		confirm: applyConfirm,
		summary: fmt.Sprintf("%d block(s)", len(r.Blocks())),
	})
}

// streamDiff feeds in to r in chunks of at most chunkSize bytes and returns
// everything it read.
func streamDiff(ctx context.Context, in io.Reader, r *edit.Reconstructor, chunkSize int) (string, error) {
	var received strings.Builder
	buf := make([]byte, chunkSize)
	chunks := 0

	for {
		if err := ctx.Err(); err != nil {
			return received.String(), err
		}

		n, readErr := in.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			received.WriteString(chunk)
			chunks++
			if err := r.Feed(chunk); err != nil {
				return received.String(), err
			}
			slog.Debug("chunk fed", "n", chunks, "bytes", n, "state", r.State().String(), "cursor", r.Cursor())
		}
		if readErr == io.EOF {
			return received.String(), nil
		}
		if readErr != nil {
			return received.String(), fmt.Errorf("failed to read diff: %w", readErr)
		}
	}
}

// readOriginal returns the file content, or "" when the file does not exist.
func readOriginal(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func openDiff(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open diff: %w", err)
	}
	return f, nil
}

type writeOptions struct {
	dryRun  bool
	noDiff  bool
	confirm bool
	summary string
}

// writeResult shows the change and, unless this is a dry run, writes it.
func writeResult(cmd *cobra.Command, cfg *config.Config, path, original, updated string, opts writeOptions) error {
	out := cmd.OutOrStdout()
	st := ui.NewStyles(cmd.ErrOrStderr())

	if original == updated {
		fmt.Fprintln(cmd.ErrOrStderr(), st.Muted.Render("No changes to "+path))
		return nil
	}

	if cfg.Edit.ShowDiff && !opts.noDiff {
		width, color := ui.TerminalInfo(out)
		if _, err := ui.WriteUnifiedDiff(out, path, original, updated, ui.DiffOptions{Color: color, Width: width}); err != nil {
			return err
		}
	}

	if cfg.IsProtected(path) {
		return fmt.Errorf("%s matches edit.protected_paths; not writing", path)
	}

	if opts.dryRun {
		fmt.Fprintln(cmd.ErrOrStderr(), st.Muted.Render("Dry run: "+path+" not written"))
		return nil
	}

	if opts.confirm {
		ok, err := ui.ConfirmApply(path)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), st.Muted.Render("Skipped "+path))
			return nil
		}
	}

	if cfg.Edit.Backup {
		if err := writeBackup(path); err != nil {
			return err
		}
	}
	if err := writeFileAtomic(path, updated); err != nil {
		return err
	}

	msg := path
	if opts.summary != "" {
		msg = fmt.Sprintf("%s (%s)", path, opts.summary)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), st.FormatResult(true, msg))
	return nil
}

func writeBackup(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s for backup: %w", path, err)
	}
	if err := os.WriteFile(path+".orig", data, 0644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// writeFileAtomic replaces path via a temp file in the same directory,
// keeping the existing file mode.
func writeFileAtomic(path, content string) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// reportFailure prints the retry report, writes diagnostics when enabled and
// returns the wrapped reconstruction error.
func reportFailure(cmd *cobra.Command, cfg *config.Config, path, original, received string, r *edit.Reconstructor, recoveries []string, err error) error {
	errOut := cmd.ErrOrStderr()

	if cfg.Diagnostics.Enabled {
		f := diagnostics.NewReconstructFailure(path, original, received, r, err)
		f.Recoveries = recoveries
		mdPath, werr := diagnostics.WriteReconstructFailure(cfg.DiagnosticsDir(), f)
		if werr != nil {
			slog.Warn("failed to write diagnostics", "error", werr)
		} else {
			fmt.Fprintln(errOut, ui.NewStyles(errOut).Muted.Render("Diagnostics: "+mdPath))
		}
	}

	report := edit.BuildRetryPrompt(edit.NewRetryContext(path, original, received, err))
	if ui.IsTerminal(errOut) {
		width, _ := ui.TerminalInfo(errOut)
		report = ui.RenderMarkdown(report, width)
	}
	fmt.Fprintln(errOut, report)

	return fmt.Errorf("apply %s: %w", path, err)
}
