package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/samsaffron/diffstream/internal/diagnostics"
	"github.com/samsaffron/diffstream/internal/toolcall"
	"github.com/spf13/cobra"
)

var (
	replaceOld string
	replaceNew string
	insertLine int
	insertText string
	emitDiff   bool
	callDryRun bool
	confirm    bool
	toolFormat string
	toolNoDiff bool
)

var replaceCmd = &cobra.Command{
	Use:   "replace <file>",
	Short: "Replace one occurrence of a string in a file",
	Long: `Replace exactly one occurrence of --old with --new. The match is exact,
then whitespace-insensitive per line, then anchored on first and last lines.

Examples:
  diffstream replace main.go --old "foo()" --new "bar()"
  diffstream replace main.go --old "debug := true" --new "" --dry-run
  diffstream replace main.go --old "a" --new "b" --emit`,
	Args: cobra.ExactArgs(1),
	RunE: runReplace,
}

var insertCmd = &cobra.Command{
	Use:   "insert <file>",
	Short: "Insert text after a line",
	Long: `Insert --text after line --line (1-based). Line 0 inserts at the top.

Examples:
  diffstream insert main.go --line 0 --text "// Code generated. DO NOT EDIT."
  diffstream insert notes.md --line 12 --text "- one more item"`,
	Args: cobra.ExactArgs(1),
	RunE: runInsert,
}

var toolcallCmd = &cobra.Command{
	Use:   "toolcall [file]",
	Short: "Apply an editor tool call read from stdin",
	Long: `Read a str_replace, insert, create or rewrite tool call from stdin and
apply it. The file argument overrides the call's path.

JSON envelopes may be the bare input object, {"input": {...}} or
{"arguments": "..."}:
  {"command": "str_replace", "path": "main.go", "old_str": "a", "new_str": "b"}

XML form:
  <str_replace path="main.go"><old_str>a</old_str><new_str>b</new_str></str_replace>`,
	Args: cobra.MaximumNArgs(1),
	RunE: runToolcall,
}

func init() {
	replaceCmd.Flags().StringVar(&replaceOld, "old", "", "Text to replace (required)")
	replaceCmd.Flags().StringVar(&replaceNew, "new", "", "Replacement text")
	if err := replaceCmd.MarkFlagRequired("old"); err != nil {
		panic(fmt.Sprintf("failed to mark old flag required: %v", err))
	}

	insertCmd.Flags().IntVar(&insertLine, "line", 0, "Insert after this line (0 = top of file)")
	insertCmd.Flags().StringVar(&insertText, "text", "", "Text to insert (required)")
	if err := insertCmd.MarkFlagRequired("text"); err != nil {
		panic(fmt.Sprintf("failed to mark text flag required: %v", err))
	}

	for _, c := range []*cobra.Command{replaceCmd, insertCmd, toolcallCmd} {
		c.Flags().BoolVar(&callDryRun, "dry-run", false, "Show what would change without writing")
		c.Flags().BoolVar(&toolNoDiff, "no-diff", false, "Do not print the unified diff")
		c.Flags().BoolVar(&confirm, "confirm", false, "Ask before writing the file")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{replaceCmd, insertCmd} {
		c.Flags().BoolVar(&emitDiff, "emit", false, "Print the SEARCH/REPLACE block instead of applying it")
	}

	toolcallCmd.Flags().StringVar(&toolFormat, "format", "json", "Tool call encoding: json or xml")
	if err := toolcallCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return filterPrefix([]string{"json", "xml"}, toComplete), cobra.ShellCompDirectiveNoFileComp
	}); err != nil {
		panic(fmt.Sprintf("failed to register format completion: %v", err))
	}
}

func runReplace(cmd *cobra.Command, args []string) error {
	return runCall(cmd, toolcall.Call{
		Command: toolcall.CommandStrReplace,
		Path:    args[0],
		OldStr:  replaceOld,
		NewStr:  replaceNew,
	})
}

func runInsert(cmd *cobra.Command, args []string) error {
	return runCall(cmd, toolcall.Call{
		Command:    toolcall.CommandInsert,
		Path:       args[0],
		InsertLine: insertLine,
		NewStr:     insertText,
	})
}

func runToolcall(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read tool call: %w", err)
	}

	var call toolcall.Call
	switch strings.ToLower(toolFormat) {
	case "json":
		call, err = toolcall.ParseJSON(string(data))
	case "xml":
		call, err = toolcall.ParseXML(string(data))
	default:
		return fmt.Errorf("unknown format %q (want json or xml)", toolFormat)
	}
	if err != nil {
		return err
	}

	if len(args) == 1 {
		call.Path = args[0]
	}
	if call.Path == "" {
		return fmt.Errorf("%w: no file path given", toolcall.ErrInvalidCall)
	}
	return runCall(cmd, call)
}

// runCall applies a single tool call to its file.
func runCall(cmd *cobra.Command, call toolcall.Call) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	original, err := readOriginal(call.Path)
	if err != nil {
		return err
	}

	if emitDiff {
		diff, err := toolcall.Diff(call, original)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), diff)
		return err
	}

	updated, err := toolcall.Apply(call, original)
	if err != nil {
		if diagnostics.Kind(err) == "other" {
			return err
		}
		diff, _ := toolcall.Diff(call, original)
		return reportFailure(cmd, cfg, call.Path, original, diff, nil, nil, err)
	}

	return writeResult(cmd, cfg, call.Path, original, updated, writeOptions{
		dryRun:  callDryRun,
		noDiff:  toolNoDiff,
		confirm: confirm,
		summary: string(call.Command),
	})
}
