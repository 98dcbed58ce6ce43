package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sahilm/fuzzy"
	"github.com/samsaffron/diffstream/internal/config"
	"github.com/spf13/cobra"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long: `Show the effective configuration after defaults, the config file and
DIFFSTREAM_* environment variables are applied.`,
	RunE: configShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration file path",
	RunE:  configPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE:  configInit,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file in $EDITOR",
	RunE:  configEdit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value while preserving comments.

Examples:
  diffstream config set edit.max_pending_lines 512
  diffstream config set edit.backup true
  diffstream config set diagnostics.enabled true`,
	Args:              cobra.ExactArgs(2),
	RunE:              configSet,
	ValidArgsFunction: configSetCompletion,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value from the config file. A key containing glob
characters prints every matching key that is set ('*' stays within one
level, '**' crosses levels).

Examples:
  diffstream config get edit.chunk_size
  diffstream config get 'theme.*'`,
	Args:              cobra.ExactArgs(1),
	RunE:              configGet,
	ValidArgsFunction: configGetCompletion,
}

var configCompletionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Generate shell completions",
	Long: `Generate shell completion scripts.

Examples:
  diffstream config completion bash > /etc/bash_completion.d/diffstream
  diffstream config completion zsh > "${fpath[1]}/_diffstream"
  diffstream config completion fish > ~/.config/fish/completions/diffstream.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      configCompletion,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configCompletionCmd)
}

// configKeys lists the settable scalar keys.
var configKeys = []string{
	"edit.max_pending_lines",
	"edit.chunk_size",
	"edit.show_diff",
	"edit.backup",
	"diagnostics.enabled",
	"diagnostics.dir",
	"theme.primary",
	"theme.secondary",
	"theme.success",
	"theme.error",
	"theme.warning",
	"theme.muted",
	"theme.text",
	"theme.spinner",
}

func configShow(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if config.Exists() {
		fmt.Fprintf(out, "# %s\n\n", configPath)
	} else {
		fmt.Fprintf(out, "# No config file (using defaults)\n")
		fmt.Fprintf(out, "# Create one with: diffstream config init\n\n")
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func configPath(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func configInit(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if config.Exists() && !configInitForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}
	if err := config.Save(config.Defaults()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config: %s\n", path)
	return nil
}

func configEdit(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	// Create default config if it doesn't exist
	if !config.Exists() {
		if err := config.Save(config.Defaults()); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	return editorCmd.Run()
}

// configSet sets a configuration value while preserving comments
func configSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if err := checkConfigKey(key); err != nil {
		return err
	}
	if err := config.SetValues(map[string]string{key: value}); err != nil {
		return err
	}

	// Reject values the loader would refuse on the next run
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("config saved but no longer loads: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}

func configGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if strings.ContainsAny(key, "*?[{") {
		return configGetGlob(cmd, key)
	}
	if err := checkConfigKey(key); err != nil {
		return err
	}
	value, err := config.GetValue(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func configGetGlob(cmd *cobra.Command, pattern string) error {
	g, err := glob.Compile(pattern, '.')
	if err != nil {
		return fmt.Errorf("invalid key pattern %q: %w", pattern, err)
	}

	found := 0
	for _, key := range configKeys {
		if !g.Match(key) {
			continue
		}
		value, err := config.GetValue(key)
		if err != nil {
			continue // not set in the file
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, value)
		found++
	}
	if found == 0 {
		return fmt.Errorf("no config keys set matching %q", pattern)
	}
	return nil
}

// checkConfigKey rejects unknown keys, suggesting the closest known one.
func checkConfigKey(key string) error {
	for _, k := range configKeys {
		if k == key {
			return nil
		}
	}
	if matches := fuzzy.Find(key, configKeys); len(matches) > 0 {
		return fmt.Errorf("unknown config key %q (did you mean %s?)", key, matches[0].Str)
	}
	return fmt.Errorf("unknown config key %q", key)
}

func configCompletion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch args[0] {
	case "bash":
		return rootCmd.GenBashCompletion(out)
	case "zsh":
		return rootCmd.GenZshCompletion(out)
	case "fish":
		return rootCmd.GenFishCompletion(out, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(out)
	}
	return nil
}

// configSetCompletion provides completions for config set
func configSetCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return filterPrefix(configKeys, toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return configValueCompletions(args[0], toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configGetCompletion provides completions for config get
func configGetCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return filterPrefix(configKeys, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func configValueCompletions(key, toComplete string) []string {
	switch key {
	case "edit.show_diff", "edit.backup", "diagnostics.enabled":
		return filterPrefix([]string{"true", "false"}, toComplete)
	case "edit.max_pending_lines":
		return filterPrefix([]string{"64", "256", "1024"}, toComplete)
	case "edit.chunk_size":
		return filterPrefix([]string{"1", "64", "4096"}, toComplete)
	}
	return nil
}

// filterPrefix filters a slice to items starting with prefix
func filterPrefix(items []string, prefix string) []string {
	var result []string
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			result = append(result, item)
		}
	}
	return result
}
