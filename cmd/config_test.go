package cmd

import (
	"strings"
	"testing"
)

func TestConfigInitGetSet(t *testing.T) {
	isolateConfig(t)

	out, _, err := runCLI(t, "", "config")
	if err != nil {
		t.Fatalf("config returned error: %v", err)
	}
	if !strings.Contains(out, "No config file") || !strings.Contains(out, "max_pending_lines: 256") {
		t.Fatalf("unexpected config output:\n%s", out)
	}

	if _, _, err := runCLI(t, "", "config", "init"); err != nil {
		t.Fatalf("config init returned error: %v", err)
	}
	if _, _, err := runCLI(t, "", "config", "init"); err == nil {
		t.Fatal("second init without --force should fail")
	}

	out, _, err = runCLI(t, "", "config", "get", "edit.chunk_size")
	if err != nil {
		t.Fatalf("config get returned error: %v", err)
	}
	if strings.TrimSpace(out) != "4096" {
		t.Fatalf("got %q, want %q", strings.TrimSpace(out), "4096")
	}

	if _, _, err := runCLI(t, "", "config", "set", "edit.backup", "true"); err != nil {
		t.Fatalf("config set returned error: %v", err)
	}
	out, _, _ = runCLI(t, "", "config", "get", "edit.backup")
	if strings.TrimSpace(out) != "true" {
		t.Fatalf("got %q, want %q", strings.TrimSpace(out), "true")
	}
}

func TestConfigSetRejectsBadInput(t *testing.T) {
	isolateConfig(t)

	_, _, err := runCLI(t, "", "config", "get", "edit.bakup")
	if err == nil || !strings.Contains(err.Error(), "did you mean edit.backup") {
		t.Fatalf("got err %v, want suggestion", err)
	}

	_, _, err = runCLI(t, "", "config", "set", "edit.chunk_size", "0")
	if err == nil || !strings.Contains(err.Error(), "chunk_size") {
		t.Fatalf("got err %v, want validation failure", err)
	}
}

func TestConfigPath(t *testing.T) {
	dir := isolateConfig(t)

	out, _, err := runCLI(t, "", "config", "path")
	if err != nil {
		t.Fatalf("config path returned error: %v", err)
	}
	if !strings.HasPrefix(out, dir) || !strings.HasSuffix(strings.TrimSpace(out), "diffstream/config.yaml") {
		t.Fatalf("got %q", out)
	}
}

func TestConfigThemeByName(t *testing.T) {
	isolateConfig(t)

	out, _, err := runCLI(t, "", "config", "theme", "nord")
	if err != nil {
		t.Fatalf("config theme returned error: %v", err)
	}
	if !strings.Contains(out, "Theme set to: nord") {
		t.Fatalf("got %q", out)
	}
	out, _, _ = runCLI(t, "", "config", "get", "theme.primary")
	if strings.TrimSpace(out) != "#88c0d0" {
		t.Fatalf("got %q, want %q", strings.TrimSpace(out), "#88c0d0")
	}

	if _, _, err := runCLI(t, "", "config", "theme", "solarized"); err == nil {
		t.Fatal("unknown theme should fail")
	}
}

func TestThemeSelectorNavigation(t *testing.T) {
	m := newThemeSelectorModel("nord")
	if m.presets[m.cursor].Name != "nord" {
		t.Fatalf("cursor on %q, want current theme", m.presets[m.cursor].Name)
	}
	if !strings.Contains(m.View(), "nord (current)") {
		t.Errorf("view should mark the current theme")
	}
}

func TestConfigCompletion(t *testing.T) {
	got := filterPrefix(configKeys, "diagnostics.")
	if strings.Join(got, ",") != "diagnostics.enabled,diagnostics.dir" {
		t.Fatalf("got %v", got)
	}
	if vals := configValueCompletions("edit.backup", "t"); len(vals) != 1 || vals[0] != "true" {
		t.Fatalf("got %v", vals)
	}
}

func TestConfigGetGlob(t *testing.T) {
	isolateConfig(t)

	if _, _, err := runCLI(t, "", "config", "theme", "dracula"); err != nil {
		t.Fatalf("config theme returned error: %v", err)
	}
	out, _, err := runCLI(t, "", "config", "get", "theme.*")
	if err != nil {
		t.Fatalf("config get returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 8 || lines[0] != "theme.primary: #bd93f9" {
		t.Fatalf("got %q", lines)
	}

	if _, _, err := runCLI(t, "", "config", "get", "edit.*"); err == nil {
		t.Fatal("glob matching no set keys should fail")
	}
}
