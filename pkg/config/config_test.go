package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEnsureExists_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := EnsureExists(path); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected config file to exist: %v", err)
	}

	// Second call is a no-op
	if err := EnsureExists(path); err != nil {
		t.Errorf("Expected no error on existing file, got %v", err)
	}
}

func TestDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := EnsureExists(path); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected default file to load, got %v", err)
	}

	if cfg != Default() {
		t.Errorf("Default file does not round-trip: got %+v, want %+v", cfg, Default())
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
provider = "cliproxy_claude"
monochrome_icon = false
display_mode = "remaining"
show_period_percentage = true
reset_time_format = "absolute"
refetch_interval = 120

[settings.claude_code]
token = "sk-explicit"

[settings.cliproxy_claude]
base_url = "http://localhost:8317"
management_token = "mgmt"
auth_index = "1"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Provider != ProviderCLIProxyClaude {
		t.Errorf("Expected cliproxy_claude, got %q", cfg.Provider)
	}
	if cfg.DisplayMode != DisplayRemaining || cfg.ResetTimeFormat != ResetAbsolute {
		t.Errorf("Display settings not parsed: %+v", cfg)
	}
	if cfg.RefetchInterval != 120 {
		t.Errorf("Expected interval 120, got %d", cfg.RefetchInterval)
	}
	if cfg.Settings.ClaudeCode.Token != "sk-explicit" {
		t.Errorf("Expected claude_code token, got %q", cfg.Settings.ClaudeCode.Token)
	}
	if cfg.Settings.CLIProxyClaude.BaseURL != "http://localhost:8317" {
		t.Errorf("Expected base_url, got %q", cfg.Settings.CLIProxyClaude.BaseURL)
	}
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `display_mode = "remaining"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Provider != ProviderClaudeCode {
		t.Errorf("Expected default provider, got %q", cfg.Provider)
	}
	if cfg.RefetchInterval != 60 {
		t.Errorf("Expected default interval, got %d", cfg.RefetchInterval)
	}
	if cfg.DisplayMode != DisplayRemaining {
		t.Errorf("Expected overridden display mode, got %q", cfg.DisplayMode)
	}
}

func TestLoad_ClampsIntervalFloor(t *testing.T) {
	path := writeConfig(t, `refetch_interval = 2`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.RefetchInterval != MinRefetchInterval {
		t.Errorf("Expected clamp to %d, got %d", MinRefetchInterval, cfg.RefetchInterval)
	}
}

func TestLoad_RejectsUnknownEnums(t *testing.T) {
	cases := map[string]string{
		"provider":          `provider = "gemini"`,
		"display_mode":      `display_mode = "fancy"`,
		"reset_time_format": `reset_time_format = "unix"`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, content)
			if _, err := Load(path); err == nil {
				t.Errorf("Expected error for %s", name)
			}
		})
	}
}

func TestLoad_ParseErrorIsFatal(t *testing.T) {
	path := writeConfig(t, `provider = [broken`)
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestWatch_DeliversValidChangeDropsInvalid(t *testing.T) {
	path := writeConfig(t, `refetch_interval = 60`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := Watch(ctx, path)
	if err != nil {
		t.Fatalf("Expected watcher to start, got %v", err)
	}

	// Invalid edit first: must be ignored
	if err := os.WriteFile(path, []byte(`provider = "nope"`), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-changes:
		t.Fatalf("Expected invalid config to be dropped, got %+v", cfg)
	case <-time.After(400 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte(`refetch_interval = 90`), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		if cfg.RefetchInterval != 90 {
			t.Errorf("Expected interval 90, got %d", cfg.RefetchInterval)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for config change")
	}
}
