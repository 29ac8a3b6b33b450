package main

import (
	"path/filepath"
	"testing"
)

func TestLoadOptions_Defaults(t *testing.T) {
	opts, err := LoadOptions(nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if opts.ConfigPath == "" {
		t.Error("Expected a default config path")
	}
	if opts.Addr != "127.0.0.1:8094" {
		t.Errorf("Expected default addr, got %q", opts.Addr)
	}
	if opts.Once {
		t.Error("Expected once=false by default")
	}
}

func TestLoadOptions_Flags(t *testing.T) {
	opts, err := LoadOptions([]string{"-config", "/tmp/custom.toml", "-addr", "127.0.0.1:9999", "-once"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if opts.ConfigPath != "/tmp/custom.toml" {
		t.Errorf("Expected custom config path, got %q", opts.ConfigPath)
	}
	if opts.Addr != "127.0.0.1:9999" {
		t.Errorf("Expected custom addr, got %q", opts.Addr)
	}
	if !opts.Once {
		t.Error("Expected once=true")
	}
}

func TestLoadOptions_EnvOverrides(t *testing.T) {
	t.Setenv("TRAYLORD_CONFIG_PATH", "/tmp/env.toml")
	t.Setenv("TRAYLORD_PORT", "7070")

	opts, err := LoadOptions(nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if opts.ConfigPath != "/tmp/env.toml" {
		t.Errorf("Expected env config path, got %q", opts.ConfigPath)
	}
	if opts.Addr != "127.0.0.1:7070" {
		t.Errorf("Expected env port, got %q", opts.Addr)
	}
}

func TestLoadOptions_AddrEnvBeatsPort(t *testing.T) {
	t.Setenv("TRAYLORD_ADDR", "0.0.0.0:8100")
	t.Setenv("TRAYLORD_PORT", "7070")

	opts, err := LoadOptions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "0.0.0.0:8100" {
		t.Errorf("Expected TRAYLORD_ADDR to win, got %q", opts.Addr)
	}
}

func TestLoadOptions_RelativePathResolved(t *testing.T) {
	opts, err := LoadOptions([]string{"-config", "local.toml"})
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(opts.ConfigPath) {
		t.Errorf("Expected relative path to be resolved, got %q", opts.ConfigPath)
	}
}

func TestLoadOptions_EmptyAddrRejected(t *testing.T) {
	if _, err := LoadOptions([]string{"-addr", "  "}); err == nil {
		t.Error("Expected error for empty addr")
	}
}
