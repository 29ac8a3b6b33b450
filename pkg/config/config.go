// Package config owns the per-user TOML configuration file. A missing
// file is created with commented defaults; a file that exists but does
// not parse is a fatal startup error, since guessing settings for a
// tool that spends API quota is worse than refusing to start.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// MinRefetchInterval is the floor for refetch_interval. Anything lower
// would hammer the provider API for no display benefit.
const MinRefetchInterval = 10

const defaultRefetchInterval = 60

type ProviderKind string

const (
	ProviderClaudeCode     ProviderKind = "claude_code"
	ProviderCLIProxyClaude ProviderKind = "cliproxy_claude"
)

type DisplayMode string

const (
	DisplayUsage     DisplayMode = "usage"
	DisplayRemaining DisplayMode = "remaining"
)

type ResetTimeFormat string

const (
	ResetRelative ResetTimeFormat = "relative"
	ResetAbsolute ResetTimeFormat = "absolute"
)

type Config struct {
	Provider             ProviderKind    `toml:"provider"`
	MonochromeIcon       bool            `toml:"monochrome_icon"`
	DisplayMode          DisplayMode     `toml:"display_mode"`
	ShowPeriodPercentage bool            `toml:"show_period_percentage"`
	ResetTimeFormat      ResetTimeFormat `toml:"reset_time_format"`
	RefetchInterval      int             `toml:"refetch_interval"`
	Settings             Settings        `toml:"settings"`
}

type Settings struct {
	ClaudeCode     ClaudeCodeSettings `toml:"claude_code"`
	CLIProxyClaude CLIProxySettings   `toml:"cliproxy_claude"`
}

type ClaudeCodeSettings struct {
	// OAuth token override. Empty = read from the OS keychain.
	Token string `toml:"token,omitempty"`
}

type CLIProxySettings struct {
	BaseURL         string `toml:"base_url,omitempty"`
	ManagementToken string `toml:"management_token,omitempty"`
	AuthIndex       string `toml:"auth_index,omitempty"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		Provider:             ProviderClaudeCode,
		MonochromeIcon:       true,
		DisplayMode:          DisplayUsage,
		ShowPeriodPercentage: false,
		ResetTimeFormat:      ResetRelative,
		RefetchInterval:      defaultRefetchInterval,
	}
}

// defaultTOML is the commented default config file. Kept as a literal
// so comments survive; Default() and this must stay in sync, which the
// round-trip test enforces.
const defaultTOML = `# Default data provider, the LLM subscription you use.
provider = "claude_code"

# Whether to render the tray icon in monochrome.
monochrome_icon = true

# Display mode: "usage" or "remaining".
display_mode = "usage"

# Whether to show period percentage next to "resets in".
show_period_percentage = false

# Reset time format: "relative" (resets in 3h) or "absolute" (resets on 13 Feb, 14:00).
reset_time_format = "relative"

# How often to refetch usage data, in seconds.
refetch_interval = 60

# Per-provider settings.
#
# [settings.claude_code]
# token = "sk-ant-oat01-..."       # optional; default is the OS keychain
#
# [settings.cliproxy_claude]
# base_url = "http://localhost:8317"
# management_token = "..."
# auth_index = "0"
`

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config dir: %w", err)
	}
	return filepath.Join(dir, "traylord", "config.toml"), nil
}

// EnsureExists writes the commented default file if path does not
// exist, creating parent directories as needed.
func EnsureExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultTOML), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	log.Printf("Created default config at %s", path)
	return nil
}

// Load reads and validates the config file. Unset fields keep their
// defaults; a refetch_interval below the floor is clamped, not
// rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if cfg.RefetchInterval < MinRefetchInterval {
		log.Printf("refetch_interval %ds is below the %ds floor, clamping", cfg.RefetchInterval, MinRefetchInterval)
		cfg.RefetchInterval = MinRefetchInterval
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderClaudeCode, ProviderCLIProxyClaude:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.DisplayMode {
	case DisplayUsage, DisplayRemaining:
	default:
		return fmt.Errorf("unknown display_mode %q", c.DisplayMode)
	}

	switch c.ResetTimeFormat {
	case ResetRelative, ResetAbsolute:
	default:
		return fmt.Errorf("unknown reset_time_format %q", c.ResetTimeFormat)
	}

	return nil
}

// Interval returns the refetch interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.RefetchInterval) * time.Second
}
