package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rmax-ai/traylord/pkg/api"
	"github.com/rmax-ai/traylord/pkg/config"
)

// Options is the daemon's process-level configuration: where the
// config file lives and where the API listens. Display and provider
// settings live in the config file itself.
type Options struct {
	ConfigPath string
	Addr       string
	Once       bool
}

func LoadOptions(args []string) (Options, error) {
	configPath := os.Getenv("TRAYLORD_CONFIG_PATH")
	if configPath == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return Options{}, err
		}
		configPath = defaultPath
	}
	addr := addrFromEnv(api.DefaultAddr)

	flagSet := flag.NewFlagSet("traylord-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagConfig := flagSet.String("config", configPath, "path to config.toml")
	flagAddr := flagSet.String("addr", addr, "HTTP listen address")
	flagOnce := flagSet.Bool("once", false, "fetch once, print the label, and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Options{}, err
		}
		return Options{}, err
	}

	opts := Options{
		ConfigPath: resolvePath(*flagConfig),
		Addr:       strings.TrimSpace(*flagAddr),
		Once:       *flagOnce,
	}

	if opts.ConfigPath == "" {
		return Options{}, errors.New("config path cannot be empty")
	}
	if opts.Addr == "" {
		return Options{}, errors.New("addr cannot be empty")
	}

	return opts, nil
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("TRAYLORD_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("TRAYLORD_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	cwd, err := os.Getwd()
	if err != nil {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
