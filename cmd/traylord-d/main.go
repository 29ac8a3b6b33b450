package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rmax-ai/traylord/pkg/api"
	"github.com/rmax-ai/traylord/pkg/config"
	"github.com/rmax-ai/traylord/pkg/credential"
	"github.com/rmax-ai/traylord/pkg/format"
	"github.com/rmax-ai/traylord/pkg/poller"
	"github.com/rmax-ai/traylord/pkg/provider"
	"github.com/rmax-ai/traylord/pkg/provider/claudecode"
	"github.com/rmax-ai/traylord/pkg/provider/cliproxy"
)

func main() {
	opts, err := LoadOptions(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Invalid options: %v", err)
	}

	if err := config.EnsureExists(opts.ConfigPath); err != nil {
		log.Fatalf("Failed to create config: %v", err)
	}

	// A config that exists but does not parse is fatal: guessing
	// settings would spend someone's API quota on the wrong account.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	resolver := credential.NewResolver()

	if opts.Once {
		os.Exit(runOnce(cfg, resolver))
	}

	log.Printf("traylord-d starting (provider %s, interval %s)", cfg.Provider, cfg.Interval())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := newRuntime(resolver)
	rt.apply(ctx, cfg)

	server := api.NewServer(opts.Addr, rt.state, rt.displayOptions)
	server.Start()

	changes, err := config.Watch(ctx, opts.ConfigPath)
	if err != nil {
		log.Printf("Config watcher disabled: %v", err)
		changes = nil
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Shutdown initiated")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("API server shutdown error: %v", err)
			}
			log.Println("Shutdown complete")
			return

		case newCfg, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			rt.apply(ctx, newCfg)
		}
	}
}

// runtime holds the active poller and display options, swapped as a
// unit on config reload. The API server reads through it so handlers
// never hold a stale poller.
type runtime struct {
	resolver *credential.Resolver

	mu         sync.RWMutex
	poller     *poller.Poller
	opts       format.Options
	cancelPoll context.CancelFunc
}

func newRuntime(resolver *credential.Resolver) *runtime {
	return &runtime{resolver: resolver}
}

func (rt *runtime) state() poller.State {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.poller == nil {
		return poller.State{}
	}
	return rt.poller.State()
}

func (rt *runtime) displayOptions() format.Options {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.opts
}

// apply swaps in a poller for cfg, stopping the previous one. Any
// in-flight fetch is abandoned, not awaited.
func (rt *runtime) apply(ctx context.Context, cfg config.Config) {
	prov := buildProvider(cfg, rt.resolver)

	pollCtx, cancel := context.WithCancel(ctx)
	p := poller.New(prov, cfg.Interval())

	rt.mu.Lock()
	if rt.cancelPoll != nil {
		rt.cancelPoll()
	}
	rt.poller = p
	rt.opts = format.OptionsFromConfig(cfg)
	rt.cancelPoll = cancel
	rt.mu.Unlock()

	go p.Run(pollCtx)
}

// buildProvider constructs the configured provider client. A
// misconfigured provider yields a client that fails every poll with
// the configuration error instead of killing the daemon: the error
// shows up in the renderer and a config edit heals it via hot reload.
func buildProvider(cfg config.Config, resolver *credential.Resolver) provider.Provider {
	switch cfg.Provider {
	case config.ProviderCLIProxyClaude:
		settings := cfg.Settings.CLIProxyClaude
		if settings.BaseURL == "" {
			return &brokenProvider{
				id:  provider.ProviderID(cfg.Provider),
				err: fmt.Errorf("%w: base_url", credential.ErrMissingField),
			}
		}
		cred, err := resolver.ResolveCLIProxy(settings.ManagementToken, settings.AuthIndex)
		if err != nil {
			return &brokenProvider{id: provider.ProviderID(cfg.Provider), err: err}
		}
		return cliproxy.NewClient(provider.ProviderID(cfg.Provider), settings.BaseURL, cred)

	default:
		// Token resolution stays lazy: a locked keychain at login time
		// becomes a poll error, not a dead process.
		tokens := func() (string, error) {
			cred, err := resolver.ResolveClaudeCode(cfg.Settings.ClaudeCode.Token)
			if err != nil {
				return "", err
			}
			return cred.Token, nil
		}
		return claudecode.NewClient(provider.ProviderID(cfg.Provider), tokens, claudecode.DefaultBaseURL)
	}
}

// brokenProvider reports a fixed configuration error on every poll.
type brokenProvider struct {
	id  provider.ProviderID
	err error
}

func (b *brokenProvider) ID() provider.ProviderID { return b.id }

func (b *brokenProvider) Poll(ctx context.Context) (*provider.Snapshot, error) {
	return nil, b.err
}

// runOnce performs a single synchronous fetch and prints the compact
// label, for status bars that shell out instead of talking to the
// daemon.
func runOnce(cfg config.Config, resolver *credential.Resolver) int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p := poller.New(buildProvider(cfg, resolver), cfg.Interval())
	state := p.PollOnce(ctx)

	fmt.Println(format.Label(state.Snapshot, state.LastError != "", format.OptionsFromConfig(cfg)))

	if state.Snapshot == nil {
		log.Printf("Fetch failed: %s", state.LastError)
		return 1
	}
	return 0
}
