// Package credential resolves the authentication material each provider
// needs before it can fetch usage. Resolution never talks to the
// network; the only external dependency is the OS credential store.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// keychainService is the generic-password entry Claude Code writes its
// OAuth credentials under on macOS.
const keychainService = "Claude Code-credentials"

var (
	// ErrKeychainUnavailable means the OS credential store could not be
	// accessed at all (locked, missing tooling, denied).
	ErrKeychainUnavailable = errors.New("keychain unavailable")

	// ErrTokenNotFound means no credential entry exists for the provider.
	ErrTokenNotFound = errors.New("token not found")

	// ErrMissingField means the provider settings lack a required field.
	ErrMissingField = errors.New("missing required field")
)

// Credential is opaque authentication material for one provider client.
type Credential struct {
	// Token is the bearer token (claude_code) or management secret
	// (cliproxy_claude).
	Token string

	// AuthIndex selects the upstream account on a CLIProxy instance.
	// Empty for direct providers.
	AuthIndex string
}

// keychainFile mirrors the JSON Claude Code stores in the keychain entry
// and in ~/.claude/.credentials.json on platforms without a keychain.
type keychainFile struct {
	ClaudeAiOauth struct {
		AccessToken string `json:"accessToken"`
	} `json:"claudeAiOauth"`
}

// Resolver turns provider settings into credentials. The lookups are
// injectable so tests never touch a real keychain.
type Resolver struct {
	readKeychain    func() ([]byte, error)
	credentialsPath string
}

// NewResolver creates a resolver backed by the real OS keychain and the
// default Claude Code credentials file.
func NewResolver() *Resolver {
	home, _ := os.UserHomeDir()
	return &Resolver{
		readKeychain:    readSecurityKeychain,
		credentialsPath: filepath.Join(home, ".claude", ".credentials.json"),
	}
}

// NewResolverWithLookup creates a resolver with custom credential
// sources, for tests.
func NewResolverWithLookup(readKeychain func() ([]byte, error), credentialsPath string) *Resolver {
	return &Resolver{readKeychain: readKeychain, credentialsPath: credentialsPath}
}

// ResolveClaudeCode resolves the claude_code credential. An explicit
// token from config wins; otherwise the keychain entry is read, falling
// back to the credentials file.
func (r *Resolver) ResolveClaudeCode(explicitToken string) (Credential, error) {
	if explicitToken != "" {
		return Credential{Token: explicitToken}, nil
	}

	token, err := r.lookupOAuthToken()
	if err != nil {
		return Credential{}, err
	}
	return Credential{Token: token}, nil
}

// ResolveCLIProxy assembles the cliproxy_claude credential from config.
// No I/O is involved.
func (r *Resolver) ResolveCLIProxy(managementToken, authIndex string) (Credential, error) {
	if managementToken == "" {
		return Credential{}, fmt.Errorf("%w: management_token", ErrMissingField)
	}
	if authIndex == "" {
		return Credential{}, fmt.Errorf("%w: auth_index", ErrMissingField)
	}
	return Credential{Token: managementToken, AuthIndex: authIndex}, nil
}

func (r *Resolver) lookupOAuthToken() (string, error) {
	if r.readKeychain != nil {
		data, err := r.readKeychain()
		switch {
		case err == nil:
			return parseOAuthToken(data)
		case errors.Is(err, ErrTokenNotFound):
			// No entry; the credentials file may still exist.
		case errors.Is(err, errNoKeychain):
			// Not a keychain platform; fall through to the file.
		default:
			return "", fmt.Errorf("%w: %v", ErrKeychainUnavailable, err)
		}
	}

	data, err := os.ReadFile(r.credentialsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeychainUnavailable, err)
	}
	return parseOAuthToken(data)
}

func parseOAuthToken(data []byte) (string, error) {
	var creds keychainFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", fmt.Errorf("%w: credential entry is not valid JSON: %v", ErrKeychainUnavailable, err)
	}
	token := strings.TrimSpace(creds.ClaudeAiOauth.AccessToken)
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

var errNoKeychain = errors.New("no keychain on this platform")

// readSecurityKeychain shells out to the macOS security(1) tool. The
// generic password data is the credentials JSON blob.
func readSecurityKeychain() ([]byte, error) {
	if runtime.GOOS != "darwin" {
		return nil, errNoKeychain
	}

	cmd := exec.Command("security", "find-generic-password", "-s", keychainService, "-w")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := string(exitErr.Stderr)
			// security exits 44 with this message when no item matches
			if strings.Contains(stderr, "could not be found") {
				return nil, ErrTokenNotFound
			}
			return nil, fmt.Errorf("security: %s", strings.TrimSpace(stderr))
		}
		return nil, err
	}
	return []byte(strings.TrimSpace(string(out))), nil
}
