// Package claudecode fetches subscription usage directly from the
// Anthropic OAuth usage endpoints, authenticated with the Claude Code
// OAuth token.
package claudecode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rmax-ai/traylord/pkg/provider"
)

const (
	// DefaultBaseURL is the production Anthropic API host.
	DefaultBaseURL = "https://api.anthropic.com"

	usagePath   = "/api/oauth/usage"
	profilePath = "/api/oauth/profile"

	// betaHeader is required for the OAuth usage endpoints.
	betaHeader = "oauth-2025-04-20"
)

// TokenSource returns a bearer token. It is called once at first use
// and again after an unauthorized response, so a keychain-backed source
// picks up rotated tokens.
type TokenSource func() (string, error)

// StaticToken returns a TokenSource that always yields the given token.
func StaticToken(token string) TokenSource {
	return func() (string, error) { return token, nil }
}

type Client struct {
	id      provider.ProviderID
	baseURL string
	tokens  TokenSource
	client  *http.Client

	mu    sync.Mutex
	token string
}

func NewClient(id provider.ProviderID, tokens TokenSource, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) ID() provider.ProviderID {
	return c.id
}

// Poll fetches the usage buckets and, best-effort, the account profile.
// A profile failure degrades to an empty tier rather than failing the
// poll.
func (c *Client) Poll(ctx context.Context) (*provider.Snapshot, error) {
	body, err := c.get(ctx, usagePath)
	if err != nil {
		return nil, err
	}

	var usage UsageResponse
	if err := json.Unmarshal(body, &usage); err != nil {
		return nil, provider.MalformedErr(err)
	}

	var profile *ProfileResponse
	if profileBody, err := c.get(ctx, profilePath); err == nil {
		var p ProfileResponse
		if err := json.Unmarshal(profileBody, &p); err == nil {
			profile = &p
		}
	}

	return ToSnapshot(c.id, &usage, profile, time.Now()), nil
}

// get performs one authenticated GET. On 401/403 the token source is
// consulted again and the request retried exactly once.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	token, err := c.currentToken(false)
	if err != nil {
		return nil, fmt.Errorf("resolving token: %w", err)
	}

	body, status, err := c.getWithToken(ctx, path, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		token, err = c.currentToken(true)
		if err != nil {
			return nil, provider.ErrUnauthorized
		}
		body, status, err = c.getWithToken(ctx, path, token)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, provider.StatusErr(status)
	}
	return body, nil
}

func (c *Client) getWithToken(ctx context.Context, path string, token string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("anthropic-beta", betaHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, provider.NetworkErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, provider.NetworkErr(err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) currentToken(refresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !refresh {
		return c.token, nil
	}
	token, err := c.tokens()
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}
