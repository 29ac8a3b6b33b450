// Package cliproxy fetches Claude usage through a CLIProxy instance's
// management API. The proxy holds the upstream OAuth credentials; we
// only hold the management secret and an auth index selecting which
// upstream account to report on.
package cliproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rmax-ai/traylord/pkg/credential"
	"github.com/rmax-ai/traylord/pkg/provider"
	"github.com/rmax-ai/traylord/pkg/provider/claudecode"
)

const apiCallPath = "/v0/management/api-call"

// tokenPlaceholder is substituted by the proxy with the selected
// account's real OAuth token before forwarding.
const tokenPlaceholder = "Bearer $TOKEN$"

type Client struct {
	id      provider.ProviderID
	baseURL string
	cred    credential.Credential
	client  *http.Client
}

func NewClient(id provider.ProviderID, baseURL string, cred credential.Credential) *Client {
	return &Client{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		cred:    cred,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) ID() provider.ProviderID {
	return c.id
}

// apiCallRequest is the management tunnel envelope: the proxy performs
// the described request with the selected account's credentials.
type apiCallRequest struct {
	AuthIndex string            `json:"authIndex"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Header    map[string]string `json:"header"`
}

type apiCallResponse struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

func (c *Client) Poll(ctx context.Context) (*provider.Snapshot, error) {
	body, err := c.tunnelGet(ctx, claudecode.DefaultBaseURL+"/api/oauth/usage")
	if err != nil {
		return nil, err
	}

	var usage claudecode.UsageResponse
	if err := json.Unmarshal(body, &usage); err != nil {
		return nil, provider.MalformedErr(err)
	}

	var profile *claudecode.ProfileResponse
	if profileBody, err := c.tunnelGet(ctx, claudecode.DefaultBaseURL+"/api/oauth/profile"); err == nil {
		var p claudecode.ProfileResponse
		if err := json.Unmarshal(profileBody, &p); err == nil {
			profile = &p
		}
	}

	return claudecode.ToSnapshot(c.id, &usage, profile, time.Now()), nil
}

// tunnelGet asks the proxy to perform one upstream GET and unwraps the
// response envelope.
func (c *Client) tunnelGet(ctx context.Context, upstreamURL string) ([]byte, error) {
	call := apiCallRequest{
		AuthIndex: c.cred.AuthIndex,
		Method:    "GET",
		URL:       upstreamURL,
		Header: map[string]string{
			"Authorization":  tokenPlaceholder,
			"Anthropic-Beta": "oauth-2025-04-20",
			"Content-Type":   "application/json",
		},
	}

	payload, err := json.Marshal(call)
	if err != nil {
		return nil, provider.MalformedErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+apiCallPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cred.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, provider.NetworkErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.NetworkErr(err)
	}
	if resp.StatusCode != http.StatusOK {
		// The outer status reflects management auth, not upstream state.
		return nil, provider.StatusErr(resp.StatusCode)
	}

	var envelope apiCallResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, provider.MalformedErr(err)
	}

	switch envelope.StatusCode {
	case http.StatusOK:
		return []byte(envelope.Body), nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: auth index %q", provider.ErrUnknownAuthIndex, c.cred.AuthIndex)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, provider.ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, provider.ErrRateLimited
	default:
		return nil, fmt.Errorf("%w: upstream HTTP %d: %s", provider.ErrMalformedResponse, envelope.StatusCode, envelope.Body)
	}
}
