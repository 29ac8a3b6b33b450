// Package mcp adapts the traylord daemon to the Model Context
// Protocol, so agents can check their own subscription headroom before
// burning through it.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rmax-ai/traylord/pkg/api"
	"github.com/rmax-ai/traylord/pkg/client"
	"github.com/rmax-ai/traylord/pkg/config"
	"github.com/rmax-ai/traylord/pkg/format"
)

// Server adapts traylord-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"traylord",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// traylord://usage
	s.mcpServer.AddResource(mcp.NewResource(
		"traylord://usage",
		"Current Subscription Usage",
		mcp.WithResourceDescription("Latest usage snapshot for the configured LLM provider, including window utilization and reset times"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadUsage)
}

// --- Tools ---

func (s *Server) registerTools() {
	// get_usage
	s.mcpServer.AddTool(mcp.NewTool(
		"get_usage",
		mcp.WithDescription("Report current LLM subscription usage. Returns per-window utilization and time until each window resets."),
	), s.handleGetUsage)
}

// --- Handlers ---

func (s *Server) handleReadUsage(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	state, err := s.apiClient.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch state: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleGetUsage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := s.apiClient.GetState(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("traylord daemon unreachable: %v", err)), nil
	}

	return mcp.NewToolResultText(Summary(state)), nil
}

// Summary renders the state as a short plain-text report for tool
// output.
func Summary(resp api.StateResponse) string {
	snap := resp.State.Snapshot
	if snap == nil {
		if resp.State.LastError != "" {
			return fmt.Sprintf("No usage data yet; last fetch failed: %s", resp.State.LastError)
		}
		return "No usage data yet."
	}

	opts := format.Options{Mode: config.DisplayUsage, ResetFormat: config.ResetRelative}
	lines := format.Lines(snap, time.Now(), opts)

	if resp.Stale {
		lines = append(lines, fmt.Sprintf("Warning: data is stale, last fetch failed: %s", resp.State.LastError))
	}
	return strings.Join(lines, "\n")
}
