package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rmax-ai/traylord/pkg/client"
	"github.com/rmax-ai/traylord/pkg/mcp"
)

func main() {
	endpoint := flag.String("endpoint", client.DefaultEndpoint, "traylord-d API endpoint")
	flag.Parse()

	server := mcp.NewServer(*endpoint)
	if err := server.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
