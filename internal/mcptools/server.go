// Package mcptools exposes the appeal pipeline as MCP tools.
package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewAppealMCPServer creates an MCP server with the draft_appeal,
// compute_deadline and list_agents tools registered.
func NewAppealMCPServer(svc *AppealService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "appealdraft",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "draft_appeal",
		Description: "Draft an appeal against a Spanish traffic fine. Several LLM agents draft in parallel and their drafts are merged. Returns the appeal text, the filing deadline and submission instructions.",
	}, svc.DraftAppeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compute_deadline",
		Description: "Compute the appeal deadline (allegations or reposition) from the notification date in a fine's text. No LLM is called.",
	}, svc.ComputeDeadline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_agents",
		Description: "List the configured drafting agents and whether each has a credential.",
	}, svc.ListAgents)

	return server
}

// RunStdio runs the server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP tools over streamable HTTP on addr.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
