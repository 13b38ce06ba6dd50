package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with the configuration tools registered.
func NewMCPServer(svc *ConfigService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "layercfg",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve",
		Description: "Resolve the game configuration for a set of build flags and enabled extensions. Reuses the current tree when the inputs allow it.",
	}, svc.Resolve)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_status",
		Description: "Get the resolver state, active core, flags, enabled extensions and index counts.",
	}, svc.GetStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_extensions",
		Description: "List the extensions loaded by the last resolution with their entries.",
	}, svc.ListExtensions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_cores",
		Description: "List the valid cores and which one is active.",
	}, svc.ListCores)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_provider",
		Description: "Find the extension that declared an entry such as an era or modification.",
	}, svc.FindProvider)

	return server
}

// RunStdio runs the server on stdio, blocking until stdin is closed or the
// context is cancelled.
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
