package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcpadapter "github.com/northbridge-ai/diligence/internal/adapters/mcp"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve retrieval tools over the Model Context Protocol",
	Long: `Starts an MCP server exposing search_documents and generate_answer
so agent hosts can query the data room. Communicates over stdio by
default; pass --addr to serve SSE over HTTP instead.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", "", "HTTP listen address for SSE mode, e.g. :8090 (empty = stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	app, _, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	srv := mcpadapter.NewServer(app.Searcher, app.Answerer, version)

	if mcpAddr != "" {
		sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://localhost%s", mcpAddr)))
		cmd.Printf("MCP server listening on %s\n", mcpAddr)
		return sse.Start(mcpAddr)
	}
	return server.ServeStdio(srv)
}
