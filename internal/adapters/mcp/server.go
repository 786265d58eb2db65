package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/northbridge-ai/diligence/internal/core/domain"
	"github.com/northbridge-ai/diligence/internal/core/ports"
)

// NewServer exposes retrieval over MCP so agent hosts can search the data
// room directly. Tool results are newline-delimited JSON objects.
func NewServer(searcher ports.Searcher, answerer ports.Answerer, version string) *server.MCPServer {
	srv := server.NewMCPServer("diligence", version, server.WithToolCapabilities(false))

	searchTool := mcp.NewTool("search_documents",
		mcp.WithDescription("Search due diligence documents with hybrid semantic and keyword retrieval"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithString("category",
			mcp.Description("Document category to search: financial, legal, hr or market. Empty searches everything"),
		),
		mcp.WithString("company_id",
			mcp.Description("Restrict results to one company identifier, e.g. BBD"),
		),
		mcp.WithString("doc_type",
			mcp.Description("Restrict results to one document type, e.g. balance_sheet"),
		),
	)
	srv.AddTool(searchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, err := searchRequestFromTool(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results, err := searcher.Search(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response strings.Builder
		for _, r := range results {
			raw, err := json.Marshal(struct {
				Score    float64        `json:"score"`
				Content  string         `json:"content"`
				Metadata map[string]any `json:"metadata,omitempty"`
			}{
				Score:    r.Score,
				Content:  r.Content,
				Metadata: r.Metadata,
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			response.WriteString(string(raw))
			response.WriteString("\n")
		}

		return mcp.NewToolResultText(response.String()), nil
	})

	answerTool := mcp.NewTool("generate_answer",
		mcp.WithDescription("Answer a due diligence question grounded in retrieved documents"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Question to answer"),
		),
		mcp.WithString("category",
			mcp.Description("Document category to search: financial, legal, hr or market. Empty searches everything"),
		),
		mcp.WithString("company_id",
			mcp.Description("Restrict retrieval to one company identifier"),
		),
		mcp.WithString("doc_type",
			mcp.Description("Restrict retrieval to one document type"),
		),
	)
	srv.AddTool(answerTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, err := searchRequestFromTool(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		answer, sources, err := answerer.Answer(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		raw, err := json.Marshal(struct {
			Answer  string                   `json:"answer"`
			Sources []domain.RetrievalResult `json:"sources"`
		}{
			Answer:  answer,
			Sources: sources,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(raw)), nil
	})

	return srv
}

func searchRequestFromTool(request mcp.CallToolRequest) (domain.SearchRequest, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return domain.SearchRequest{}, err
	}
	if strings.TrimSpace(query) == "" {
		return domain.SearchRequest{}, fmt.Errorf("query must not be empty")
	}

	return domain.SearchRequest{
		Query:     query,
		Category:  request.GetString("category", ""),
		CompanyID: request.GetString("company_id", ""),
		DocType:   request.GetString("doc_type", ""),
	}, nil
}
