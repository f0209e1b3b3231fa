package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// QueryInput is the input schema for the query_knowledge tool.
type QueryInput struct {
	Query string `json:"query" jsonschema:"the question to retrieve context for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of chunks to retrieve (default 10)"`
}

// QueryOutput is the output schema for the query_knowledge tool.
type QueryOutput struct {
	Context string `json:"context"`
}

// RebuildInput is the input schema for the rebuild_index tool.
type RebuildInput struct {
	Force bool `json:"force,omitempty" jsonschema:"re-index all files even if unchanged"`
}

// RebuildOutput is the output schema for the rebuild_index tool.
type RebuildOutput struct {
	FilesScanned   int `json:"files_scanned"`
	FilesProcessed int `json:"files_processed"`
	FilesUnchanged int `json:"files_unchanged"`
	FilesRemoved   int `json:"files_removed"`
	ChunksIndexed  int `json:"chunks_indexed"`
	ErrorCount     int `json:"error_count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_knowledge",
		Description: "Retrieve relevant knowledge base context for a question",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rebuild_index",
		Description: "Scan the knowledge directory and update the index",
	}, s.handleRebuild)
}

// handleQuery handles the query_knowledge tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	context, err := s.ports.Knowledge.ContextForQuery(ctx, input.Query, input.TopK)
	if err != nil {
		return nil, QueryOutput{}, err
	}
	return nil, QueryOutput{Context: context}, nil
}

// handleRebuild handles the rebuild_index tool invocation.
func (s *Server) handleRebuild(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RebuildInput,
) (*mcp.CallToolResult, RebuildOutput, error) {
	report, err := s.ports.Knowledge.BuildIndex(ctx, input.Force)
	if err != nil {
		return nil, RebuildOutput{}, err
	}
	return nil, RebuildOutput{
		FilesScanned:   report.FilesScanned,
		FilesProcessed: report.FilesProcessed,
		FilesUnchanged: report.FilesUnchanged,
		FilesRemoved:   report.FilesRemoved,
		ChunksIndexed:  report.ChunksIndexed,
		ErrorCount:     report.ErrorCount,
	}, nil
}
