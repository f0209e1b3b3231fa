// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It lets AI assistants query the knowledge base and trigger index
// rebuilds over stdio or HTTP.
package mcp

import "errors"

// ErrMissingKnowledgeService is returned when the knowledge service is not provided.
var ErrMissingKnowledgeService = errors.New("mcp: knowledge service is required")
