// Package mcp provides an MCP (Model Context Protocol) server adapter for clipsearch.
// It lets AI assistants run image similarity queries against the loaded corpus.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
