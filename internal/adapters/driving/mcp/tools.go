package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

// SearchInput is the input schema for the search_images tool.
type SearchInput struct {
	Query    string   `json:"query" jsonschema:"free text, an image URL, or a base64 image depending on mode"`
	Mode     string   `json:"mode,omitempty" jsonschema:"one of text, url or image (default text)"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 100)"`
	MinScore *float64 `json:"min_score,omitempty" jsonschema:"similarity floor between -1 and 1 (default 0.2)"`
	Fields   []string `json:"fields,omitempty" jsonschema:"result fields to return: url, score, link (default all)"`
}

// SearchOutput is the output schema for the search_images tool.
type SearchOutput struct {
	Results  []map[string]any `json:"results"`
	Count    int              `json:"count"`
	Failures []FailureOutput  `json:"failures,omitempty"`
}

// FailureOutput reports a ranked image that could not be resolved.
type FailureOutput struct {
	LocalID string  `json:"local_id"`
	Score   float32 `json:"score"`
	Error   string  `json:"error"`
}

// StatsOutput describes the corpus being served.
type StatsOutput struct {
	Loaded     bool `json:"loaded"`
	Images     int  `json:"images"`
	Dimensions int  `json:"dimensions"`
	Catalog    int  `json:"catalog"`
}

// ReloadInput is the (empty) input schema for the reload_corpus tool.
type ReloadInput struct{}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_images",
		Description: "Find catalog images similar to a text description, an image URL or an uploaded image",
	}, s.handleSearch)

	if s.ports.Engine != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "reload_corpus",
			Description: "Reload the feature corpus and catalog from storage",
		}, s.handleReload)
	}
}

// handleSearch handles the search_images tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	mode := domain.QueryMode(input.Mode)
	if mode == "" {
		mode = domain.QueryModeText
	}

	req := domain.SearchRequest{
		Input:  domain.QueryInput{Mode: mode, Value: input.Query},
		Limit:  input.Limit,
		Fields: input.Fields,
	}
	if input.MinScore != nil {
		minScore := float32(*input.MinScore)
		req.MinScore = &minScore
	}

	resp, err := s.ports.Search.Search(ctx, req)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: domain.Project(resp.Results, input.Fields),
		Count:   len(resp.Results),
	}
	for _, f := range resp.Failures {
		output.Failures = append(output.Failures, FailureOutput{
			LocalID: f.LocalID,
			Score:   f.Score,
			Error:   f.Message,
		})
	}

	return nil, output, nil
}

// handleReload handles the reload_corpus tool invocation.
func (s *Server) handleReload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ReloadInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	if err := s.ports.Engine.Reload(ctx); err != nil {
		return nil, StatsOutput{}, fmt.Errorf("reloading corpus: %w", err)
	}
	return nil, s.stats(), nil
}

func (s *Server) stats() StatsOutput {
	st := s.ports.Engine.Stats()
	return StatsOutput{
		Loaded:     st.Loaded,
		Images:     st.Images,
		Dimensions: st.Dimensions,
		Catalog:    st.Catalog,
	}
}
