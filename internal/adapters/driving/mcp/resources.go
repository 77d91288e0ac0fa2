package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for clipsearch resources.
	uriScheme = "clipsearch://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Size and dimension of the loaded feature corpus",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "images/{localId}",
		Name:        "image-record",
		Description: "Catalog record of one image by its local identifier",
		MIMEType:    "application/json",
	}, s.handleImageResource)
}

// handleStatsResource returns the engine statistics.
func (s *Server) handleStatsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	var stats StatsOutput
	if s.ports.Engine != nil {
		stats = s.stats()
	}
	return jsonResource(req.Params.URI, stats)
}

// handleImageResource returns one catalog record.
func (s *Server) handleImageResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Engine == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract localId from URI: clipsearch://images/{localId}
	localID := extractLocalID(req.Params.URI)
	if localID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	rec, ok := s.ports.Engine.Catalog().Record(localID)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	type imageInfo struct {
		LocalID string            `json:"local_id"`
		URL     string            `json:"url"`
		Link    string            `json:"link"`
		Columns map[string]string `json:"columns,omitempty"`
	}

	res, err := s.ports.Search.Resolve(domain.ResultRecord{LocalID: rec.LocalID, SourceURL: rec.SourceURL})
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", localID, err)
	}

	return jsonResource(req.Params.URI, imageInfo{
		LocalID: rec.LocalID,
		URL:     res.URL,
		Link:    res.Link,
		Columns: rec.Columns,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractLocalID extracts the local ID from a URI like clipsearch://images/{localId}.
func extractLocalID(uri string) string {
	const prefix = uriScheme + "images/"

	id, ok := strings.CutPrefix(uri, prefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
