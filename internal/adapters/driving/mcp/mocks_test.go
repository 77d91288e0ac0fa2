package mcp

import (
	"context"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	response *domain.SearchResponse
	err      error
	last     domain.SearchRequest
}

func (m *mockSearchService) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	if m.response == nil {
		return &domain.SearchResponse{Results: []domain.ImageResult{}}, nil
	}
	return m.response, nil
}

func (m *mockSearchService) Resolve(rec domain.ResultRecord) (domain.ImageResult, error) {
	return domain.ImageResult{
		Score: rec.Score,
		URL:   rec.SourceURL,
		Link:  domain.RenditionURL(rec.SourceURL, 640),
	}, nil
}

// mockEngine is a mock implementation of driving.SimilarityEngine.
type mockEngine struct {
	stats     driving.EngineStats
	catalog   *domain.Catalog
	reloadErr error
	reloads   int
}

func (m *mockEngine) Query(context.Context, domain.QueryInput, int, float32) ([]domain.ResultRecord, error) {
	return nil, nil
}

func (m *mockEngine) Reload(context.Context) error {
	m.reloads++
	return m.reloadErr
}

func (m *mockEngine) Stats() driving.EngineStats { return m.stats }

func (m *mockEngine) Catalog() *domain.Catalog { return m.catalog }
