package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driving"
	"github.com/custodia-labs/clipsearch/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.SearchService = (*QueryService)(nil)

// QueryService turns engine matches into user-facing records. It owns the
// policy defaults for result count and score floor.
type QueryService struct {
	engine driving.SimilarityEngine

	limit    int
	minScore float32
	width    int
}

// NewQueryService creates a query façade over engine.
func NewQueryService(cfg domain.Config, engine driving.SimilarityEngine) *QueryService {
	limit := cfg.Search.Limit
	if limit < 1 {
		limit = domain.DefaultLimit
	}
	return &QueryService{
		engine:   engine,
		limit:    limit,
		minScore: cfg.Search.MinScore,
		width:    cfg.Acquire.ImageWidth,
	}
}

// Search applies defaults, queries the engine and resolves every match.
// Matches that cannot be joined to the catalog are reported in Failures;
// the rest of the ranking is still returned.
func (s *QueryService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	logger.Section("Search Execution")

	if err := domain.ValidateFields(req.Fields); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.limit
	}
	minScore := s.minScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	logger.Debug("Mode: %s, limit: %d, minScore: %.3f", req.Input.Mode, limit, minScore)

	records, err := s.engine.Query(ctx, req.Input, limit, minScore)
	if err != nil {
		return nil, err
	}

	resp := &domain.SearchResponse{Results: make([]domain.ImageResult, 0, len(records))}
	for _, rec := range records {
		res, err := s.Resolve(rec)
		if err != nil {
			logger.Warn("Unresolvable result %s: %v", rec.LocalID, err)
			resp.Failures = append(resp.Failures, domain.RecordFailure{
				LocalID: rec.LocalID,
				Score:   rec.Score,
				Err:     err,
				Message: err.Error(),
			})
			continue
		}
		resp.Results = append(resp.Results, res)
	}

	logger.Debug("Returning %d results, %d failures", len(resp.Results), len(resp.Failures))
	return resp, nil
}

// Resolve joins a match to its source URL and derives the display link.
// A local ID absent from the catalog is an integrity error.
func (s *QueryService) Resolve(rec domain.ResultRecord) (domain.ImageResult, error) {
	url := rec.SourceURL
	if url == "" {
		var ok bool
		url, ok = s.engine.Catalog().Lookup(rec.LocalID)
		if !ok {
			return domain.ImageResult{}, fmt.Errorf("local id %s has no catalog entry: %w", rec.LocalID, domain.ErrIntegrity)
		}
	}
	return domain.ImageResult{
		Score: rec.Score,
		URL:   url,
		Link:  domain.RenditionURL(url, s.width),
	}, nil
}
