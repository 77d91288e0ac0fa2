package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driving"
)

// recordingEngine captures the arguments of the last query.
type recordingEngine struct {
	limit    int
	minScore float32
	results  []domain.ResultRecord
	err      error
	catalog  *domain.Catalog
}

var _ driving.SimilarityEngine = (*recordingEngine)(nil)

func (r *recordingEngine) Query(_ context.Context, _ domain.QueryInput, n int, minScore float32) ([]domain.ResultRecord, error) {
	r.limit = n
	r.minScore = minScore
	return r.results, r.err
}

func (r *recordingEngine) Reload(context.Context) error { return nil }
func (r *recordingEngine) Stats() driving.EngineStats   { return driving.EngineStats{} }
func (r *recordingEngine) Catalog() *domain.Catalog     { return r.catalog }

func cyanRequest() domain.SearchRequest {
	return domain.SearchRequest{Input: domain.QueryInput{Mode: domain.QueryModeText, Value: "cyan"}}
}

func TestQueryService_Search(t *testing.T) {
	f := newEngineFixture(t).load(t)
	svc := NewQueryService(domain.DefaultConfig(), f.engine)

	resp, err := svc.Search(context.Background(), cyanRequest())
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://iiif.example.org/b", resp.Results[0].URL)
	assert.Equal(t, "https://iiif.example.org/b/full/640,/0/default.jpg", resp.Results[0].Link)
	assert.InDelta(t, 0.7071, resp.Results[0].Score, 1e-4)
	assert.Equal(t, "https://iiif.example.org/c", resp.Results[1].URL)

	require.Len(t, resp.Failures, 1, "d is ranked first but has no catalog entry")
	assert.Equal(t, "d", resp.Failures[0].LocalID)
	assert.ErrorIs(t, resp.Failures[0].Err, domain.ErrIntegrity)
	assert.NotEmpty(t, resp.Failures[0].Message)
}

func TestQueryService_ExplicitZeroMinScore(t *testing.T) {
	f := newEngineFixture(t).load(t)
	svc := NewQueryService(domain.DefaultConfig(), f.engine)

	req := cyanRequest()
	zero := float32(0)
	req.MinScore = &zero

	resp, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "https://iiif.example.org/a", resp.Results[2].URL)
	assert.Zero(t, resp.Results[2].Score)
}

func TestQueryService_EmptyResultIsSuccess(t *testing.T) {
	f := newEngineFixture(t).load(t)
	svc := NewQueryService(domain.DefaultConfig(), f.engine)

	req := cyanRequest()
	high := float32(2)
	req.MinScore = &high

	resp, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Empty(t, resp.Failures)
}

func TestQueryService_Defaults(t *testing.T) {
	engine := &recordingEngine{}
	svc := NewQueryService(domain.DefaultConfig(), engine)

	_, err := svc.Search(context.Background(), cyanRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLimit, engine.limit)
	assert.Equal(t, domain.DefaultMinScore, engine.minScore)

	req := cyanRequest()
	req.Limit = 5
	score := float32(0.75)
	req.MinScore = &score
	_, err = svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 5, engine.limit)
	assert.Equal(t, float32(0.75), engine.minScore)
}

func TestQueryService_ConfiguredDefaults(t *testing.T) {
	engine := &recordingEngine{}
	cfg := domain.DefaultConfig()
	cfg.Search.Limit = 7
	cfg.Search.MinScore = 0.4
	svc := NewQueryService(cfg, engine)

	_, err := svc.Search(context.Background(), cyanRequest())
	require.NoError(t, err)
	assert.Equal(t, 7, engine.limit)
	assert.Equal(t, float32(0.4), engine.minScore)
}

func TestQueryService_InvalidFields(t *testing.T) {
	engine := &recordingEngine{}
	svc := NewQueryService(domain.DefaultConfig(), engine)

	req := cyanRequest()
	req.Fields = []string{"url", "thumbnail"}
	_, err := svc.Search(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, engine.limit, "the engine is not queried")
}

func TestQueryService_EngineError(t *testing.T) {
	engine := &recordingEngine{err: domain.ErrConfiguration}
	svc := NewQueryService(domain.DefaultConfig(), engine)

	_, err := svc.Search(context.Background(), cyanRequest())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestQueryService_Resolve(t *testing.T) {
	engine := &recordingEngine{catalog: domain.NewCatalog(nil, []domain.ImageRecord{
		{LocalID: "x", SourceURL: "https://iiif.example.org/x"},
	})}
	cfg := domain.DefaultConfig()
	cfg.Acquire.ImageWidth = 320
	svc := NewQueryService(cfg, engine)

	res, err := svc.Resolve(domain.ResultRecord{LocalID: "x", Score: 0.5})
	require.NoError(t, err)
	assert.Equal(t, domain.ImageResult{
		Score: 0.5,
		URL:   "https://iiif.example.org/x",
		Link:  "https://iiif.example.org/x/full/320,/0/default.jpg",
	}, res)

	res, err = svc.Resolve(domain.ResultRecord{LocalID: "y", SourceURL: "https://iiif.example.org/y"})
	require.NoError(t, err)
	assert.Equal(t, "https://iiif.example.org/y", res.URL, "a joined record needs no lookup")

	_, err = svc.Resolve(domain.ResultRecord{LocalID: "y"})
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestQueryService_ResolveBeforeLoad(t *testing.T) {
	svc := NewQueryService(domain.DefaultConfig(), &recordingEngine{})

	_, err := svc.Resolve(domain.ResultRecord{LocalID: "x"})
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}
