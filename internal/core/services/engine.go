package services

import (
	"cmp"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driving"
	"github.com/custodia-labs/clipsearch/internal/logger"
)

// Ensure SimilarityEngine implements the interface.
var _ driving.SimilarityEngine = (*SimilarityEngine)(nil)

// engineState is one fully loaded corpus and its catalog. It is never
// mutated once published.
type engineState struct {
	corpus  *domain.Corpus
	catalog *domain.Catalog
}

// SimilarityEngine answers nearest-neighbour queries by brute-force cosine
// similarity over the whole corpus. Queries read an immutable snapshot and
// run concurrently without locking; Reload publishes a new snapshot.
type SimilarityEngine struct {
	features driven.FeatureStore
	catalogs driven.CatalogStore
	embedder driven.Embedder
	fetcher  driven.ImageFetcher

	state atomic.Pointer[engineState]
}

// NewSimilarityEngine creates an engine. Nothing is loaded until Load is
// called; the fetcher is only needed for URL queries and may be nil.
func NewSimilarityEngine(
	features driven.FeatureStore,
	catalogs driven.CatalogStore,
	embedder driven.Embedder,
	fetcher driven.ImageFetcher,
) *SimilarityEngine {
	return &SimilarityEngine{
		features: features,
		catalogs: catalogs,
		embedder: embedder,
		fetcher:  fetcher,
	}
}

// Load reads the corpus and catalog. A missing or malformed artefact is a
// configuration error; there is no degraded mode.
func (e *SimilarityEngine) Load(ctx context.Context) error {
	return e.Reload(ctx)
}

// Reload loads a fresh corpus and catalog and swaps them in atomically.
// On failure the previous state keeps serving.
func (e *SimilarityEngine) Reload(ctx context.Context) error {
	logger.Section("Corpus Load")

	corpus, err := e.features.ReadCorpus(ctx)
	if err != nil {
		return fmt.Errorf("%w: load corpus: %w", domain.ErrConfiguration, err)
	}
	if err := corpus.Validate(); err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	catalog, err := e.catalogs.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load catalog: %w", domain.ErrConfiguration, err)
	}

	e.state.Store(&engineState{corpus: corpus, catalog: catalog})
	logger.Info("Loaded %d vectors (dimension %d) and %d catalog records", corpus.Len(), corpus.Dim, catalog.Len())
	return nil
}

// Stats describes the loaded state.
func (e *SimilarityEngine) Stats() driving.EngineStats {
	st := e.state.Load()
	if st == nil {
		return driving.EngineStats{}
	}
	return driving.EngineStats{
		Loaded:     true,
		Images:     st.corpus.Len(),
		Dimensions: st.corpus.Dim,
		Catalog:    st.catalog.Len(),
	}
}

// Catalog returns the catalog loaded alongside the current corpus.
func (e *SimilarityEngine) Catalog() *domain.Catalog {
	st := e.state.Load()
	if st == nil {
		return nil
	}
	return st.catalog
}

// Query embeds the input, scores it against every corpus row and walks the
// ranking from the top, stopping at numResults records or at the first
// score below minScore, whichever comes first.
func (e *SimilarityEngine) Query(
	ctx context.Context, input domain.QueryInput, numResults int, minScore float32,
) ([]domain.ResultRecord, error) {
	st := e.state.Load()
	if st == nil {
		return nil, fmt.Errorf("corpus not loaded: %w", domain.ErrConfiguration)
	}
	if numResults < 0 {
		return nil, fmt.Errorf("negative result count %d: %w", numResults, domain.ErrInvalidInput)
	}

	query, err := e.embedQuery(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(query) != st.corpus.Dim && st.corpus.Len() > 0 {
		return nil, fmt.Errorf("query dimension %d does not match corpus dimension %d: %w",
			len(query), st.corpus.Dim, domain.ErrConfiguration)
	}
	domain.Normalize(query)

	logger.Debug("Scoring %s query against %d vectors", input.Mode, st.corpus.Len())
	results := rank(st.corpus, query, numResults, minScore)

	// Join from the same snapshot; a miss is left for the caller to report.
	for i := range results {
		if url, ok := st.catalog.Lookup(results[i].LocalID); ok {
			results[i].SourceURL = url
		}
	}
	return results, nil
}

// rank scores every row and returns the thresholded top of the ranking.
func rank(corpus *domain.Corpus, query []float32, numResults int, minScore float32) []domain.ResultRecord {
	n := corpus.Len()
	scores := make([]float32, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		scores[i] = domain.Dot(query, corpus.Row(i))
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	results := make([]domain.ResultRecord, 0, min(numResults, n))
	for _, i := range order {
		// NaN sorts last and never passes the floor.
		if len(results) >= numResults || !(scores[i] >= minScore) {
			break
		}
		results = append(results, domain.ResultRecord{Score: scores[i], LocalID: corpus.IDs[i]})
	}
	return results
}

// embedQuery resolves the input to text or image bytes and embeds it.
func (e *SimilarityEngine) embedQuery(ctx context.Context, input domain.QueryInput) ([]float32, error) {
	switch input.Mode {
	case domain.QueryModeText:
		if strings.TrimSpace(input.Value) == "" {
			return nil, fmt.Errorf("empty text query: %w", domain.ErrInvalidInput)
		}
		return e.embed(e.embedder.EmbedText(ctx, input.Value))

	case domain.QueryModeURL:
		if e.fetcher == nil {
			return nil, fmt.Errorf("url queries need an image fetcher: %w", domain.ErrConfiguration)
		}
		data, err := e.fetcher.Fetch(ctx, input.Value)
		if err != nil {
			return nil, fmt.Errorf("fetch query image: %w", err)
		}
		if err := validateImage(data); err != nil {
			return nil, err
		}
		return e.embed(e.embedder.EmbedImage(ctx, data))

	case domain.QueryModeImage:
		data, err := DecodeImagePayload(input.Value)
		if err != nil {
			return nil, err
		}
		return e.embed(e.embedder.EmbedImage(ctx, data))

	default:
		return nil, fmt.Errorf("unknown query mode %q: %w", input.Mode, domain.ErrInvalidInput)
	}
}

func (e *SimilarityEngine) embed(v []float32, err error) ([]float32, error) {
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("embedder returned an empty vector: %w", domain.ErrProcessing)
	}
	if !domain.Finite(v) {
		return nil, fmt.Errorf("embedder returned a non-finite vector: %w", domain.ErrProcessing)
	}
	return v, nil
}

// DecodeImagePayload decodes a base64 image, stripping an optional
// "data:<type>;base64," header, and checks that the bytes are an image.
func DecodeImagePayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		_, rest, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, fmt.Errorf("data uri without payload: %w", domain.ErrDecode)
		}
		payload = rest
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return nil, fmt.Errorf("empty image payload: %w", domain.ErrDecode)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(payload)
		if rawErr != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDecode, errors.Join(err, rawErr))
		}
	}
	if err := validateImage(data); err != nil {
		return nil, err
	}
	return data, nil
}
