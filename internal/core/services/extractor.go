package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"slices"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driving"
	"github.com/custodia-labs/clipsearch/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driving.Extractor = (*Extractor)(nil)

// imagesDir is where downloaded assets live in the file store.
const imagesDir = "images"

// Extractor embeds downloaded images batch by batch and consolidates the
// committed batches into the corpus.
type Extractor struct {
	files    driven.FileStore
	features driven.FeatureStore
	embedder driven.Embedder
	runs     driven.RunStore

	policy domain.FailurePolicy

	progress progress
}

// NewExtractor creates an extractor.
func NewExtractor(
	cfg domain.Config,
	files driven.FileStore,
	features driven.FeatureStore,
	embedder driven.Embedder,
) *Extractor {
	policy := cfg.Extract.FailurePolicy
	if !policy.IsValid() {
		policy = domain.DefaultFailurePolicy
	}
	return &Extractor{
		files:    files,
		features: features,
		embedder: embedder,
		policy:   policy,
	}
}

// SetRunStore records run summaries into store.
func (e *Extractor) SetRunStore(store driven.RunStore) {
	e.runs = store
}

// ExtractBatches embeds every stored image that no committed batch holds
// yet. Pending images, sorted by local ID, are grouped into batches of
// batchSize numbered after the highest committed batch, so a grown asset
// set only adds batches and never reshapes committed ones. Cancellation
// stops the run between batches; batches already committed stay durable.
func (e *Extractor) ExtractBatches(ctx context.Context, batchSize int) (*domain.RunSummary, error) {
	logger.Section("Feature Extraction")

	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d: %w", batchSize, domain.ErrInvalidInput)
	}

	ids, err := e.listAssets(ctx)
	if err != nil {
		return nil, err
	}
	embedded, next, err := e.committed(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := embedded[id]; !ok {
			pending = append(pending, id)
		}
	}

	run := startRun(domain.RunKindExtract)
	e.progress.reset(len(ids))
	e.progress.skipped.Add(int64(len(ids) - len(pending)))
	batches := (len(pending) + batchSize - 1) / batchSize
	logger.Info("Extracting %d of %d images in %d batches of %d (policy %s)",
		len(pending), len(ids), batches, batchSize, e.policy)

	for i := 0; i < batches; i++ {
		if err = ctx.Err(); err != nil {
			break
		}
		index := next + i
		batchIDs := pending[i*batchSize : min((i+1)*batchSize, len(pending))]

		dropped, batchErr := e.extractBatch(ctx, index, batchIDs)
		run.Dropped += dropped
		if batchErr != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
				break
			}
			logger.Warn("Batch %d skipped: %v", index, batchErr)
		}
	}

	e.progress.fill(run)
	finishRun(ctx, e.runs, run, err)
	return run, err
}

// committed returns the ids held by committed batches and the index the
// next batch should take.
func (e *Extractor) committed(ctx context.Context) (map[string]struct{}, int, error) {
	indexes, err := e.features.ListBatches(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	embedded := make(map[string]struct{})
	next := 0
	for _, i := range indexes {
		b, err := e.features.ReadBatch(ctx, i)
		if err != nil {
			return nil, 0, fmt.Errorf("read batch %d: %w", i, err)
		}
		for _, id := range b.IDs {
			embedded[id] = struct{}{}
		}
		next = max(next, i+1)
	}
	return embedded, next, nil
}

// listAssets returns the local IDs of every stored image, sorted.
func (e *Extractor) listAssets(ctx context.Context) ([]string, error) {
	paths, err := e.files.List(ctx, imagesDir)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		if id, ok := domain.LocalIDFromAssetPath(p); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// extractBatch embeds and commits one batch. It returns the number of
// healthy images lost because of another image's failure.
func (e *Extractor) extractBatch(ctx context.Context, index int, ids []string) (int, error) {
	keptIDs := make([]string, 0, len(ids))
	images := make([][]byte, 0, len(ids))

	for _, id := range ids {
		data, err := e.loadImage(ctx, id)
		if err != nil {
			e.progress.failed.Add(1)
			if e.policy == domain.FailurePolicyBatch {
				rest := len(ids) - 1
				e.progress.failed.Add(int64(rest))
				return rest, fmt.Errorf("image %s: %w", id, err)
			}
			logger.Warn("Dropping image %s from batch %d: %v", id, index, err)
			continue
		}
		keptIDs = append(keptIDs, id)
		images = append(images, data)
	}
	if len(images) == 0 {
		return 0, fmt.Errorf("no readable images: %w", domain.ErrProcessing)
	}

	vectors, err := e.embedder.EmbedImages(ctx, images)
	if err == nil && len(vectors) != len(images) {
		err = fmt.Errorf("embedder returned %d vectors for %d images: %w", len(vectors), len(images), domain.ErrProcessing)
	}
	if err != nil {
		if e.policy == domain.FailurePolicyBatch || ctx.Err() != nil {
			e.progress.failed.Add(int64(len(images)))
			return 0, fmt.Errorf("embed batch: %w", err)
		}
		logger.Warn("Batch %d embedding failed, retrying per image: %v", index, err)
		keptIDs, vectors = e.embedEach(ctx, index, keptIDs, images)
		if len(vectors) == 0 {
			return 0, fmt.Errorf("embed batch: %w", err)
		}
	}

	if err := e.checkDimensions(vectors); err != nil {
		e.progress.failed.Add(int64(len(vectors)))
		return 0, err
	}
	for _, v := range vectors {
		domain.Normalize(v)
	}

	batch := domain.FeatureBatch{Index: index, IDs: keptIDs, Vectors: vectors}
	if err := e.features.WriteBatch(ctx, batch); err != nil {
		e.progress.failed.Add(int64(len(vectors)))
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	e.progress.processed.Add(int64(len(vectors)))
	logger.Debug("Committed batch %d with %d vectors", index, len(vectors))
	return 0, nil
}

// embedEach embeds images one at a time, dropping those that fail.
func (e *Extractor) embedEach(ctx context.Context, index int, ids []string, images [][]byte) ([]string, [][]float32) {
	keptIDs := make([]string, 0, len(ids))
	vectors := make([][]float32, 0, len(ids))
	for i, data := range images {
		v, err := e.embedder.EmbedImage(ctx, data)
		if err != nil {
			e.progress.failed.Add(1)
			logger.Warn("Dropping image %s from batch %d: %v", ids[i], index, err)
			continue
		}
		keptIDs = append(keptIDs, ids[i])
		vectors = append(vectors, v)
	}
	return keptIDs, vectors
}

// loadImage reads an asset and checks that it decodes as an image.
func (e *Extractor) loadImage(ctx context.Context, id string) ([]byte, error) {
	data, err := e.files.Read(ctx, domain.AssetPath(id))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if err := validateImage(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (e *Extractor) checkDimensions(vectors [][]float32) error {
	want := e.embedder.Dimensions()
	for _, v := range vectors {
		if len(v) == 0 || (want > 0 && len(v) != want) {
			return fmt.Errorf("embedding has dimension %d, want %d: %w", len(v), want, domain.ErrProcessing)
		}
	}
	return nil
}

// validateImage checks that data carries a decodable image header.
func validateImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty image: %w", domain.ErrDecode)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	return nil
}

// Consolidate reads every committed batch in index order and replaces the
// corpus with their concatenation. It is safe to call repeatedly.
func (e *Extractor) Consolidate(ctx context.Context) (*domain.Corpus, error) {
	logger.Section("Consolidation")

	run := startRun(domain.RunKindConsolidate)
	corpus, err := e.consolidate(ctx, run)
	finishRun(ctx, e.runs, run, err)
	return corpus, err
}

func (e *Extractor) consolidate(ctx context.Context, run *domain.RunSummary) (*domain.Corpus, error) {
	indexes, err := e.features.ListBatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	run.Total = len(indexes)
	if len(indexes) == 0 {
		return nil, fmt.Errorf("no committed batches to consolidate: %w", domain.ErrProcessing)
	}

	batches := make([]domain.FeatureBatch, 0, len(indexes))
	for _, i := range indexes {
		b, err := e.features.ReadBatch(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("read batch %d: %w", i, err)
		}
		batches = append(batches, *b)
	}

	corpus, err := domain.NewCorpus(batches)
	if err != nil {
		return nil, err
	}
	if err := e.features.WriteCorpus(ctx, corpus); err != nil {
		return nil, fmt.Errorf("write corpus: %w", err)
	}
	run.Processed = corpus.Len()
	logger.Info("Consolidated %d batches into %d vectors of dimension %d", len(indexes), corpus.Len(), corpus.Dim)
	return corpus, nil
}

// Progress returns a snapshot of the running extraction.
func (e *Extractor) Progress() domain.Progress {
	return e.progress.snapshot()
}
