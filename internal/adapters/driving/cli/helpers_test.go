package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/clipsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driving"
	"github.com/custodia-labs/clipsearch/internal/core/services"
)

// Mock services shared by the command tests. setupTestServices resets them.
var (
	testAcquirer *mockAcquirer
	testExtract  *mockExtractor
	testEngine   *mockEngine
	testSearch   *mockSearch
	testRuns     *mockRunHistory
)

// setupTestServices injects mock services and returns a cleanup func that
// restores the previous ones along with every flag's default.
func setupTestServices() func() {
	prevSettings, prevAcq, prevExt := settingsService, acquirer, extractor
	prevEngine, prevSearch, prevRuns := engine, searchService, runHistory

	testAcquirer = &mockAcquirer{catalog: domain.NewCatalog([]string{"iiif_url", "localId"}, []domain.ImageRecord{
		{SourceURL: "https://iiif.example.org/a", LocalID: "a"},
	})}
	testExtract = &mockExtractor{corpus: &domain.Corpus{IDs: []string{"a"}, Dim: 3, Vectors: []float32{1, 0, 0}}}
	testEngine = &mockEngine{}
	testSearch = &mockSearch{resp: &domain.SearchResponse{Results: []domain.ImageResult{
		{Score: 0.91, URL: "https://iiif.example.org/a", Link: "https://iiif.example.org/a/full/640,/0/default.jpg"},
	}}}
	testRuns = &mockRunHistory{}

	settingsService = services.NewSettingsService(memory.NewConfigStore())
	acquirer = testAcquirer
	extractor = testExtract
	engine = testEngine
	searchService = testSearch
	runHistory = testRuns

	return func() {
		settingsService, acquirer, extractor = prevSettings, prevAcq, prevExt
		engine, searchService, runHistory = prevEngine, prevSearch, prevRuns
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
	}
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag in the tree, since cobra keeps parsed
// values between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

type mockAcquirer struct {
	catalog     *domain.Catalog
	catalogErr  error
	downloadErr error

	catalogCalls  int
	downloadCalls int
}

var _ driving.Acquirer = (*mockAcquirer)(nil)

func (m *mockAcquirer) AcquireCatalog(context.Context) (*domain.Catalog, *domain.RunSummary, error) {
	m.catalogCalls++
	run := testRun(domain.RunKindCatalog, m.catalog.Len())
	if m.catalogErr != nil {
		run.Error = m.catalogErr.Error()
		return nil, run, m.catalogErr
	}
	return m.catalog, run, nil
}

func (m *mockAcquirer) DownloadAssets(context.Context) (*domain.RunSummary, error) {
	m.downloadCalls++
	run := testRun(domain.RunKindDownload, m.catalog.Len())
	return run, m.downloadErr
}

func (m *mockAcquirer) Progress() domain.Progress { return domain.Progress{} }

type mockExtractor struct {
	corpus     *domain.Corpus
	extractErr error

	batchSize        int
	extractCalls     int
	consolidateCalls int
}

var _ driving.Extractor = (*mockExtractor)(nil)

func (m *mockExtractor) ExtractBatches(_ context.Context, batchSize int) (*domain.RunSummary, error) {
	m.extractCalls++
	m.batchSize = batchSize
	return testRun(domain.RunKindExtract, m.corpus.Len()), m.extractErr
}

func (m *mockExtractor) Consolidate(context.Context) (*domain.Corpus, error) {
	m.consolidateCalls++
	return m.corpus, nil
}

func (m *mockExtractor) Progress() domain.Progress { return domain.Progress{} }

type mockEngine struct {
	loaded      bool
	reloadErr   error
	reloadCalls int
}

var _ driving.SimilarityEngine = (*mockEngine)(nil)

func (m *mockEngine) Query(context.Context, domain.QueryInput, int, float32) ([]domain.ResultRecord, error) {
	return nil, nil
}

func (m *mockEngine) Reload(context.Context) error {
	m.reloadCalls++
	if m.reloadErr != nil {
		return m.reloadErr
	}
	m.loaded = true
	return nil
}

func (m *mockEngine) Stats() driving.EngineStats {
	if !m.loaded {
		return driving.EngineStats{}
	}
	return driving.EngineStats{Loaded: true, Images: 1, Dimensions: 3, Catalog: 1}
}

func (m *mockEngine) Catalog() *domain.Catalog { return nil }

type mockSearch struct {
	resp *domain.SearchResponse
	err  error
	last domain.SearchRequest
}

var _ driving.SearchService = (*mockSearch)(nil)

func (m *mockSearch) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *mockSearch) Resolve(rec domain.ResultRecord) (domain.ImageResult, error) {
	return domain.ImageResult{Score: rec.Score, URL: rec.SourceURL}, nil
}

type mockRunHistory struct {
	runs      []domain.RunSummary
	lastKind  domain.RunKind
	lastLimit int
}

var _ driving.RunHistory = (*mockRunHistory)(nil)

func (m *mockRunHistory) List(_ context.Context, kind domain.RunKind, limit int) ([]domain.RunSummary, error) {
	m.lastKind = kind
	m.lastLimit = limit
	return m.runs, nil
}

func testRun(kind domain.RunKind, total int) *domain.RunSummary {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &domain.RunSummary{
		ID:         string(kind) + "-1",
		Kind:       kind,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Total:      total,
		Processed:  total,
	}
}
