package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

func TestCatalogCmd_RequiresSource(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("catalog")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Zero(t, testAcquirer.catalogCalls)
}

func TestCatalogCmd_WithCSV(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("catalog", "--csv", "catalog.csv")

	require.NoError(t, err)
	assert.Equal(t, 1, testAcquirer.catalogCalls)
	assert.Contains(t, out, "catalog: 1 total, 1 processed, 0 skipped, 0 failed in 1.5s")
	assert.Contains(t, out, "Catalog holds 1 images.")
}

func TestCatalogCmd_ConflictingSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, settingsService.Set("catalog.endpoint", "https://query.example.org/sparql"))
	require.NoError(t, settingsService.Set("catalog.query", "SELECT ?iiif_url WHERE {}"))
	require.NoError(t, settingsService.Set("catalog.csv", "catalog.csv"))

	_, err := execute("catalog")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestCatalogCmd_CSVFlagOverridesConfiguredSPARQL(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, settingsService.Set("catalog.endpoint", "https://query.example.org/sparql"))
	require.NoError(t, settingsService.Set("catalog.query", "SELECT ?iiif_url WHERE {}"))

	_, err := execute("catalog", "--csv", "catalog.csv")

	require.NoError(t, err)
}

func TestPipelineConfig_QueryFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "query.rq")
	require.NoError(t, os.WriteFile(path, []byte("SELECT ?iiif_url WHERE {}"), 0o600))
	catalogEndpoint = "https://query.example.org/sparql"
	catalogQueryFile = path

	cfg, err := pipelineConfig()

	require.NoError(t, err)
	assert.Equal(t, domain.CatalogModeSPARQL, cfg.Catalog.Mode)
	assert.Equal(t, "SELECT ?iiif_url WHERE {}", cfg.Catalog.Query)
	assert.Equal(t, domain.DefaultURLColumn, cfg.Catalog.URLColumn)
	assert.Empty(t, catalogQuery, "flag value is not rewritten")
}

func TestPipelineConfig_MissingQueryFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	catalogQueryFile = filepath.Join(t.TempDir(), "missing.rq")

	_, err := pipelineConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read query file")
}

func TestCatalogCmd_Failure(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testAcquirer.catalogErr = fmt.Errorf("endpoint down: %w", domain.ErrExternalFetch)

	out, err := execute("catalog", "--csv", "catalog.csv")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalFetch)
	assert.Contains(t, out, "catalog:", "the run summary is still printed")
}

func TestDownloadCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("download")

	require.NoError(t, err)
	assert.Equal(t, 1, testAcquirer.downloadCalls)
	assert.Contains(t, out, "download: 1 total")
}

func TestExtractCmd_BatchSize(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("extract")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultBatchSize, testExtract.batchSize)

	_, err = execute("extract", "-b", "8")
	require.NoError(t, err)
	assert.Equal(t, 8, testExtract.batchSize)
}

func TestExtractCmd_ConfiguredBatchSize(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, settingsService.Set("extract.batch_size", "16"))

	_, err := execute("extract")

	require.NoError(t, err)
	assert.Equal(t, 16, testExtract.batchSize)
}

func TestConsolidateCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("consolidate")

	require.NoError(t, err)
	assert.Contains(t, out, "Corpus holds 1 vectors of dimension 3.")
}

func TestBuildCmd_RunsEveryStep(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("build", "--csv", "catalog.csv", "--batch-size", "4")

	require.NoError(t, err)
	assert.Equal(t, 1, testAcquirer.catalogCalls)
	assert.Equal(t, 1, testAcquirer.downloadCalls)
	assert.Equal(t, 1, testExtract.extractCalls)
	assert.Equal(t, 4, testExtract.batchSize)
	assert.Equal(t, 1, testExtract.consolidateCalls)
	assert.Contains(t, out, "Build complete.")
}

func TestBuildCmd_StopsOnFailure(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testExtract.extractErr = errors.New("embedding server gone")

	out, err := execute("build", "--csv", "catalog.csv")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract failed")
	assert.Zero(t, testExtract.consolidateCalls)
	assert.NotContains(t, out, "Build complete.")
}

func TestBuildCmd_RequiresSourceBeforeWork(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("build")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Zero(t, testAcquirer.catalogCalls)
	assert.Zero(t, testExtract.extractCalls)
}
