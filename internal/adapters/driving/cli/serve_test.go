package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

func TestWatchedFiles_LocalBackend(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	t.Setenv(domain.DataDirEnv, "")

	dir := t.TempDir()
	require.NoError(t, settingsService.Set("data_dir", dir))

	files := watchedFiles()

	assert.Equal(t, []string{
		filepath.Join(dir, "features", "features.npy"),
		filepath.Join(dir, "images.csv"),
	}, files)
	assert.NotContains(t, files, filepath.Join(dir, "features", "imageIds.csv"),
		"the id list is replaced before the vector file")
}

func TestWatchedFiles_AbsoluteCatalogPath(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	t.Setenv(domain.DataDirEnv, "")

	dir := t.TempDir()
	catalog := filepath.Join(t.TempDir(), "collection.csv")
	require.NoError(t, settingsService.Set("data_dir", dir))
	require.NoError(t, settingsService.Set("catalog.path", catalog))

	assert.Contains(t, watchedFiles(), catalog)
}

func TestWatchedFiles_RemoteBackend(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	require.NoError(t, settingsService.Set("storage.backend", "s3"))
	require.NoError(t, settingsService.Set("storage.s3.bucket", "images"))

	assert.Nil(t, watchedFiles())
}
