package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clipsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

func TestParseTable(t *testing.T) {
	input := "\ufeffiiif_url,title\nhttps://a,\"A, quoted\"\nhttps://b\n"
	table, err := ParseTable(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"iiif_url", "title"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "A, quoted", table.Rows[0]["title"])
	assert.Equal(t, "https://b", table.Rows[1]["iiif_url"])
	assert.Equal(t, "", table.Rows[1]["title"])
}

func TestParseTable_Empty(t *testing.T) {
	_, err := ParseTable(strings.NewReader(""))
	assert.Error(t, err)
}

func TestSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte("iiif_url\nhttps://a\n"), 0o644))

	table, err := NewSource(path).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"iiif_url"}, table.Columns)
	assert.Len(t, table.Rows, 1)
}

func TestSource_Fetch_Missing(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "nope.csv")).Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	files := memory.NewFileStore()
	store := NewStore(files, "", "")

	columns := []string{"iiif_url", "title", domain.LocalIDColumn}
	catalog := domain.NewCatalog(columns, []domain.ImageRecord{
		{SourceURL: "https://a", LocalID: "id-a", Columns: map[string]string{
			"iiif_url": "https://a", "title": "A", domain.LocalIDColumn: "id-a",
		}},
		{SourceURL: "https://b", LocalID: "id-b"},
	})
	require.NoError(t, store.Save(ctx, catalog))

	raw, err := files.Read(ctx, domain.DefaultCatalogPath)
	require.NoError(t, err)
	assert.Equal(t, "iiif_url,title,localIdentifier\nhttps://a,A,id-a\nhttps://b,,id-b\n", string(raw))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, columns, loaded.Columns)
	assert.Equal(t, 2, loaded.Len())
	url, ok := loaded.Lookup("id-b")
	assert.True(t, ok)
	assert.Equal(t, "https://b", url)
}

func TestStore_Load_Missing(t *testing.T) {
	_, err := NewStore(memory.NewFileStore(), "custom.csv", "").Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Load_NoIDColumn(t *testing.T) {
	ctx := context.Background()
	files := memory.NewFileStore()
	require.NoError(t, files.Write(ctx, "images.csv", []byte("iiif_url\nhttps://a\n")))

	_, err := NewStore(files, "", "").Load(ctx)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestStore_Load_WrongURLColumn(t *testing.T) {
	ctx := context.Background()
	files := memory.NewFileStore()
	require.NoError(t, files.Write(ctx, "images.csv", []byte("iiif_url,localIdentifier\nhttps://a,x\n")))

	_, err := NewStore(files, "", "image").Load(ctx)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
