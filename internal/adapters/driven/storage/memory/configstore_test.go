package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("catalog.url_column", "iiif"))
	require.NoError(t, store.Set("acquire.concurrency", int64(8)))

	val, ok := store.Get("catalog.url_column")
	require.True(t, ok)
	assert.Equal(t, "iiif", val)

	val, ok = store.Get("acquire.concurrency")
	require.True(t, ok)
	assert.Equal(t, int64(8), val, "values keep their stored type")

	_, ok = store.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_SetReplaces(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("search.limit", 10))
	require.NoError(t, store.Set("search.limit", 20))

	val, _ := store.Get("search.limit")
	assert.Equal(t, 20, val)
}
