package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCatalog_FirstRecordWins(t *testing.T) {
	c := NewCatalog([]string{"iiif_url", LocalIDColumn}, []ImageRecord{
		{SourceURL: "https://a", LocalID: "1"},
		{SourceURL: "https://b", LocalID: "2"},
		{SourceURL: "https://a", LocalID: "1"},
	})

	assert.Equal(t, 2, c.Len())
	url, ok := c.Lookup("2")
	assert.True(t, ok)
	assert.Equal(t, "https://b", url)

	_, ok = c.Lookup("3")
	assert.False(t, ok)
}

func TestCatalog_Record(t *testing.T) {
	c := NewCatalog([]string{"title", LocalIDColumn}, []ImageRecord{
		{SourceURL: "https://a", LocalID: "1", Columns: map[string]string{"title": "A", LocalIDColumn: "1"}},
	})

	rec, ok := c.Record("1")
	assert.True(t, ok)
	assert.Equal(t, "A", rec.Columns["title"])

	_, ok = c.Record("2")
	assert.False(t, ok)
}

func TestCatalog_NilLookup(t *testing.T) {
	var c *Catalog
	_, ok := c.Lookup("x")
	assert.False(t, ok)
	_, ok = c.Record("x")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestRenditionURL(t *testing.T) {
	assert.Equal(t, "https://iiif.example/img/1/full/640,/0/default.jpg",
		RenditionURL("https://iiif.example/img/1", 640))
	assert.Equal(t, "/full/640,/0/default.jpg", RenditionSuffix(0))
	assert.Equal(t, "/full/320,/0/default.jpg", RenditionSuffix(320))
}

func TestAssetPath_RoundTrip(t *testing.T) {
	p := AssetPath("abc123")
	assert.Equal(t, "images/abc123.jpg", p)

	id, ok := LocalIDFromAssetPath(p)
	assert.True(t, ok)
	assert.Equal(t, "abc123", id)

	for _, bad := range []string{"features/abc.jpg", "images/abc.png", "images/.jpg", "images/a/b.jpg"} {
		_, ok := LocalIDFromAssetPath(bad)
		assert.False(t, ok, bad)
	}
}
