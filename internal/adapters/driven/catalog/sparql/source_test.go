package sparql

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

const sampleResults = `{
  "head": {"vars": ["iiif_url", "title"]},
  "results": {"bindings": [
    {"iiif_url": {"type": "uri", "value": "https://iiif.example.org/a"}, "title": {"type": "literal", "value": "A"}},
    {"iiif_url": {"type": "uri", "value": "https://iiif.example.org/b"}}
  ]}
}`

func TestSource_Fetch(t *testing.T) {
	var gotQuery, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotQuery = r.FormValue("query")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", resultsMediaType)
		_, _ = w.Write([]byte(sampleResults))
	}))
	defer server.Close()

	src := NewSource(Config{Endpoint: server.URL, Query: "SELECT ?iiif_url ?title WHERE {}"})
	table, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "SELECT ?iiif_url ?title WHERE {}", gotQuery)
	assert.Equal(t, resultsMediaType, gotAccept)
	assert.Equal(t, []string{"iiif_url", "title"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "https://iiif.example.org/a", table.Rows[0]["iiif_url"])
	assert.Equal(t, "A", table.Rows[0]["title"])
	assert.Equal(t, "", table.Rows[1]["title"])
}

func TestSource_Fetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "query timeout", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewSource(Config{Endpoint: server.URL, Query: "SELECT * {}"}).Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrExternalFetch)
	assert.ErrorContains(t, err, "503")
}

func TestSource_Fetch_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer server.Close()

	_, err := NewSource(Config{Endpoint: server.URL, Query: "SELECT * {}"}).Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrExternalFetch)
}

func TestSource_Fetch_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	_, err := NewSource(Config{Endpoint: endpoint, Query: "SELECT * {}"}).Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrExternalFetch)
}

func TestSource_Fetch_NotConfigured(t *testing.T) {
	_, err := NewSource(Config{Endpoint: "http://localhost"}).Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
