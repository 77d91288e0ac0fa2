// Package sparql provides a catalog source that runs a SELECT query
// against a SPARQL endpoint.
package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
	"github.com/custodia-labs/clipsearch/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.CatalogSource = (*Source)(nil)

// DefaultTimeout bounds a whole query round trip.
const DefaultTimeout = 5 * time.Minute

// resultsMediaType is the W3C SPARQL 1.1 JSON results format.
const resultsMediaType = "application/sparql-results+json"

// Config holds configuration for the SPARQL source.
type Config struct {
	// Endpoint is the SPARQL endpoint URL.
	Endpoint string

	// Query is the SELECT query text.
	Query string

	// Timeout is the request timeout (default: 5m).
	Timeout time.Duration
}

// Source fetches a catalog table from a SPARQL endpoint.
type Source struct {
	client   *http.Client
	endpoint string
	query    string
}

// results is the subset of the JSON results format the catalog needs.
type results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]struct {
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

// NewSource creates a SPARQL catalog source.
func NewSource(cfg Config) *Source {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Source{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.Endpoint,
		query:    cfg.Query,
	}
}

// Fetch posts the query and returns one row per binding, with the
// projected variables as columns. Unbound variables are left empty.
func (s *Source) Fetch(ctx context.Context) (*domain.Table, error) {
	if s.endpoint == "" || s.query == "" {
		return nil, fmt.Errorf("sparql source needs an endpoint and a query: %w", domain.ErrConfiguration)
	}

	form := url.Values{"query": {s.query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("sparql: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", resultsMediaType)

	logger.Debug("Querying SPARQL endpoint %s", s.endpoint)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql: send request: %v: %w", err, domain.ErrExternalFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sparql: endpoint returned status %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrExternalFetch)
	}

	var res results
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("sparql: decode results: %v: %w", err, domain.ErrExternalFetch)
	}

	table := &domain.Table{
		Columns: res.Head.Vars,
		Rows:    make([]map[string]string, 0, len(res.Results.Bindings)),
	}
	for _, binding := range res.Results.Bindings {
		row := make(map[string]string, len(table.Columns))
		for _, v := range table.Columns {
			row[v] = binding[v].Value
		}
		table.Rows = append(table.Rows, row)
	}
	logger.Debug("SPARQL returned %d rows with columns %v", len(table.Rows), table.Columns)
	return table, nil
}
