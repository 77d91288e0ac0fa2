package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
)

// pngBytes encodes a 2x2 image of a single colour.
func pngBytes(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// Colours used as test images. Their embeddings are their RGB channels.
var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	teal  = color.RGBA{G: 200, B: 200, A: 255}
)

// fakeEmbedder embeds an image as the RGB of its first pixel and a text as
// the vector registered for it. It is safe for concurrent use.
type fakeEmbedder struct {
	mu    sync.Mutex
	texts map[string][]float32
	dims  int

	batchErr error
	// failColour makes every image of this colour fail to embed.
	failColour *color.RGBA

	batchCalls  atomic.Int32
	singleCalls atomic.Int32
	textCalls   atomic.Int32
}

var _ driven.Embedder = (*fakeEmbedder)(nil)

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{texts: make(map[string][]float32), dims: 3}
}

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	f.textCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.texts[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q: %w", text, domain.ErrEmbeddingUnavailable)
	}
	return append([]float32(nil), v...), nil
}

func (f *fakeEmbedder) EmbedImage(_ context.Context, data []byte) ([]float32, error) {
	f.singleCalls.Add(1)
	return f.embedImage(data)
}

func (f *fakeEmbedder) EmbedImages(_ context.Context, images [][]byte) ([][]float32, error) {
	f.batchCalls.Add(1)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float32, len(images))
	for i, data := range images {
		v, err := f.embedImage(data)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) embedImage(data []byte) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	c := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
	if f.failColour != nil && *f.failColour == c {
		return nil, errors.New("model rejected image")
	}
	return []float32{float32(c.R), float32(c.G), float32(c.B)}, nil
}

func (f *fakeEmbedder) Dimensions() int            { return f.dims }
func (f *fakeEmbedder) ModelName() string          { return "fake" }
func (f *fakeEmbedder) Ping(context.Context) error { return nil }
func (f *fakeEmbedder) Close() error               { return nil }

// fakeFetcher serves registered URLs and counts every call.
type fakeFetcher struct {
	mu    sync.Mutex
	body  map[string][]byte
	calls atomic.Int32
	urls  []string
}

var _ driven.ImageFetcher = (*fakeFetcher)(nil)

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{body: make(map[string][]byte)}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	data, ok := f.body[url]
	if !ok {
		return nil, fmt.Errorf("fetch %s: status 404: %w", url, domain.ErrExternalFetch)
	}
	return data, nil
}

// fakeSource returns a fixed table.
type fakeSource struct {
	table *domain.Table
	err   error
}

var _ driven.CatalogSource = (*fakeSource)(nil)

func (f *fakeSource) Fetch(context.Context) (*domain.Table, error) {
	return f.table, f.err
}

// failingCatalogIndex rejects every upsert.
type failingCatalogIndex struct{}

func (failingCatalogIndex) Upsert(context.Context, []domain.ImageRecord) error {
	return errors.New("disk full")
}

func (failingCatalogIndex) Get(context.Context, string) (*domain.ImageRecord, error) {
	return nil, domain.ErrNotFound
}

func (failingCatalogIndex) Count(context.Context) (int, error) { return 0, nil }
