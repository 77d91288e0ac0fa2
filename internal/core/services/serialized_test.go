package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// overlapEmbedder fails the test if two calls overlap.
type overlapEmbedder struct {
	*fakeEmbedder
	active  atomic.Int32
	overlap atomic.Bool
}

func (o *overlapEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if o.active.Add(1) > 1 {
		o.overlap.Store(true)
	}
	defer o.active.Add(-1)
	time.Sleep(time.Millisecond)
	return o.fakeEmbedder.EmbedText(ctx, text)
}

func TestSerializedEmbedder_OneCallAtATime(t *testing.T) {
	inner := &overlapEmbedder{fakeEmbedder: newFakeEmbedder()}
	inner.texts["q"] = []float32{1, 2, 3}
	embedder := NewSerializedEmbedder(inner)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := embedder.EmbedText(context.Background(), "q")
			assert.NoError(t, err)
			assert.Equal(t, []float32{1, 2, 3}, v)
		}()
	}
	wg.Wait()

	assert.False(t, inner.overlap.Load())
	assert.Equal(t, int32(10), inner.textCalls.Load())
}

func TestSerializedEmbedder_Delegates(t *testing.T) {
	inner := newFakeEmbedder()
	embedder := NewSerializedEmbedder(inner)
	ctx := context.Background()

	assert.Equal(t, 3, embedder.Dimensions())
	assert.Equal(t, "fake", embedder.ModelName())
	require.NoError(t, embedder.Ping(ctx))

	v, err := embedder.EmbedImage(ctx, pngBytes(t, blue))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 255}, v)

	vs, err := embedder.EmbedImages(ctx, [][]byte{pngBytes(t, red), pngBytes(t, green)})
	require.NoError(t, err)
	assert.Len(t, vs, 2)

	assert.NoError(t, embedder.Close())
}
