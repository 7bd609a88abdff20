package embeddings

import (
	"context"
	"encoding/json"
	"image/color"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viterin/vek/vek32"

	"github.com/thakonkawin/deep-search-products/config"
	"github.com/thakonkawin/deep-search-products/pkg/models"
	"github.com/thakonkawin/deep-search-products/pkg/store"
)

// newEmbedTestServer returns a stub inference service that validates the
// request tensor shape and responds with a fixed raw embedding.
func newEmbedTestServer(t *testing.T, rawEmbedding []float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/embeddings/image", r.URL.Path)

			var req embedRequest
			err := json.NewDecoder(r.Body).Decode(&req)
			require.NoError(t, err)
			require.Equal(t, [4]int{1, 3, DefaultImageSize, DefaultImageSize}, req.Shape)
			require.Len(t, req.Tensor, 3*DefaultImageSize*DefaultImageSize)

			err = json.NewEncoder(w).Encode(embedResponse{Embedding: rawEmbedding})
			require.NoError(t, err)
		}),
	)
}

func newTestEmbedder(serviceURL string) *ServiceEmbedder {
	return NewServiceEmbedder(&config.Config{
		Embeddings: config.EmbeddingsConfig{
			ServiceURL: serviceURL,
		},
	})
}

func TestEmbedImage(t *testing.T) {
	ctx := context.Background()

	// The service returns an unnormalized vector; the embedder must
	// scale it to unit length.
	rawEmbedding := make([]float32, DefaultDimensions)
	for i := range rawEmbedding {
		rawEmbedding[i] = float32(i + 1)
	}

	server := newEmbedTestServer(t, rawEmbedding)
	defer server.Close()

	embedder := newTestEmbedder(server.URL)
	imageData := encodeTestImage(t, 100, 80, color.RGBA{R: 180, G: 40, B: 90, A: 255})

	embedding, err := embedder.EmbedImage(ctx, imageData)
	assert.NoError(t, err)
	assert.Len(t, embedding, DefaultDimensions)
	assert.InDelta(t, 1.0, float64(vek32.Norm(embedding)), 1e-5)
}

func TestEmbedImageEmptyPayload(t *testing.T) {
	embedder := newTestEmbedder("http://localhost:0")

	_, err := embedder.EmbedImage(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestEmbedImageUndecodable(t *testing.T) {
	embedder := newTestEmbedder("http://localhost:0")

	_, err := embedder.EmbedImage(context.Background(), []byte("junk bytes"))
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestEmbedImageDimensionMismatch(t *testing.T) {
	server := newEmbedTestServer(t, []float32{1, 2, 3})
	defer server.Close()

	embedder := newTestEmbedder(server.URL)
	imageData := encodeTestImage(t, 10, 10, color.White)

	_, err := embedder.EmbedImage(context.Background(), imageData)
	assert.ErrorIs(t, err, store.ErrEmbeddingMismatch)
	assert.Contains(t, err.Error(), "expected 128")
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	normalizeL2(v)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	zero := []float32{0, 0, 0}
	normalizeL2(zero)
	for _, x := range zero {
		assert.False(t, math.IsNaN(float64(x)))
		assert.Equal(t, float32(0), x)
	}
}
