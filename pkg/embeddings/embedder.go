package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/viterin/vek/vek32"

	"github.com/thakonkawin/deep-search-products/config"
	"github.com/thakonkawin/deep-search-products/internal"
	"github.com/thakonkawin/deep-search-products/pkg/models"
	"github.com/thakonkawin/deep-search-products/pkg/store"
)

var log = internal.GetLogger()

const (
	DefaultDimensions = 128
	DefaultImageSize  = 224

	embedRequestTimeout = 30 * time.Second
)

var _ models.Embedder = &ServiceEmbedder{}

// ServiceEmbedder computes image embeddings by preprocessing the image
// in-process and delegating the forward pass to an inference service.
// The returned vectors are normalized to unit L2 length. A ServiceEmbedder
// is immutable after construction and safe for concurrent use.
type ServiceEmbedder struct {
	serviceURL string
	dimensions int
	imageSize  int
	httpClient *http.Client
}

func NewServiceEmbedder(cfg *config.Config) *ServiceEmbedder {
	dimensions := cfg.Embeddings.Dimensions
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}
	imageSize := cfg.Embeddings.ImageSize
	if imageSize == 0 {
		imageSize = DefaultImageSize
	}
	return &ServiceEmbedder{
		serviceURL: cfg.Embeddings.ServiceURL,
		dimensions: dimensions,
		imageSize:  imageSize,
		httpClient: &http.Client{Timeout: embedRequestTimeout},
	}
}

func (e *ServiceEmbedder) Dimensions() int {
	return e.dimensions
}

// EmbedImage embeds raw image bytes. It fails with a BadRequestError on an
// empty payload and a DecodeError when the bytes are not a decodable image.
func (e *ServiceEmbedder) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, models.NewBadRequestError("image payload is empty")
	}

	tensor, err := preprocessImage(image, e.imageSize)
	if err != nil {
		return nil, err
	}

	embedding, err := e.requestEmbedding(ctx, tensor)
	if err != nil {
		return nil, err
	}

	if len(embedding) != e.dimensions {
		return nil, store.NewEmbeddingMismatchError(fmt.Errorf(
			"inference service returned %d dimensions, expected %d",
			len(embedding),
			e.dimensions,
		))
	}

	normalizeL2(embedding)

	return embedding, nil
}

// EmbedImageFile embeds an image read from the filesystem.
func (e *ServiceEmbedder) EmbedImageFile(ctx context.Context, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return e.EmbedImage(ctx, data)
}

type embedRequest struct {
	Tensor []float32 `json:"tensor"`
	Shape  [4]int    `json:"shape"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *ServiceEmbedder) requestEmbedding(
	ctx context.Context,
	tensor []float32,
) ([]float32, error) {
	url := e.serviceURL + "/embeddings/image"

	jsonBody, err := json.Marshal(embedRequest{
		Tensor: tensor,
		Shape:  [4]int{1, 3, e.imageSize, e.imageSize},
	})
	if err != nil {
		log.Error("Error marshaling request body:", err)
		return nil, err
	}

	bodyBytes, err := e.makeEmbedRequest(ctx, url, jsonBody)
	if err != nil {
		return nil, err
	}

	var response embedResponse
	err = json.Unmarshal(bodyBytes, &response)
	if err != nil {
		log.Errorf("Error unmarshaling response body: %s", err)
		return nil, err
	}

	return response.Embedding, nil
}

func (e *ServiceEmbedder) makeEmbedRequest(
	ctx context.Context,
	url string,
	jsonBody []byte,
) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := e.httpClient.Do(req)
	if err != nil {
		log.Error("Error making POST request:", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorString := fmt.Sprintf(
			"Error making POST request: %d - %s",
			resp.StatusCode,
			resp.Status,
		)
		log.Error(errorString)
		return nil, fmt.Errorf(errorString)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Error reading response body:", err)
		return nil, err
	}

	return bodyBytes, nil
}

// normalizeL2 scales the vector to unit L2 length in place. A zero vector
// is left unchanged.
func normalizeL2(v []float32) {
	norm := vek32.Norm(v)
	if norm == 0 {
		return
	}
	vek32.DivNumber_Inplace(v, norm)
}
