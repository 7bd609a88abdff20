package models

import "context"

// Embedder produces a fixed-length, unit-norm embedding vector for an
// image. Implementations must be safe for concurrent use.
type Embedder interface {
	// EmbedImage embeds raw image bytes.
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
	// Dimensions returns the configured embedding width.
	Dimensions() int
}
