package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductImage is one stored reference image for a product: its embedding
// and, optionally, the raw image payload it was computed from.
type ProductImage struct {
	UUID        uuid.UUID `json:"uuid"`
	ProductCode string    `json:"product_code"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Image       []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
