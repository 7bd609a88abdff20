package models

import (
	"context"

	"github.com/google/uuid"
)

// CatalogStore interface
type CatalogStore interface {
	// CreateProduct creates a new product. Returns a ConflictError if the
	// product code already exists.
	CreateProduct(ctx context.Context, product *CreateProductRequest) (*Product, error)
	// GetProduct returns the full projection for a product code.
	GetProduct(ctx context.Context, productCode string) (*Product, error)
	// UpdateProduct applies a partial update. The product code is never
	// mutated.
	UpdateProduct(ctx context.Context, product *UpdateProductRequest) (*Product, error)
	// DeleteProduct deletes a product and all of its image records.
	DeleteProduct(ctx context.Context, productCode string) error
	// ListProducts returns the short projection for all products, ordered
	// by product code.
	ListProducts(ctx context.Context) ([]ProductListItem, error)
	// GetStatistics returns aggregate catalog counts and the lowest-stock
	// products.
	GetStatistics(ctx context.Context) (*ProductStatistics, error)
	// CreateProductImages inserts a batch of image records for a product.
	// The batch is atomic: either all records are inserted or none are.
	CreateProductImages(ctx context.Context, productCode string, images []ProductImage) ([]uuid.UUID, error)
	// GetProductImage returns a single image record, including its raw
	// payload.
	GetProductImage(ctx context.Context, imageUUID uuid.UUID) (*ProductImage, error)
	// DeleteProductImage deletes a single image record.
	DeleteProductImage(ctx context.Context, imageUUID uuid.UUID) error
	// SearchByVector ranks stored embeddings by distance to the query
	// vector, deduplicated per product code.
	SearchByVector(ctx context.Context, query []float32, limit int) ([]SearchMatch, error)
	// PurgeDeleted hard deletes soft-deleted rows.
	PurgeDeleted(ctx context.Context) error
	// Close closes the underlying database connection.
	Close() error
}
