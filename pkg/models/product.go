package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the full projection of a catalog product, including the
// identifiers of its stored reference images.
type Product struct {
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Shelf       string          `json:"shelf,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ImageIDs    []uuid.UUID     `json:"image_ids"`
}

// ProductListItem is the short projection returned by product listings.
type ProductListItem struct {
	ProductCode string      `json:"product_code"`
	ProductName string      `json:"product_name"`
	ImageIDs    []uuid.UUID `json:"image_ids"`
}

type CreateProductRequest struct {
	ProductCode string          `json:"product_code" validate:"required,max=50"`
	ProductName string          `json:"product_name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"    validate:"gte=0"`
	Category    string          `json:"category"    validate:"max=100"`
	Unit        string          `json:"unit"        validate:"max=50"`
	Shelf       string          `json:"shelf"       validate:"max=50"`
}

// UpdateProductRequest is a partial update. Zero-valued fields are left
// untouched; the product code is immutable and only identifies the row.
type UpdateProductRequest struct {
	ProductCode string          `json:"-"`
	ProductName string          `json:"product_name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Category    string          `json:"category" validate:"max=100"`
	Unit        string          `json:"unit"     validate:"max=50"`
	Shelf       string          `json:"shelf"    validate:"max=50"`
}

type LowStockProduct struct {
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

type ProductStatistics struct {
	TotalProducts    int               `json:"total_products"`
	TotalQuantity    int               `json:"total_quantity"`
	TotalCategories  int               `json:"total_categories"`
	LowStockProducts []LowStockProduct `json:"low_stock_products"`
}
