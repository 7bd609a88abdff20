package server

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/thakonkawin/deep-search-products/config"
	"github.com/thakonkawin/deep-search-products/pkg/embeddings"
	"github.com/thakonkawin/deep-search-products/pkg/models"
)

// testCatalogStore is an in-memory CatalogStore used for handler tests.
type testCatalogStore struct {
	products map[string]*models.Product
	images   map[uuid.UUID]*models.ProductImage
}

var _ models.CatalogStore = &testCatalogStore{}

func newTestCatalogStore() *testCatalogStore {
	return &testCatalogStore{
		products: make(map[string]*models.Product),
		images:   make(map[uuid.UUID]*models.ProductImage),
	}
}

func (s *testCatalogStore) CreateProduct(
	_ context.Context,
	product *models.CreateProductRequest,
) (*models.Product, error) {
	if product.ProductCode == "" {
		return nil, models.NewBadRequestError("ProductCode cannot be empty")
	}
	if _, ok := s.products[product.ProductCode]; ok {
		return nil, models.NewConflictError(
			"product already exists with product_code: " + product.ProductCode,
		)
	}
	created := &models.Product{
		ProductCode: product.ProductCode,
		ProductName: product.ProductName,
		Description: product.Description,
		Price:       product.Price,
		Quantity:    product.Quantity,
		Category:    product.Category,
		Unit:        product.Unit,
		Shelf:       product.Shelf,
		ImageIDs:    []uuid.UUID{},
	}
	s.products[product.ProductCode] = created
	return created, nil
}

func (s *testCatalogStore) GetProduct(
	_ context.Context,
	productCode string,
) (*models.Product, error) {
	product, ok := s.products[productCode]
	if !ok {
		return nil, models.NewNotFoundError("product " + productCode)
	}
	return product, nil
}

func (s *testCatalogStore) UpdateProduct(
	_ context.Context,
	update *models.UpdateProductRequest,
) (*models.Product, error) {
	product, ok := s.products[update.ProductCode]
	if !ok {
		return nil, models.NewNotFoundError("product " + update.ProductCode)
	}
	if update.ProductName != "" {
		product.ProductName = update.ProductName
	}
	if update.Quantity != 0 {
		product.Quantity = update.Quantity
	}
	if update.Shelf != "" {
		product.Shelf = update.Shelf
	}
	return product, nil
}

func (s *testCatalogStore) DeleteProduct(_ context.Context, productCode string) error {
	if _, ok := s.products[productCode]; !ok {
		return models.NewNotFoundError("product " + productCode)
	}
	delete(s.products, productCode)
	for id, image := range s.images {
		if image.ProductCode == productCode {
			delete(s.images, id)
		}
	}
	return nil
}

func (s *testCatalogStore) ListProducts(_ context.Context) ([]models.ProductListItem, error) {
	items := make([]models.ProductListItem, 0, len(s.products))
	for _, product := range s.products {
		items = append(items, models.ProductListItem{
			ProductCode: product.ProductCode,
			ProductName: product.ProductName,
			ImageIDs:    product.ImageIDs,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductCode < items[j].ProductCode
	})
	return items, nil
}

func (s *testCatalogStore) GetStatistics(_ context.Context) (*models.ProductStatistics, error) {
	stats := &models.ProductStatistics{
		TotalProducts:    len(s.products),
		LowStockProducts: []models.LowStockProduct{},
	}
	categories := make(map[string]struct{})
	for _, product := range s.products {
		stats.TotalQuantity += product.Quantity
		if product.Category != "" {
			categories[product.Category] = struct{}{}
		}
	}
	stats.TotalCategories = len(categories)
	return stats, nil
}

func (s *testCatalogStore) CreateProductImages(
	_ context.Context,
	productCode string,
	images []models.ProductImage,
) ([]uuid.UUID, error) {
	product, ok := s.products[productCode]
	if !ok {
		return nil, models.NewNotFoundError("product " + productCode)
	}
	imageIDs := make([]uuid.UUID, len(images))
	for i := range images {
		id := uuid.New()
		imageIDs[i] = id
		s.images[id] = &models.ProductImage{
			UUID:        id,
			ProductCode: productCode,
			Embedding:   images[i].Embedding,
			Image:       images[i].Image,
		}
		product.ImageIDs = append(product.ImageIDs, id)
	}
	return imageIDs, nil
}

func (s *testCatalogStore) GetProductImage(
	_ context.Context,
	imageUUID uuid.UUID,
) (*models.ProductImage, error) {
	image, ok := s.images[imageUUID]
	if !ok {
		return nil, models.NewNotFoundError("image " + imageUUID.String())
	}
	return image, nil
}

func (s *testCatalogStore) DeleteProductImage(_ context.Context, imageUUID uuid.UUID) error {
	if _, ok := s.images[imageUUID]; !ok {
		return models.NewNotFoundError("image " + imageUUID.String())
	}
	delete(s.images, imageUUID)
	return nil
}

func (s *testCatalogStore) SearchByVector(
	_ context.Context,
	query []float32,
	limit int,
) ([]models.SearchMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	best := make(map[string]float64)
	for _, image := range s.images {
		distance := cosineDistance(query, image.Embedding)
		score := math.Max(0, math.Min(100, (1-distance/2)*100))
		if existing, ok := best[image.ProductCode]; !ok || score > existing {
			best[image.ProductCode] = score
		}
	}
	matches := make([]models.SearchMatch, 0, len(best))
	for code, score := range best {
		matches = append(matches, models.SearchMatch{ProductCode: code, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *testCatalogStore) PurgeDeleted(_ context.Context) error {
	return nil
}

func (s *testCatalogStore) Close() error {
	return nil
}

func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// testEmbedder returns a fixed embedding and fails on undecodable payloads.
type testEmbedder struct {
	embedding []float32
}

var _ models.Embedder = &testEmbedder{}

func newTestEmbedder(width, index int) *testEmbedder {
	embedding := make([]float32, width)
	embedding[index] = 1
	return &testEmbedder{embedding: embedding}
}

func (e *testEmbedder) EmbedImage(_ context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, models.NewBadRequestError("empty image payload")
	}
	if string(image) == "undecodable" {
		return nil, embeddings.NewDecodeError(nil)
	}
	return e.embedding, nil
}

func (e *testEmbedder) Dimensions() int {
	return len(e.embedding)
}

func newTestAppState() *models.AppState {
	return &models.AppState{
		CatalogStore: newTestCatalogStore(),
		Embedder:     newTestEmbedder(8, 0),
		Config: &config.Config{
			Embeddings: config.EmbeddingsConfig{Dimensions: 8},
			Search:     config.SearchConfig{Limit: 5},
		},
	}
}
