package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/thakonkawin/deep-search-products/internal"
	"github.com/thakonkawin/deep-search-products/pkg/models"
	"github.com/thakonkawin/deep-search-products/pkg/store"
)

var log = internal.GetLogger()

// NewPostgresCatalogStore returns a new PostgresCatalogStore. Use this to correctly initialize the store.
func NewPostgresCatalogStore(
	appState *models.AppState,
	client *bun.DB,
) (*PostgresCatalogStore, error) {
	if appState == nil {
		return nil, store.NewStorageError("nil appState received", nil)
	}

	pcs := &PostgresCatalogStore{
		client:       client,
		appState:     appState,
		ProductStore: NewProductDAO(client),
		ImageStore:   NewProductImageDAO(client, appState),
	}

	err := pcs.OnStart(context.Background())
	if err != nil {
		return nil, store.NewStorageError("failed to run OnInit", err)
	}
	return pcs, nil
}

// Force compiler to validate that PostgresCatalogStore implements the CatalogStore interface.
var _ models.CatalogStore = &PostgresCatalogStore{}

type PostgresCatalogStore struct {
	client       *bun.DB
	appState     *models.AppState
	ProductStore *ProductDAO
	ImageStore   *ProductImageDAO
}

func (pcs *PostgresCatalogStore) OnStart(
	ctx context.Context,
) error {
	err := CreateSchema(ctx, pcs.appState, pcs.client)
	if err != nil {
		return store.NewStorageError("failed to ensure postgres schema setup", err)
	}

	return nil
}

func (pcs *PostgresCatalogStore) GetClient() *bun.DB {
	return pcs.client
}

// CreateProduct creates a new product record.
func (pcs *PostgresCatalogStore) CreateProduct(
	ctx context.Context,
	product *models.CreateProductRequest,
) (*models.Product, error) {
	return pcs.ProductStore.Create(ctx, product)
}

// GetProduct retrieves a product record for a given productCode.
func (pcs *PostgresCatalogStore) GetProduct(
	ctx context.Context,
	productCode string,
) (*models.Product, error) {
	return pcs.ProductStore.Get(ctx, productCode)
}

// UpdateProduct applies a partial update to a product record.
func (pcs *PostgresCatalogStore) UpdateProduct(
	ctx context.Context,
	product *models.UpdateProductRequest,
) (*models.Product, error) {
	return pcs.ProductStore.Update(ctx, product)
}

// DeleteProduct deletes a product and all of its image records. This is a soft Delete.
func (pcs *PostgresCatalogStore) DeleteProduct(ctx context.Context, productCode string) error {
	return pcs.ProductStore.Delete(ctx, productCode)
}

// ListProducts returns the short projection of all products, ordered by product code.
func (pcs *PostgresCatalogStore) ListProducts(
	ctx context.Context,
) ([]models.ProductListItem, error) {
	return pcs.ProductStore.ListAll(ctx)
}

// GetStatistics returns aggregate counts for the catalog.
func (pcs *PostgresCatalogStore) GetStatistics(
	ctx context.Context,
) (*models.ProductStatistics, error) {
	return pcs.ProductStore.GetStatistics(ctx)
}

// CreateProductImages inserts a batch of image records for a product. The
// batch is atomic: either all records are inserted or none are.
func (pcs *PostgresCatalogStore) CreateProductImages(
	ctx context.Context,
	productCode string,
	images []models.ProductImage,
) ([]uuid.UUID, error) {
	return pcs.ImageStore.CreateBatch(ctx, productCode, images)
}

// GetProductImage retrieves a single image record, including its raw payload.
func (pcs *PostgresCatalogStore) GetProductImage(
	ctx context.Context,
	imageUUID uuid.UUID,
) (*models.ProductImage, error) {
	return pcs.ImageStore.Get(ctx, imageUUID)
}

// DeleteProductImage deletes a single image record. This is a soft Delete.
func (pcs *PostgresCatalogStore) DeleteProductImage(
	ctx context.Context,
	imageUUID uuid.UUID,
) error {
	return pcs.ImageStore.Delete(ctx, imageUUID)
}

// SearchByVector ranks stored embeddings by similarity to the query vector.
// Results are deduplicated per product code.
func (pcs *PostgresCatalogStore) SearchByVector(
	ctx context.Context,
	query []float32,
	limit int,
) ([]models.SearchMatch, error) {
	searchOp := &imageSearchOperation{
		db:       pcs.client,
		appState: pcs.appState,
		query:    query,
		limit:    limit,
	}
	return searchOp.Run(ctx)
}

// PurgeDeleted hard deletes all soft deleted records.
func (pcs *PostgresCatalogStore) PurgeDeleted(ctx context.Context) error {
	err := purgeDeleted(ctx, pcs.client)
	if err != nil {
		return store.NewStorageError("failed to purge deleted", err)
	}

	return nil
}

func (pcs *PostgresCatalogStore) Close() error {
	if pcs.client != nil {
		return pcs.client.Close()
	}
	return nil
}

// rollbackOnError rolls back the transaction if an error is encountered.
// If the error is sql.ErrTxDone, the transaction has already been committed or rolled back
// and we ignore the error.
func rollbackOnError(tx bun.Tx) {
	if rollBackErr := tx.Rollback(); rollBackErr != nil && !errors.Is(rollBackErr, sql.ErrTxDone) {
		log.Error("failed to rollback transaction", rollBackErr)
	}
}
