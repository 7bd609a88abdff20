package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/thakonkawin/deep-search-products/pkg/models"
	"github.com/thakonkawin/deep-search-products/pkg/store"
)

type ProductDAO struct {
	db *bun.DB
}

func NewProductDAO(db *bun.DB) *ProductDAO {
	return &ProductDAO{
		db: db,
	}
}

// Create creates a new product.
func (dao *ProductDAO) Create(
	ctx context.Context,
	product *models.CreateProductRequest,
) (*models.Product, error) {
	if product.ProductCode == "" {
		return nil, models.NewBadRequestError("ProductCode cannot be empty")
	}
	productDB := &ProductSchema{
		ProductCode: product.ProductCode,
		ProductName: product.ProductName,
		Description: product.Description,
		Price:       product.Price,
		Quantity:    product.Quantity,
		Category:    product.Category,
		Unit:        product.Unit,
		Shelf:       product.Shelf,
	}
	_, err := dao.db.NewInsert().Model(productDB).Returning("*").Exec(ctx)
	if err != nil {
		if err, ok := err.(pgdriver.Error); ok && err.IntegrityViolation() {
			return nil, models.NewConflictError(
				"product already exists with product_code: " + product.ProductCode,
			)
		}
		return nil, err
	}

	return productSchemaToProduct(productDB, nil)
}

// Get gets a product by ProductCode, including the UUIDs of its stored images.
func (dao *ProductDAO) Get(ctx context.Context, productCode string) (*models.Product, error) {
	product := new(ProductSchema)
	err := dao.db.NewSelect().
		Model(product).
		Where("product_code = ?", productCode).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("product " + productCode)
		}
		return nil, err
	}

	imageIDs, err := dao.getImageIDs(ctx, productCode)
	if err != nil {
		return nil, err
	}

	return productSchemaToProduct(product, imageIDs)
}

// Update applies a partial update to a product. Zero-valued fields are left
// untouched. The product code identifies the row and is never mutated.
func (dao *ProductDAO) Update(
	ctx context.Context,
	product *models.UpdateProductRequest,
) (*models.Product, error) {
	if product.ProductCode == "" {
		return nil, models.NewBadRequestError("ProductCode cannot be empty")
	}

	productDB := ProductSchema{
		ProductName: product.ProductName,
		Description: product.Description,
		Price:       product.Price,
		Quantity:    product.Quantity,
		Category:    product.Category,
		Unit:        product.Unit,
		Shelf:       product.Shelf,
	}
	r, err := dao.db.NewUpdate().
		Model(&productDB).
		Column(
			"product_name",
			"description",
			"price",
			"quantity",
			"category",
			"unit",
			"shelf",
			"updated_at",
		).
		OmitZero().
		Where("product_code = ?", product.ProductCode).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, models.NewNotFoundError("product " + product.ProductCode)
	}

	// We can't return the updated Product above as we're using OmitZero,
	// so we need to get the updated product from the DB
	return dao.Get(ctx, product.ProductCode)
}

// Delete deletes a product and all of its image records.
func (dao *ProductDAO) Delete(ctx context.Context, productCode string) error {
	// Start a new transaction
	tx, err := dao.db.Begin()
	if err != nil {
		return err
	}
	defer rollbackOnError(tx)

	// Delete all related image records
	_, err = tx.NewDelete().
		Model((*ProductImageSchema)(nil)).
		Where("product_code = ?", productCode).
		Exec(ctx)
	if err != nil {
		return err
	}

	// Delete Product
	r, err := tx.NewDelete().
		Model((*ProductSchema)(nil)).
		Where("product_code = ?", productCode).
		Exec(ctx)
	if err != nil {
		return err
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.NewNotFoundError("product " + productCode)
	}

	// Commit the transaction
	err = tx.Commit()
	if err != nil {
		return err
	}

	return nil
}

// ListAll lists all products, ordered by product code.
func (dao *ProductDAO) ListAll(ctx context.Context) ([]models.ProductListItem, error) {
	var productsDB []ProductSchema
	err := dao.db.NewSelect().
		Model(&productsDB).
		Column("product_code", "product_name").
		OrderExpr("product_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	imageIDsByCode, err := dao.getAllImageIDs(ctx)
	if err != nil {
		return nil, err
	}

	products := make([]models.ProductListItem, len(productsDB))
	for i := range productsDB {
		imageIDs := imageIDsByCode[productsDB[i].ProductCode]
		if imageIDs == nil {
			imageIDs = []uuid.UUID{}
		}
		products[i] = models.ProductListItem{
			ProductCode: productsDB[i].ProductCode,
			ProductName: productsDB[i].ProductName,
			ImageIDs:    imageIDs,
		}
	}

	return products, nil
}

// lowStockCount is the number of lowest-quantity products reported by GetStatistics.
const lowStockCount = 5

// GetStatistics returns aggregate counts for the catalog and the
// lowest-quantity products. The queries run concurrently.
func (dao *ProductDAO) GetStatistics(ctx context.Context) (*models.ProductStatistics, error) {
	var totalProducts int
	var totalQuantity int
	var totalCategories int
	var lowStockDB []ProductSchema
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	setFirstErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		count, err := dao.db.NewSelect().
			Model((*ProductSchema)(nil)).
			Count(ctx)
		totalProducts = count
		setFirstErr(err)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := dao.db.NewSelect().
			Model((*ProductSchema)(nil)).
			ColumnExpr("coalesce(sum(quantity), 0)").
			Scan(ctx, &totalQuantity)
		setFirstErr(err)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := dao.db.NewSelect().
			Model((*ProductSchema)(nil)).
			ColumnExpr("count(DISTINCT category)").
			Where("category IS NOT NULL").
			Scan(ctx, &totalCategories)
		setFirstErr(err)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := dao.db.NewSelect().
			Model(&lowStockDB).
			Column("product_code", "product_name", "quantity").
			OrderExpr("quantity ASC, product_code ASC").
			Limit(lowStockCount).
			Scan(ctx)
		setFirstErr(err)
	}()

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	lowStock := make([]models.LowStockProduct, len(lowStockDB))
	for i := range lowStockDB {
		lowStock[i] = models.LowStockProduct{
			ProductCode: lowStockDB[i].ProductCode,
			ProductName: lowStockDB[i].ProductName,
			Quantity:    lowStockDB[i].Quantity,
		}
	}

	return &models.ProductStatistics{
		TotalProducts:    totalProducts,
		TotalQuantity:    totalQuantity,
		TotalCategories:  totalCategories,
		LowStockProducts: lowStock,
	}, nil
}

// getImageIDs returns the UUIDs of all image records for a product.
func (dao *ProductDAO) getImageIDs(
	ctx context.Context,
	productCode string,
) ([]uuid.UUID, error) {
	var imageIDs []uuid.UUID
	err := dao.db.NewSelect().
		Model((*ProductImageSchema)(nil)).
		Column("uuid").
		Where("product_code = ?", productCode).
		OrderExpr("created_at ASC").
		Scan(ctx, &imageIDs)
	if err != nil {
		return nil, err
	}
	if imageIDs == nil {
		imageIDs = []uuid.UUID{}
	}
	return imageIDs, nil
}

// getAllImageIDs returns the image UUIDs for every product in a single query.
func (dao *ProductDAO) getAllImageIDs(ctx context.Context) (map[string][]uuid.UUID, error) {
	var imagesDB []ProductImageSchema
	err := dao.db.NewSelect().
		Model(&imagesDB).
		Column("uuid", "product_code").
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	imageIDs := make(map[string][]uuid.UUID, len(imagesDB))
	for i := range imagesDB {
		code := imagesDB[i].ProductCode
		imageIDs[code] = append(imageIDs[code], imagesDB[i].UUID)
	}
	return imageIDs, nil
}

func productSchemaToProduct(
	productDB *ProductSchema,
	imageIDs []uuid.UUID,
) (*models.Product, error) {
	product := &models.Product{}
	if err := copier.Copy(product, productDB); err != nil {
		return nil, store.NewStorageError("failed to copy product", err)
	}
	if imageIDs == nil {
		imageIDs = []uuid.UUID{}
	}
	product.ImageIDs = imageIDs
	return product, nil
}
