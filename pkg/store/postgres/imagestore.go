package postgres

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/thakonkawin/deep-search-products/pkg/models"
	"github.com/thakonkawin/deep-search-products/pkg/store"
)

type ProductImageDAO struct {
	db       *bun.DB
	appState *models.AppState
}

func NewProductImageDAO(db *bun.DB, appState *models.AppState) *ProductImageDAO {
	return &ProductImageDAO{
		db:       db,
		appState: appState,
	}
}

// CreateBatch inserts a batch of image records for a product. The batch is
// atomic: a failure on any record rolls back the whole batch.
func (dao *ProductImageDAO) CreateBatch(
	ctx context.Context,
	productCode string,
	images []models.ProductImage,
) ([]uuid.UUID, error) {
	if productCode == "" {
		return nil, models.NewBadRequestError("ProductCode cannot be empty")
	}
	if len(images) == 0 {
		return nil, models.NewBadRequestError("no images provided")
	}

	width := dao.appState.Config.Embeddings.Dimensions
	for i := range images {
		if len(images[i].Embedding) != width {
			return nil, store.NewEmbeddingMismatchError(
				fmt.Errorf(
					"expected embedding width %d, got %d",
					width,
					len(images[i].Embedding),
				),
			)
		}
	}

	imagesDB := make([]ProductImageSchema, len(images))
	for i := range images {
		imagesDB[i] = ProductImageSchema{
			ProductCode: productCode,
			Embedding:   pgvector.NewVector(images[i].Embedding),
			Image:       base64.StdEncoding.EncodeToString(images[i].Image),
		}
	}

	tx, err := dao.db.Begin()
	if err != nil {
		return nil, err
	}
	defer rollbackOnError(tx)

	_, err = tx.NewInsert().Model(&imagesDB).Returning("uuid").Exec(ctx)
	if err != nil {
		if err, ok := err.(pgdriver.Error); ok && err.IntegrityViolation() {
			return nil, models.NewNotFoundError("product " + productCode)
		}
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	imageIDs := make([]uuid.UUID, len(imagesDB))
	for i := range imagesDB {
		imageIDs[i] = imagesDB[i].UUID
	}
	return imageIDs, nil
}

// Get gets an image record by UUID, including its raw payload.
func (dao *ProductImageDAO) Get(
	ctx context.Context,
	imageUUID uuid.UUID,
) (*models.ProductImage, error) {
	imageDB := new(ProductImageSchema)
	err := dao.db.NewSelect().
		Model(imageDB).
		Where("uuid = ?", imageUUID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("image " + imageUUID.String())
		}
		return nil, err
	}

	var payload []byte
	if imageDB.Image != "" {
		payload, err = base64.StdEncoding.DecodeString(imageDB.Image)
		if err != nil {
			return nil, store.NewStorageError("failed to decode stored image payload", err)
		}
	}

	return &models.ProductImage{
		UUID:        imageDB.UUID,
		ProductCode: imageDB.ProductCode,
		Embedding:   imageDB.Embedding.Slice(),
		Image:       payload,
		CreatedAt:   imageDB.CreatedAt,
	}, nil
}

// Delete deletes an image record. This is a soft Delete.
func (dao *ProductImageDAO) Delete(ctx context.Context, imageUUID uuid.UUID) error {
	r, err := dao.db.NewDelete().
		Model((*ProductImageSchema)(nil)).
		Where("uuid = ?", imageUUID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.NewNotFoundError("image " + imageUUID.String())
	}
	return nil
}

// DeleteForProduct deletes all image records for a product. This is a soft Delete.
func (dao *ProductImageDAO) DeleteForProduct(ctx context.Context, productCode string) error {
	_, err := dao.db.NewDelete().
		Model((*ProductImageSchema)(nil)).
		Where("product_code = ?", productCode).
		Exec(ctx)
	return err
}
