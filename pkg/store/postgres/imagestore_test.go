package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thakonkawin/deep-search-products/pkg/models"
	"github.com/thakonkawin/deep-search-products/pkg/store"
)

func TestProductImageDAO_CreateBatch(t *testing.T) {
	dao := NewProductImageDAO(testDB, appState)
	width := appState.Config.Embeddings.Dimensions

	t.Run("create batch", func(t *testing.T) {
		product := createTestProduct(t)

		images := []models.ProductImage{
			{Embedding: generateRandomEmbedding(width), Image: []byte("payload-1")},
			{Embedding: generateRandomEmbedding(width), Image: []byte("payload-2")},
		}
		imageIDs, err := dao.CreateBatch(testCtx, product.ProductCode, images)
		require.NoError(t, err)
		require.Equal(t, 2, len(imageIDs))
		assert.NotEqual(t, imageIDs[0], imageIDs[1])
	})

	t.Run("unknown product code returns not found", func(t *testing.T) {
		images := []models.ProductImage{
			{Embedding: generateRandomEmbedding(width)},
		}
		_, err := dao.CreateBatch(testCtx, "no-such-product", images)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("wrong embedding width returns mismatch", func(t *testing.T) {
		product := createTestProduct(t)

		images := []models.ProductImage{
			{Embedding: generateRandomEmbedding(width + 1)},
		}
		_, err := dao.CreateBatch(testCtx, product.ProductCode, images)
		assert.ErrorIs(t, err, store.ErrEmbeddingMismatch)
	})

	t.Run("mismatch anywhere in batch inserts nothing", func(t *testing.T) {
		product := createTestProduct(t)

		images := []models.ProductImage{
			{Embedding: generateRandomEmbedding(width)},
			{Embedding: generateRandomEmbedding(width - 1)},
		}
		_, err := dao.CreateBatch(testCtx, product.ProductCode, images)
		require.ErrorIs(t, err, store.ErrEmbeddingMismatch)

		found, err := NewProductDAO(testDB).Get(testCtx, product.ProductCode)
		require.NoError(t, err)
		assert.Empty(t, found.ImageIDs)
	})

	t.Run("empty batch returns bad request", func(t *testing.T) {
		product := createTestProduct(t)

		_, err := dao.CreateBatch(testCtx, product.ProductCode, nil)
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})
}

func TestProductImageDAO_Get(t *testing.T) {
	dao := NewProductImageDAO(testDB, appState)

	t.Run("get image with payload", func(t *testing.T) {
		product := createTestProduct(t)
		images := createTestImages(t, product.ProductCode, 1)

		found, err := dao.Get(testCtx, images[0].UUID)
		require.NoError(t, err)

		assert.Equal(t, images[0].UUID, found.UUID)
		assert.Equal(t, product.ProductCode, found.ProductCode)
		assert.Equal(t, images[0].Image, found.Image)
		assert.Equal(t, appState.Config.Embeddings.Dimensions, len(found.Embedding))
		assert.False(t, found.CreatedAt.IsZero())
	})

	t.Run("unknown uuid returns not found", func(t *testing.T) {
		_, err := dao.Get(testCtx, uuid.New())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestProductImageDAO_Delete(t *testing.T) {
	dao := NewProductImageDAO(testDB, appState)

	t.Run("delete image", func(t *testing.T) {
		product := createTestProduct(t)
		images := createTestImages(t, product.ProductCode, 2)

		err := dao.Delete(testCtx, images[0].UUID)
		require.NoError(t, err)

		_, err = dao.Get(testCtx, images[0].UUID)
		assert.ErrorIs(t, err, models.ErrNotFound)

		// the sibling image survives
		_, err = dao.Get(testCtx, images[1].UUID)
		assert.NoError(t, err)
	})

	t.Run("unknown uuid returns not found", func(t *testing.T) {
		err := dao.Delete(testCtx, uuid.New())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
