package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurgeDeleted(t *testing.T) {
	product := createTestProduct(t)
	createTestImages(t, product.ProductCode, 1)

	err := catalogStore.DeleteProduct(testCtx, product.ProductCode)
	require.NoError(t, err)

	err = catalogStore.PurgeDeleted(testCtx)
	require.NoError(t, err)

	// soft-deleted rows are gone for good
	var productCount int
	productCount, err = testDB.NewSelect().
		Model((*ProductSchema)(nil)).
		WhereAllWithDeleted().
		Where("product_code = ?", product.ProductCode).
		Count(testCtx)
	require.NoError(t, err)
	assert.Equal(t, 0, productCount)

	var imageCount int
	imageCount, err = testDB.NewSelect().
		Model((*ProductImageSchema)(nil)).
		WhereAllWithDeleted().
		Where("product_code = ?", product.ProductCode).
		Count(testCtx)
	require.NoError(t, err)
	assert.Equal(t, 0, imageCount)
}
