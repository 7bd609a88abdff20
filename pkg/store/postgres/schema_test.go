package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestEnsurePostgresSchemaSetup(t *testing.T) {
	CleanDB(t, testDB)

	t.Run("should succeed when all schema setup is successful", func(t *testing.T) {
		err := CreateSchema(testCtx, appState, testDB)
		assert.NoError(t, err)

		for _, schema := range catalogTableList {
			checkForTable(t, testDB, schema)
		}
	})
	t.Run("should not fail on second run", func(t *testing.T) {
		err := CreateSchema(testCtx, appState, testDB)
		assert.NoError(t, err)
	})
}

func TestUpdatedAtIsSetAfterUpdate(t *testing.T) {
	instance := &ProductSchema{UpdatedAt: time.Unix(0, 0)}

	// Call the BeforeAppendModel method, which should update the UpdatedAt field
	err := instance.BeforeAppendModel(context.Background(), &bun.UpdateQuery{})
	assert.NoError(t, err)

	assert.True(t, instance.UpdatedAt.After(time.Now().Add(-time.Minute)))
}

func TestCheckEmbeddingDims(t *testing.T) {
	// Clean the DB
	CleanDB(t, testDB)
	err := CreateSchema(testCtx, appState, testDB)
	require.NoError(t, err)

	testWidth := appState.Config.Embeddings.Dimensions + 1

	// Set the embedding column to a specific width
	err = MigrateEmbeddingDims(testCtx, testDB, testWidth)
	require.NoError(t, err)

	width, err := getEmbeddingColumnWidth(testCtx, "product_image", testDB)
	require.NoError(t, err)
	assert.Equal(t, testWidth, width)

	// checkEmbeddingDims migrates the column back to the configured width
	err = checkEmbeddingDims(testCtx, appState, testDB)
	require.NoError(t, err)

	width, err = getEmbeddingColumnWidth(testCtx, "product_image", testDB)
	require.NoError(t, err)
	assert.Equal(t, appState.Config.Embeddings.Dimensions, width)

	// Clean the DB
	CleanDB(t, testDB)
	err = CreateSchema(testCtx, appState, testDB)
	require.NoError(t, err)
}

func checkForTable(t *testing.T, testDB *bun.DB, schema interface{}) {
	_, err := testDB.NewSelect().Model(schema).Limit(0).Exec(context.Background())
	require.NoError(t, err)
}
