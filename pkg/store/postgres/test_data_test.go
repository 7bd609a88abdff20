package postgres

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGenerateFixtureData(t *testing.T) {
	outputDir := t.TempDir()
	GenerateFixtureData(10, outputDir)

	data, err := os.ReadFile(filepath.Join(outputDir, "product_fixtures.yaml"))
	require.NoError(t, err)

	var fixtures Fixtures[ProductSchema]
	err = yaml.Unmarshal(data, &fixtures)
	require.NoError(t, err)
	require.Len(t, fixtures, 1)
	require.Len(t, fixtures[0].Rows, 10)

	for _, row := range fixtures[0].Rows {
		assert.NotEmpty(t, row.ProductCode)
		assert.NotEmpty(t, row.ProductName)
		assert.NotEmpty(t, row.Description)
		assert.True(t, row.Price.IsPositive())
		assert.NotEmpty(t, row.Category)
		assert.NotEmpty(t, row.Unit)
	}
}

func TestGenerateRandomEmbedding(t *testing.T) {
	embedding := generateRandomEmbedding(128)
	require.Len(t, embedding, 128)

	var norm float64
	for _, x := range embedding {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}
