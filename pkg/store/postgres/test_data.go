package postgres

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dbfixture"
	"gopkg.in/yaml.v3"

	"github.com/pgvector/pgvector-go"

	"github.com/thakonkawin/deep-search-products/pkg/models"
)

type Row interface {
	ProductSchema
}

type FixtureModel[T Row] struct {
	Model string `yaml:"model"`
	Rows  []T    `yaml:"rows"`
}

type Fixtures[T Row] []FixtureModel[T]

func generateTimeLastNDays(nDays int) time.Time {
	now := time.Now()
	nDaysAgo := now.Add(time.Duration(-nDays) * 24 * time.Hour)
	return gofakeit.DateRange(nDaysAgo, now)
}

var fixtureCategories = []string{
	"beverages", "snacks", "produce", "dairy", "household", "stationery",
}

var fixtureUnits = []string{"piece", "pack", "bottle", "box", "kg"}

func GenerateFixtureData(fixtureCount int, outputDir string) {
	fakerGlobal := gofakeit.NewUnlocked(0)
	gofakeit.SetGlobalFaker(fakerGlobal)

	// Generate test data for ProductSchema
	products := make([]ProductSchema, fixtureCount)
	for i := 0; i < fixtureCount; i++ {
		dateCreated := generateTimeLastNDays(14)
		products[i] = ProductSchema{
			ProductCode: fmt.Sprintf("P%05d", i+1),
			ProductName: fmt.Sprintf("%s %s", gofakeit.Adjective(), gofakeit.NounConcrete()),
			Description: gofakeit.Sentence(8),
			Price:       decimal.NewFromFloat(gofakeit.Price(1, 1000)).Round(2),
			Quantity:    gofakeit.Number(0, 500),
			Category:    fixtureCategories[i%len(fixtureCategories)],
			Unit:        fixtureUnits[i%len(fixtureUnits)],
			Shelf:       fmt.Sprintf("%s-%d", gofakeit.RandomString([]string{"A", "B", "C"}), gofakeit.Number(1, 20)),
			CreatedAt:   dateCreated,
			UpdatedAt:   dateCreated,
		}
	}

	productFixture := Fixtures[ProductSchema]{
		{
			Model: "ProductSchema",
			Rows:  products,
		},
	}

	if outputDir == "" {
		outputDir = "./"
	} else {
		// Create output directory if it doesn't exist
		if _, err := os.Stat(outputDir); os.IsNotExist(err) {
			err = os.Mkdir(outputDir, 0755)
			if err != nil {
				fmt.Printf("unable to create %s: %v", outputDir, err)
				return
			}
		}
	}

	writeFixtureToYAML(productFixture, outputDir, "product_fixtures.yaml")
}

func writeFixtureToYAML[T Row](fixtures Fixtures[T], outputDir, filename string) {
	// Marshal the fixture into YAML
	data, err := yaml.Marshal(&fixtures)
	if err != nil {
		fmt.Printf("error: %v", err)
		return
	}

	// Write the YAML data to a file
	file, err := os.Create(filepath.Join(outputDir, filename))
	if err != nil {
		fmt.Printf("error: %v", err)
		return
	}
	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			fmt.Printf("error: %v", err)
			return
		}
	}(file)

	_, err = file.Write(data)
	if err != nil {
		fmt.Printf("error: %v", err)
		return
	}

	fmt.Printf("Fixtures generated successfully in %s!\n", filename)
}

// generateRandomEmbedding returns a unit-length vector of the given width.
func generateRandomEmbedding(width int) []float32 {
	embedding := make([]float32, width)
	var norm float64
	for i := range embedding {
		embedding[i] = rand.Float32()*2 - 1 //nolint:gosec
		norm += float64(embedding[i]) * float64(embedding[i])
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return embedding
	}
	for i := range embedding {
		embedding[i] = float32(float64(embedding[i]) / norm)
	}
	return embedding
}

// addTestProductImages inserts random reference images for every product.
func addTestProductImages(ctx context.Context, appState *models.AppState, db *bun.DB) error {
	var productCodes []string
	err := db.NewSelect().
		Model((*ProductSchema)(nil)).
		Column("product_code").
		Scan(ctx, &productCodes)
	if err != nil {
		return fmt.Errorf("failed to query products: %w", err)
	}

	width := appState.Config.Embeddings.Dimensions
	var images []ProductImageSchema
	for _, code := range productCodes {
		imageCount := gofakeit.Number(1, 3)
		for i := 0; i < imageCount; i++ {
			images = append(images, ProductImageSchema{
				ProductCode: code,
				Embedding:   pgvector.NewVector(generateRandomEmbedding(width)),
			})
		}
	}

	if len(images) == 0 {
		return nil
	}

	_, err = db.NewInsert().
		Model(&images).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert product images: %w", err)
	}

	return nil
}

func LoadFixtures(
	ctx context.Context,
	appState *models.AppState,
	db *bun.DB,
	fixturePath string,
) error {
	dropSchemaQuery := `DROP SCHEMA public CASCADE;
CREATE SCHEMA public;
GRANT ALL ON SCHEMA public TO postgres;
GRANT ALL ON SCHEMA public TO public;`

	_, err := db.ExecContext(ctx, dropSchemaQuery)
	if err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}

	// Enable vector extension
	err = enablePgVectorExtension(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to enable pg_vector extension: %w", err)
	}

	err = CreateSchema(ctx, appState, db)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	db.RegisterModel(
		(*ProductSchema)(nil),
		(*ProductImageSchema)(nil),
	)

	fixture := dbfixture.New(db, dbfixture.WithRecreateTables())

	files, err := os.ReadDir(fixturePath)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, file := range files {
		if !file.IsDir() {
			switch filepath.Ext(file.Name()) {
			case ".yaml", ".yml":
				err := fixture.Load(ctx, os.DirFS(fixturePath), file.Name())
				if err != nil {
					return fmt.Errorf("failed to load fixture %s: %w", file.Name(), err)
				}
			}
		}
	}

	err = addTestProductImages(ctx, appState, db)
	if err != nil {
		return fmt.Errorf("failed to add test product images: %w", err)
	}

	return nil
}
