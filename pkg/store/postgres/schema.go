package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/thakonkawin/deep-search-products/pkg/models"
)

type ProductSchema struct {
	bun.BaseModel `bun:"table:products,alias:p" yaml:"-"`

	ProductCode string          `bun:",pk,type:varchar(50)"                                        yaml:"product_code,omitempty"`
	ProductName string          `bun:"type:text,notnull"                                           yaml:"product_name,omitempty"`
	Description string          `bun:"type:text,nullzero"                                          yaml:"description,omitempty"`
	Price       decimal.Decimal `bun:"type:numeric(10,2),notnull"                                  yaml:"price,omitempty"`
	Quantity    int             `bun:",notnull"                                                    yaml:"quantity"`
	Category    string          `bun:"type:varchar(100),nullzero"                                  yaml:"category,omitempty"`
	Unit        string          `bun:"type:varchar(50),nullzero"                                   yaml:"unit,omitempty"`
	Shelf       string          `bun:"type:varchar(50),nullzero"                                   yaml:"shelf,omitempty"`
	CreatedAt   time.Time       `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"created_at,omitempty"`
	UpdatedAt   time.Time       `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"updated_at,omitempty"`
	DeletedAt   time.Time       `bun:"type:timestamptz,soft_delete,nullzero"                       yaml:"deleted_at,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*ProductSchema)(nil)

func (s *ProductSchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

// BeforeCreateTable is a marker method to ensure uniform interface across all table models - used in table creation iterator
func (s *ProductSchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

// ProductImageSchema stores one reference image for a product: the image's
// embedding and optionally the raw payload it was computed from.
type ProductImageSchema struct {
	bun.BaseModel `bun:"table:product_image,alias:pi"`

	UUID        uuid.UUID       `bun:",pk,type:uuid,default:gen_random_uuid()"`
	CreatedAt   time.Time       `bun:"type:timestamptz,notnull,default:current_timestamp"`
	DeletedAt   time.Time       `bun:"type:timestamptz,soft_delete,nullzero"`
	ProductCode string          `bun:"type:varchar(50),notnull"`
	Embedding   pgvector.Vector `bun:"type:vector(128)"`
	Image       string          `bun:"type:text,nullzero"` // base64-encoded raw payload
	Product     *ProductSchema  `bun:"rel:belongs-to,join:product_code=product_code,on_delete:cascade"`
}

func (s *ProductImageSchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

var _ bun.AfterCreateTableHook = (*ProductSchema)(nil)
var _ bun.AfterCreateTableHook = (*ProductImageSchema)(nil)

func (*ProductSchema) AfterCreateTable(
	ctx context.Context,
	query *bun.CreateTableQuery,
) error {
	colsToIndex := []string{"category", "quantity"}
	for _, col := range colsToIndex {
		_, err := query.DB().NewCreateIndex().
			Model((*ProductSchema)(nil)).
			Index(fmt.Sprintf("products_%s_idx", col)).
			Column(col).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (*ProductImageSchema) AfterCreateTable(
	ctx context.Context,
	query *bun.CreateTableQuery,
) error {
	_, err := query.DB().NewCreateIndex().
		Model((*ProductImageSchema)(nil)).
		Index("product_image_product_code_idx").
		Column("product_code").
		IfNotExists().
		Exec(ctx)
	return err
}

// catalogTableList orders tables so that iterating in reverse creates
// referenced tables before their dependents.
var catalogTableList = []bun.BeforeCreateTableHook{
	&ProductImageSchema{},
	&ProductSchema{},
}

// enablePgVectorExtension creates the pgvector extension if it does not exist and updates it if it is out of date.
func enablePgVectorExtension(ctx context.Context, db *bun.DB) error {
	// Create pgvector extension if it does not exist
	_, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("error creating pgvector extension: %w", err)
	}

	// if this is an upgrade, we may need to update the pgvector extension
	// this is a no-op if the extension is already up to date
	_, err = db.Exec("ALTER EXTENSION vector UPDATE")
	if err != nil {
		return fmt.Errorf("error updating pgvector extension: %w", err)
	}

	return nil
}

// CreateSchema creates the db schema if it does not exist.
func CreateSchema(
	ctx context.Context,
	appState *models.AppState,
	db *bun.DB,
) error {
	for i := len(catalogTableList) - 1; i >= 0; i-- {
		schema := catalogTableList[i]
		_, err := db.NewCreateTable().
			Model(schema).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx)
		if err != nil {
			// bun still trying to create indexes despite IfNotExists flag
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("error creating table for schema %T: %w", schema, err)
		}
	}

	// check that the embedding dimensions match the configured model
	if err := checkEmbeddingDims(ctx, appState, db); err != nil {
		return fmt.Errorf("error checking embedding dimensions: %w", err)
	}

	// Create HNSW index on product_image embeddings if available
	if appState.Config.Store.Postgres.AvailableIndexes.HSNW {
		if err := createHNSWIndex(ctx, db, "product_image", "embedding"); err != nil {
			return fmt.Errorf("error creating hnsw index: %w", err)
		}
	}

	return nil
}

// createHNSWIndex creates an HNSW index on the given table and column if it does not exist.
// The index is created with the default M and efConstruction values. Only vector_cosine_ops is supported.
func createHNSWIndex(ctx context.Context, db *bun.DB, table, column string) error {
	const (
		m              = 16
		efConstruction = 64
	)

	idx := table + "_" + column + "_hnsw_idx"

	log.Infof("creating hnsw index on %s.%s if it does not exist", table, column)

	_, err := db.ExecContext(
		ctx,
		"CREATE INDEX CONCURRENTLY IF NOT EXISTS ? ON ? USING hnsw (? vector_cosine_ops) WITH (M = ?, ef_construction = ?);",
		bun.Safe(idx),
		bun.Ident(table),
		bun.Ident(column),
		m,
		efConstruction,
	)
	if err != nil {
		return err
	}

	log.Infof("created hnsw index successfully on %s.%s if it did not exist", table, column)

	return nil
}

// checkEmbeddingDims checks the dimensions of the embedding column against
// the configured embedding width. If they do not match, the column is dropped
// and recreated with the correct dimensions.
func checkEmbeddingDims(ctx context.Context, appState *models.AppState, db *bun.DB) error {
	dimensions := appState.Config.Embeddings.Dimensions
	if dimensions == 0 {
		return nil
	}

	width, err := getEmbeddingColumnWidth(ctx, "product_image", db)
	if err != nil {
		return fmt.Errorf("error getting embedding column width: %w", err)
	}

	if width != dimensions {
		log.Warnf(
			"embedding dimensions are %d, expected %d.\n migrating embedding column width to %d. this may result in loss of existing embedding vectors",
			width,
			dimensions,
			dimensions,
		)
		err := MigrateEmbeddingDims(ctx, db, dimensions)
		if err != nil {
			return fmt.Errorf("error migrating embedding dimensions: %w", err)
		}
	}
	return nil
}

// getEmbeddingColumnWidth returns the width of the embedding column in the provided table.
func getEmbeddingColumnWidth(ctx context.Context, tableName string, db *bun.DB) (int, error) {
	var width int
	err := db.NewSelect().
		Table("pg_attribute").
		ColumnExpr("atttypmod"). // vector width is stored in atttypmod
		Where("attrelid = ?::regclass", tableName).
		Where("attname = 'embedding'").
		Scan(ctx, &width)
	if err != nil {
		return 0, fmt.Errorf("error getting embedding column width: %w", err)
	}
	return width, nil
}

// MigrateEmbeddingDims drops the old embedding column and creates a new one
// with the correct dimensions.
func MigrateEmbeddingDims(
	ctx context.Context,
	db *bun.DB,
	dimensions int,
) error {
	columnQuery := `DO $$
BEGIN
    IF EXISTS (
        SELECT 1
        FROM   information_schema.columns
        WHERE  table_name = 'product_image'
        AND    column_name = 'embedding'
    ) THEN
        ALTER TABLE product_image DROP COLUMN embedding;
    END IF;
END $$;`

	_, err := db.ExecContext(ctx, columnQuery)
	if err != nil {
		return fmt.Errorf("error dropping column embedding: %w", err)
	}
	_, err = db.NewAddColumn().
		Model((*ProductImageSchema)(nil)).
		ColumnExpr(fmt.Sprintf("embedding vector(%d)", dimensions)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error adding column embedding: %w", err)
	}

	return nil
}

// NewPostgresConn creates a new bun.DB connection to a postgres database using the provided DSN.
// The connection is configured to pool connections based on the number of PROCs available.
func NewPostgresConn(appState *models.AppState) (*bun.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	maxOpenConns := 4 * runtime.GOMAXPROCS(0)

	// WithReadTimeout is 10 minutes to avoid timeouts when creating indexes.
	sqldb := sql.OpenDB(
		pgdriver.NewConnector(
			pgdriver.WithDSN(appState.Config.Store.Postgres.DSN),
			pgdriver.WithReadTimeout(10*time.Minute),
		),
	)
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetMaxIdleConns(maxOpenConns)

	db := bun.NewDB(sqldb, pgdialect.New())

	// Enable pgvector extension
	err := enablePgVectorExtension(ctx, db)
	if err != nil {
		log.Print("error enabling pgvector extension: ", err)
		return nil, err
	}

	// IVFFLAT indexes are always available
	appState.Config.Store.Postgres.AvailableIndexes.IVFFLAT = true

	// Check if HNSW indexes are available
	isHNSW, err := isHNSWAvailable(ctx, db)
	if err != nil {
		log.Print("error checking if hnsw indexes are available: ", err)
		return nil, err
	}
	if isHNSW {
		appState.Config.Store.Postgres.AvailableIndexes.HSNW = true
	}

	return db, nil
}

// isHNSWAvailable checks if the vector extension version is 0.5.0+.
func isHNSWAvailable(ctx context.Context, db *bun.DB) (bool, error) {
	const minVersion = "0.5.0"
	requiredVersion, err := semver.NewVersion(minVersion)
	if err != nil {
		return false, fmt.Errorf("error parsing required vector extension version: %w", err)
	}

	var version string
	err = db.NewSelect().
		Column("extversion").
		TableExpr("pg_extension").
		Where("extname = 'vector'").
		Scan(ctx, &version)
	if err != nil {
		if err == sql.ErrNoRows {
			// The vector extension is not installed
			log.Debug("vector extension not installed")
			return false, nil
		}
		// An error occurred while executing the query
		return false, fmt.Errorf("error checking vector extension version: %w", err)
	}

	thisVersion, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("error parsing vector extension version: %w", err)
	}

	// Compare the version numbers
	if requiredVersion.GreaterThan(thisVersion) {
		// The vector extension version is < 0.5.0
		log.Infof("vector extension version is < %s. hnsw indexing not available", minVersion)
		return false, nil
	}

	// The vector extension version is >= 0.5.0
	log.Infof("vector extension version is >= %s. hnsw indexing available", minVersion)

	return true, nil
}
