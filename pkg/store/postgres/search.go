package postgres

import (
	"context"
	"math"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"github.com/thakonkawin/deep-search-products/pkg/models"
	"github.com/thakonkawin/deep-search-products/pkg/store"
)

const DefaultSearchLimit = 5

// candidateMultiplier widens the candidate window so that deduplication by
// product code can still fill the requested limit.
const candidateMultiplier = 2

// imageSearchOperation ranks stored image embeddings by cosine distance to
// the query vector and aggregates matches per product code.
type imageSearchOperation struct {
	db       *bun.DB
	appState *models.AppState
	query    []float32
	limit    int
}

type imageSearchRow struct {
	ProductCode string  `bun:"product_code"`
	Distance    float64 `bun:"distance"`
}

func (op *imageSearchOperation) Run(ctx context.Context) ([]models.SearchMatch, error) {
	if len(op.query) == 0 {
		return nil, store.NewStorageError("empty query vector received", nil)
	}

	if op.limit <= 0 {
		op.limit = op.appState.Config.Search.Limit
	}
	// Results are capped at DefaultSearchLimit distinct products regardless
	// of what the caller asked for.
	if op.limit <= 0 || op.limit > DefaultSearchLimit {
		op.limit = DefaultSearchLimit
	}

	rows, err := op.execQuery(ctx, op.buildQuery())
	if err != nil {
		return nil, store.NewStorageError("image search failed", err)
	}

	return op.rankRows(rows), nil
}

func (op *imageSearchOperation) buildQuery() *bun.SelectQuery {
	// Rows arrive ordered by distance, so the first row seen for a product
	// code is that product's best match.
	return op.db.NewSelect().
		Model((*ProductImageSchema)(nil)).
		Column("product_code").
		ColumnExpr("embedding <=> ? AS distance", pgvector.NewVector(op.query)).
		Order("distance ASC").
		Limit(op.limit * candidateMultiplier)
}

func (op *imageSearchOperation) execQuery(
	ctx context.Context,
	query *bun.SelectQuery,
) ([]imageSearchRow, error) {
	var rows []imageSearchRow
	err := query.Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// rankRows deduplicates candidate rows by product code, keeping the closest
// match per product, and converts distances to scores. Matches below the
// configured minimum score are dropped.
func (op *imageSearchOperation) rankRows(rows []imageSearchRow) []models.SearchMatch {
	minScore := op.appState.Config.Search.MinScore

	seen := make(map[string]struct{}, len(rows))
	matches := make([]models.SearchMatch, 0, op.limit)
	for _, row := range rows {
		if _, ok := seen[row.ProductCode]; ok {
			continue
		}
		seen[row.ProductCode] = struct{}{}

		score := distanceToScore(row.Distance)
		if score < minScore {
			continue
		}

		matches = append(matches, models.SearchMatch{
			ProductCode: row.ProductCode,
			Score:       score,
		})
		if len(matches) >= op.limit {
			break
		}
	}

	return matches
}

// distanceToScore maps a cosine distance in [0,2] onto a similarity
// percentage in [0,100]. A distance of 0 scores 100.
func distanceToScore(distance float64) float64 {
	score := (1 - distance/2) * 100
	return math.Max(0, math.Min(100, score))
}
