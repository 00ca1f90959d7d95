package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"core/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// ProductRepository backs the catalog search provider with a PostgreSQL
// product table (optionally carrying pgvector embeddings for semantic
// ordering).
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(dsn string, maxConn, maxIdleConn int) (*ProductRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &ProductRepository{db: db}, nil
}

// Close closes the database connection
func (r *ProductRepository) Close() error {
	return r.db.Close()
}

// productRow is the scan target for catalog queries.
type productRow struct {
	ID        int64    `db:"id"`
	Title     string   `db:"title"`
	Brand     *string  `db:"brand"`
	Category  *string  `db:"category"`
	Price     *float64 `db:"price"`
	Rating    *float64 `db:"rating"`
	Reviews   *int     `db:"reviews"`
	URL       *string  `db:"url"`
	Thumbnail *string  `db:"thumbnail"`
	TextRank  *float64 `db:"text_rank"`
}

func (row productRow) toProduct() model.Product {
	p := model.Product{Title: row.Title}
	if row.Brand != nil {
		p.Brand = *row.Brand
	}
	if row.Price != nil {
		p.Price = model.NewNumber(*row.Price)
	}
	if row.Rating != nil {
		p.Rating = model.NewNumber(*row.Rating)
	}
	if row.Reviews != nil {
		reviews := *row.Reviews
		p.Reviews = &reviews
	}
	if row.URL != nil {
		p.URL = *row.URL
	}
	if row.Thumbnail != nil {
		p.Thumbnail = *row.Thumbnail
	}
	return p
}

// buildFilterClauses translates the session filter set into WHERE clauses.
func buildFilterClauses(category string, filters model.Filters, argIndex int) ([]string, []interface{}, int) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}

	if category != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(category ILIKE $%d OR title ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+category+"%")
		argIndex++
	}
	if filters.PriceMin != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filters.PriceMin)
		argIndex++
	}
	if filters.PriceMax != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filters.PriceMax)
		argIndex++
	}
	if len(filters.Brand) > 0 {
		brandConds := make([]string, 0, len(filters.Brand))
		for _, brand := range filters.Brand {
			brandConds = append(brandConds, fmt.Sprintf("brand ILIKE $%d", argIndex))
			args = append(args, "%"+brand+"%")
			argIndex++
		}
		whereClauses = append(whereClauses, "("+strings.Join(brandConds, " OR ")+")")
	}
	// JSONB feature filtering: every requested feature must appear somewhere
	// in the features array
	for _, feature := range filters.Features {
		cond := fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_array_elements_text(features) elem WHERE elem ILIKE $%d)", argIndex)
		whereClauses = append(whereClauses, cond)
		args = append(args, "%"+feature+"%")
		argIndex++
	}

	return whereClauses, args, argIndex
}

// orderClause maps the session sort preference onto SQL ordering; the
// default is full-text relevance against the category terms.
func orderClause(sortBy string) string {
	switch sortBy {
	case model.SortByPrice:
		return "price ASC NULLS LAST"
	case model.SortByRating:
		return "rating DESC NULLS LAST"
	default:
		return "text_rank DESC, rating DESC NULLS LAST"
	}
}

// SearchProducts performs a filtered catalog search with full-text ranking
func (r *ProductRepository) SearchProducts(
	ctx context.Context,
	category string,
	filters model.Filters,
	limit int,
) ([]model.Product, error) {
	whereClauses, args, argIndex := buildFilterClauses(category, filters, 1)
	whereClause := strings.Join(whereClauses, " AND ")

	searchText := category
	if len(filters.Features) > 0 {
		searchText += " " + strings.Join(filters.Features, " ")
	}

	query := fmt.Sprintf(`
		SELECT
			id, title, brand, category, price, rating, reviews, url, thumbnail,
			ts_rank(search_vector, plainto_tsquery('english', $%d)) AS text_rank
		FROM product_catalog
		WHERE %s
		ORDER BY %s
		LIMIT $%d
	`, argIndex, whereClause, orderClause(filters.SortBy), argIndex+1)
	args = append(args, searchText, limit)

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	products := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toProduct())
	}
	return products, nil
}

// SemanticSearchProducts orders catalog matches by embedding distance to the
// query embedding. Rows without an embedding are skipped.
func (r *ProductRepository) SemanticSearchProducts(
	ctx context.Context,
	queryEmbedding []float32,
	category string,
	filters model.Filters,
	limit int,
) ([]model.Product, error) {
	whereClauses, args, argIndex := buildFilterClauses(category, filters, 1)
	whereClauses = append(whereClauses, "embedding IS NOT NULL")
	whereClause := strings.Join(whereClauses, " AND ")

	query := fmt.Sprintf(`
		SELECT
			id, title, brand, category, price, rating, reviews, url, thumbnail,
			0.0 AS text_rank
		FROM product_catalog
		WHERE %s
		ORDER BY embedding <=> $%d
		LIMIT $%d
	`, whereClause, argIndex, argIndex+1)
	args = append(args, pgvector.NewVector(queryEmbedding), limit)

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	products := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toProduct())
	}
	return products, nil
}

// BatchUpdateEmbeddings updates embeddings for multiple catalog products
func (r *ProductRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errors []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errors
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE product_catalog SET embedding = $1, updated_at = NOW() WHERE id = $2`)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errors
	}
	defer stmt.Close()

	for _, item := range items {
		vec := pgvector.NewVector(item.Embedding)
		if _, err := stmt.ExecContext(ctx, vec, item.ProductID); err != nil {
			errors = append(errors, fmt.Sprintf("product_id %d: %v", item.ProductID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errors = append(errors, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errors
	}

	return success, errors
}
