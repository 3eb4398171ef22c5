package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const (
	listProductsSQL   = `SELECT id, name, price::numeric, stock, category_id FROM products ORDER BY id`
	listCategoriesSQL = `SELECT id, name FROM categories ORDER BY id`
)

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Repository reads catalog snapshots from PostgreSQL.
type Repository struct {
	db querier
}

// NewRepository constructs a Repository on top of a pgx pool or connection.
func NewRepository(db querier) *Repository {
	return &Repository{db: db}
}

// Products loads every product ordered by id.
func (r *Repository) Products(ctx context.Context) ([]ProductSnapshot, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, Unavailable("list products", err)
	}
	defer rows.Close()

	products := make([]ProductSnapshot, 0)
	for rows.Next() {
		var p ProductSnapshot
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CategoryID); err != nil {
			return nil, Unavailable("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable("list products", err)
	}
	return products, nil
}

// Categories loads every category ordered by id.
func (r *Repository) Categories(ctx context.Context) ([]CategorySnapshot, error) {
	rows, err := r.db.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, Unavailable("list categories", err)
	}
	defer rows.Close()

	categories := make([]CategorySnapshot, 0)
	for rows.Next() {
		var c CategorySnapshot
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, Unavailable("scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable("list categories", err)
	}
	return categories, nil
}
