package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDB struct {
	products   [][]interface{}
	categories [][]interface{}
	queryErr   error
	rowsErr    error
	queries    []string
}

func (s *stubDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	s.queries = append(s.queries, sql)
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if strings.Contains(sql, "FROM products") {
		return &stubRows{values: s.products, index: -1, err: s.rowsErr}, nil
	}
	return &stubRows{values: s.categories, index: -1, err: s.rowsErr}, nil
}

type stubRows struct {
	values [][]interface{}
	index  int
	err    error
}

func (r *stubRows) Close() { r.index = len(r.values) }

func (r *stubRows) Err() error { return r.err }

func (r *stubRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *stubRows) Next() bool {
	if r.index+1 >= len(r.values) {
		r.index = len(r.values)
		return false
	}
	r.index++
	return true
}

func (r *stubRows) Scan(dest ...interface{}) error {
	if r.index < 0 || r.index >= len(r.values) {
		return fmt.Errorf("no row available")
	}
	row := r.values[r.index]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch target := d.(type) {
		case *int64:
			*target = row[i].(int64)
		case *int:
			*target = row[i].(int)
		case *float64:
			*target = row[i].(float64)
		case *string:
			*target = row[i].(string)
		case sql.Scanner:
			if err := target.Scan(row[i]); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

func (r *stubRows) Values() ([]interface{}, error) {
	if r.index < 0 || r.index >= len(r.values) {
		return nil, fmt.Errorf("no row available")
	}
	return r.values[r.index], nil
}

func (r *stubRows) RawValues() [][]byte { return nil }

func (r *stubRows) Conn() *pgx.Conn { return nil }

func TestRepositoryProducts(t *testing.T) {
	db := &stubDB{products: [][]interface{}{
		{int64(1), "Keyboard", "100.00", 5, int64(1)},
		{int64(2), "Mouse", "0.10", 15, int64(1)},
	}}
	repo := NewRepository(db)

	products, err := repo.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	first := products[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "Keyboard", first.Name)
	assert.Equal(t, 5, first.Stock)
	assert.Equal(t, int64(1), first.CategoryID)
	assert.True(t, first.Price.Equal(decimal.NewFromInt(100)), "price %s", first.Price)
	assert.Equal(t, int64(2), products[1].ID)
	assert.Equal(t, "1.5", products[1].StockValue().String())
	assert.Equal(t, listProductsSQL, db.queries[0])
}

func TestRepositoryProductsEmpty(t *testing.T) {
	repo := NewRepository(&stubDB{})

	products, err := repo.Products(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestRepositoryCategories(t *testing.T) {
	repo := NewRepository(&stubDB{categories: [][]interface{}{
		{int64(1), "Peripherals"},
		{int64(2), "Monitors"},
	}})

	categories, err := repo.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []CategorySnapshot{{ID: 1, Name: "Peripherals"}, {ID: 2, Name: "Monitors"}}, categories)
}

func TestRepositoryQueryFailureIsUnavailable(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	repo := NewRepository(&stubDB{queryErr: cause})

	_, err := repo.Products(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)

	_, err = repo.Categories(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRepositoryRowsErrorIsUnavailable(t *testing.T) {
	repo := NewRepository(&stubDB{rowsErr: errors.New("conn reset")})

	_, err := repo.Products(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUnavailableDoesNotDoubleWrap(t *testing.T) {
	inner := Unavailable("list products", errors.New("boom"))
	outer := Unavailable("load products", inner)
	assert.Same(t, inner, outer)
	assert.Nil(t, Unavailable("noop", nil))
	assert.Contains(t, inner.Error(), "catalog unavailable")
}
