// Package catalog exposes the read-only product and category snapshots consumed
// by the reporting engine.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable marks failures to reach the catalog backing store.
var ErrUnavailable = errors.New("catalog unavailable")

// ProductSnapshot is an immutable view of a product at report time.
type ProductSnapshot struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	CategoryID int64           `json:"category_id"`
}

// StockValue returns price multiplied by the units on hand.
func (p ProductSnapshot) StockValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// CategorySnapshot is an immutable view of a category at report time.
type CategorySnapshot struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Provider supplies the full catalog. Implementations must return
// products and categories in a stable order.
type Provider interface {
	Products(ctx context.Context) ([]ProductSnapshot, error)
	Categories(ctx context.Context) ([]CategorySnapshot, error)
}

// Unavailable wraps err so callers can match it against ErrUnavailable while
// keeping the original cause inspectable.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return &unavailableError{op: op, err: err}
}

type unavailableError struct {
	op  string
	err error
}

func (e *unavailableError) Error() string {
	return "catalog: " + e.op + ": " + ErrUnavailable.Error() + ": " + e.err.Error()
}

func (e *unavailableError) Unwrap() []error {
	return []error{ErrUnavailable, e.err}
}
