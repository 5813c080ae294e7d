package medicine

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no medicine matches the requested identifier.
var ErrNotFound = errors.New("medicine not found")

// Medicine represents a single catalog entry in the online pharmacy.
//
// InStock is derived from StockCount and is maintained by the storage layer:
// it is true exactly when StockCount > 0.
type Medicine struct {
	ID                   string
	Name                 string
	Brand                string
	Dosage               string
	Category             string
	Description          string
	Price                decimal.Decimal
	PrescriptionRequired bool
	InStock              bool
	StockCount           int
	Rating               decimal.Decimal
	Reviews              int
	CreatedAt            time.Time
}

// Filter narrows catalog listings. Category is an exact match; Search is a
// case-insensitive substring match over name, description and brand. Empty
// fields are ignored.
type Filter struct {
	Category string
	Search   string
}

// Repository defines persistence operations for the medicine catalog.
// Stock counts are mutated only through the order confirmation and
// cancellation paths (see the order repository).
type Repository interface {
	List(ctx context.Context, f Filter) ([]Medicine, error)
	GetByID(ctx context.Context, id string) (*Medicine, error)
	GetByIDs(ctx context.Context, ids []string) ([]Medicine, error)
	Upsert(ctx context.Context, m *Medicine) error
}
