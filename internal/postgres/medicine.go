package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careplus/clinic-api/internal/domain/medicine"
)

const medicineColumns = `id, name, brand, dosage, category, description, price,
	prescription_required, in_stock, stock_count, rating, reviews, created_at`

const (
	listMedicinesSQL = `SELECT ` + medicineColumns + ` FROM medicines
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' ESCAPE '\'
		       OR description ILIKE '%' || $2 || '%' ESCAPE '\'
		       OR brand ILIKE '%' || $2 || '%' ESCAPE '\')
		ORDER BY name`

	getMedicineByIDSQL = `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1`

	getMedicinesByIDsSQL = `SELECT ` + medicineColumns + ` FROM medicines WHERE id = ANY($1)`

	upsertMedicineSQL = `INSERT INTO medicines (id, name, brand, dosage, category, description, price,
			prescription_required, in_stock, stock_count, rating, reviews)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9 > 0, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, brand = EXCLUDED.brand, dosage = EXCLUDED.dosage,
			category = EXCLUDED.category, description = EXCLUDED.description,
			price = EXCLUDED.price, prescription_required = EXCLUDED.prescription_required,
			in_stock = EXCLUDED.in_stock, stock_count = EXCLUDED.stock_count,
			rating = EXCLUDED.rating, reviews = EXCLUDED.reviews`
)

var _ medicine.Repository = (*MedicineRepository)(nil)

// MedicineRepository implements medicine.Repository backed by PostgreSQL.
type MedicineRepository struct {
	pool *pgxpool.Pool
}

// NewMedicineRepository returns a MedicineRepository that uses the given pool.
func NewMedicineRepository(pool *pgxpool.Pool) *MedicineRepository {
	return &MedicineRepository{pool: pool}
}

// List returns catalog entries matching the filter, ordered by name.
func (r *MedicineRepository) List(ctx context.Context, f medicine.Filter) ([]medicine.Medicine, error) {
	rows, err := r.pool.Query(ctx, listMedicinesSQL, f.Category, escapeLike(f.Search))
	if err != nil {
		return nil, fmt.Errorf("listing medicines: %w", err)
	}
	return pgx.CollectRows(rows, scanMedicine)
}

// escapeLike neutralizes LIKE metacharacters in user input so a search for
// "50%" matches the literal text instead of acting as a wildcard.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// GetByID returns a single medicine by its identifier.
func (r *MedicineRepository) GetByID(ctx context.Context, id string) (*medicine.Medicine, error) {
	rows, err := r.pool.Query(ctx, getMedicineByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting medicine %q: %w", id, err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanMedicine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, medicine.ErrNotFound
		}
		return nil, fmt.Errorf("getting medicine %q: %w", id, err)
	}
	return &m, nil
}

// GetByIDs returns medicines matching any of the given IDs.
func (r *MedicineRepository) GetByIDs(ctx context.Context, ids []string) ([]medicine.Medicine, error) {
	rows, err := r.pool.Query(ctx, getMedicinesByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting medicines by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanMedicine)
}

// Upsert inserts or replaces a catalog entry. Used by seeding and ingest.
func (r *MedicineRepository) Upsert(ctx context.Context, m *medicine.Medicine) error {
	_, err := r.pool.Exec(ctx, upsertMedicineSQL,
		m.ID, m.Name, m.Brand, m.Dosage, m.Category, m.Description, m.Price,
		m.PrescriptionRequired, m.StockCount, m.Rating, m.Reviews,
	)
	if err != nil {
		return fmt.Errorf("upserting medicine %q: %w", m.ID, err)
	}
	return nil
}

func scanMedicine(row pgx.CollectableRow) (medicine.Medicine, error) {
	var m medicine.Medicine
	err := row.Scan(
		&m.ID, &m.Name, &m.Brand, &m.Dosage, &m.Category, &m.Description, &m.Price,
		&m.PrescriptionRequired, &m.InStock, &m.StockCount, &m.Rating, &m.Reviews, &m.CreatedAt,
	)
	return m, err
}
