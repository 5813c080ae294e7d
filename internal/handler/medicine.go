package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/careplus/clinic-api/internal/domain/medicine"
)

type medicineResponse struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Brand                string          `json:"brand"`
	Dosage               string          `json:"dosage"`
	Category             string          `json:"category"`
	Description          string          `json:"description"`
	Price                decimal.Decimal `json:"price"`
	PrescriptionRequired bool            `json:"prescriptionRequired"`
	InStock              bool            `json:"inStock"`
	StockCount           int             `json:"stockCount"`
	Rating               decimal.Decimal `json:"rating"`
	Reviews              int             `json:"reviews"`
	CreatedAt            time.Time       `json:"createdAt"`
}

// ListMedicines returns catalog entries, optionally filtered by the
// category and search query parameters.
func (h *Handler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	f := medicine.Filter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	}

	medicines, err := h.deps.Medicines.List(r.Context(), f)
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list medicines"))
		return
	}

	out := make([]medicineResponse, len(medicines))
	for i, m := range medicines {
		out[i] = toMedicineResponse(m)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetMedicine returns a single catalog entry by id.
func (h *Handler) GetMedicine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := h.deps.Medicines.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, medicine.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Medicine not found")
			return
		}
		writeInternalError(w, r, errors.Wrap(err, "get medicine"))
		return
	}
	writeJSON(w, http.StatusOK, toMedicineResponse(*m))
}

func toMedicineResponse(m medicine.Medicine) medicineResponse {
	return medicineResponse{
		ID:                   m.ID,
		Name:                 m.Name,
		Brand:                m.Brand,
		Dosage:               m.Dosage,
		Category:             m.Category,
		Description:          m.Description,
		Price:                m.Price,
		PrescriptionRequired: m.PrescriptionRequired,
		InStock:              m.InStock,
		StockCount:           m.StockCount,
		Rating:               m.Rating,
		Reviews:              m.Reviews,
		CreatedAt:            m.CreatedAt,
	}
}
