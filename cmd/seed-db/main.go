// Command seed-db prepares a database for local development and tests: it
// runs migrations and loads the default service catalog, a starter set of
// pharmacy medicines, and an admin API key.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/careplus/clinic-api/internal/domain/auth"
	"github.com/careplus/clinic-api/internal/domain/clinic"
	"github.com/careplus/clinic-api/internal/domain/medicine"
	"github.com/careplus/clinic-api/internal/handler"
	"github.com/careplus/clinic-api/internal/postgres"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or CLINIC_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CLINIC_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("CLINIC_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or CLINIC_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("CLINIC_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedServices(ctx, postgres.NewServiceRepository(pool)); err != nil {
		return errors.Wrap(err, "seed services")
	}
	if err := seedMedicines(ctx, postgres.NewMedicineRepository(pool)); err != nil {
		return errors.Wrap(err, "seed medicines")
	}
	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedServices(ctx context.Context, repo *postgres.ServiceRepository) error {
	services := []clinic.Service{
		{
			ID:          "general-medicine",
			Name:        "General Medicine",
			Category:    "primary-care",
			Description: "Comprehensive primary care services including routine check-ups, preventive care, and treatment of common illnesses.",
			Duration:    45,
			Price:       decimal.RequireFromString("75.00"),
			Available:   true,
		},
		{
			ID:          "cardiology-consultation",
			Name:        "Cardiology Consultation",
			Category:    "specialty",
			Description: "Specialized cardiac care including heart health assessments, ECG, and cardiovascular disease management.",
			Duration:    60,
			Price:       decimal.RequireFromString("150.00"),
			Available:   true,
		},
		{
			ID:          "mental-health-counseling",
			Name:        "Mental Health Counseling",
			Category:    "mental-health",
			Description: "Professional mental health support including therapy sessions, stress management, and emotional wellness.",
			Duration:    90,
			Price:       decimal.RequireFromString("120.00"),
			Available:   true,
		},
		{
			ID:          "pediatric-care",
			Name:        "Pediatric Care",
			Category:    "pediatrics",
			Description: "Specialized healthcare for children including wellness checks, vaccinations, and developmental assessments.",
			Duration:    30,
			Price:       decimal.RequireFromString("85.00"),
			Available:   true,
		},
	}

	slog.Info("upserting services", slog.Int("count", len(services)))

	for i := range services {
		if err := repo.Upsert(ctx, &services[i]); err != nil {
			return errors.Wrapf(err, "upsert service %s", services[i].ID)
		}
		slog.Info("upserted service", slog.String("id", services[i].ID), slog.String("name", services[i].Name))
	}
	return nil
}

func seedMedicines(ctx context.Context, repo *postgres.MedicineRepository) error {
	medicines := []medicine.Medicine{
		{
			ID:          "acetaminophen-500",
			Name:        "Acetaminophen 500mg",
			Brand:       "Generic",
			Dosage:      "500mg tablets",
			Category:    "pain-relief",
			Description: "Pain reliever and fever reducer. Non-prescription pain medication for headaches, muscle aches, and arthritis.",
			Price:       decimal.RequireFromString("12.99"),
			StockCount:  150,
			Rating:      decimal.RequireFromString("4.5"),
			Reviews:     324,
		},
		{
			ID:                   "lisinopril-10",
			Name:                 "Lisinopril 10mg",
			Brand:                "Prinivil",
			Dosage:               "10mg tablets",
			Category:             "cardiovascular",
			Description:          "ACE inhibitor for high blood pressure and heart failure. Requires prescription from healthcare provider.",
			Price:                decimal.RequireFromString("24.99"),
			PrescriptionRequired: true,
			StockCount:           75,
			Rating:               decimal.RequireFromString("4.2"),
			Reviews:              186,
		},
		{
			ID:                   "metformin-500",
			Name:                 "Metformin 500mg",
			Brand:                "Glucophage",
			Dosage:               "500mg XR tablets",
			Category:             "diabetes",
			Description:          "Diabetes medication to control blood sugar levels. Extended-release formula for better compliance.",
			Price:                decimal.RequireFromString("18.50"),
			PrescriptionRequired: true,
			StockCount:           120,
			Rating:               decimal.RequireFromString("4.7"),
			Reviews:              298,
		},
		{
			ID:          "vitamin-d3-2000",
			Name:        "Vitamin D3 2000 IU",
			Brand:       "Nature Made",
			Dosage:      "2000 IU softgels",
			Category:    "vitamins",
			Description: "Bone health supplement. Supports immune system and calcium absorption for strong bones.",
			Price:       decimal.RequireFromString("15.99"),
			StockCount:  200,
			Rating:      decimal.RequireFromString("4.6"),
			Reviews:     412,
		},
		{
			ID:                   "amoxicillin-500",
			Name:                 "Amoxicillin 500mg",
			Brand:                "Amoxil",
			Dosage:               "500mg capsules",
			Category:             "antibiotics",
			Description:          "Antibiotic for bacterial infections. Treats respiratory, urinary tract, and skin infections.",
			Price:                decimal.RequireFromString("32.00"),
			PrescriptionRequired: true,
			StockCount:           45,
			Rating:               decimal.RequireFromString("4.3"),
			Reviews:              156,
		},
		{
			ID:          "omega-3-fish-oil",
			Name:        "Omega-3 Fish Oil",
			Brand:       "Nordic Naturals",
			Dosage:      "1000mg softgels",
			Category:    "vitamins",
			Description: "Heart health supplement with EPA and DHA. Supports cardiovascular and brain health.",
			Price:       decimal.RequireFromString("22.99"),
			StockCount:  180,
			Rating:      decimal.RequireFromString("4.8"),
			Reviews:     523,
		},
	}

	slog.Info("upserting medicines", slog.Int("count", len(medicines)))

	for i := range medicines {
		if err := repo.Upsert(ctx, &medicines[i]); err != nil {
			return errors.Wrapf(err, "upsert medicine %s", medicines[i].ID)
		}
		slog.Info("upserted medicine", slog.String("id", medicines[i].ID), slog.String("name", medicines[i].Name))
	}
	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	info := &auth.APIKeyInfo{
		ID:      "admin",
		KeyHash: handler.HashAPIKey(pepper, apiKey),
		Name:    "Admin key",
		Scopes:  []string{"admin"},
	}
	if err := repo.Upsert(ctx, info, true); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))
	return nil
}
