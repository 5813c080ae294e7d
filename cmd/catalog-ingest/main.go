// Command catalog-ingest loads supplier catalog feeds into the medicines
// table. Feeds are gzip-compressed JSONL files, one medicine per line, and
// can be large and overlapping: a bloom filter de-duplicates records across
// feeds so each medicine is upserted once per run.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/careplus/clinic-api/internal/domain/medicine"
	"github.com/careplus/clinic-api/internal/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

type medicineJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Brand        string          `json:"brand"`
	Dosage       string          `json:"dosage"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Prescription bool            `json:"prescription"`
	StockCount   int             `json:"stockCount"`
	Rating       decimal.Decimal `json:"rating"`
	Reviews      int             `json:"reviews"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz catalog feeds")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feeds")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz feeds found in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewMedicineRepository(pool)

	// seen tracks IDs already upserted this run. The bloom filter answers
	// "definitely new" cheaply; on a possible hit the exact set decides, so
	// false positives never drop records.
	var (
		mu     sync.Mutex
		filter = bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		exact  = make(map[string]struct{})
	)
	claim := func(id string) bool {
		mu.Lock()
		defer mu.Unlock()
		if filter.TestString(id) {
			if _, dup := exact[id]; dup {
				return false
			}
		}
		filter.AddString(id)
		exact[id] = struct{}{}
		return true
	}

	slog.Info("ingesting feeds", slog.Int("files", len(files)))

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(ingestFeed(ctx, f, repo, claim))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary", slog.Int("medicines", len(exact)))
	return nil
}

func ingestFeed(
	ctx context.Context,
	path string,
	repo *postgres.MedicineRepository,
	claim func(id string) bool,
) func() error {
	return func() error {
		var count, skipped uint64

		err := streamGzLines(ctx, path, func(line []byte) error {
			var rec medicineJSON
			if err := json.Unmarshal(line, &rec); err != nil {
				return errors.Wrap(err, "parse record")
			}
			if rec.ID == "" || rec.Name == "" {
				skipped++
				return nil
			}
			if !claim(rec.ID) {
				skipped++
				return nil
			}

			m := medicine.Medicine{
				ID:                   rec.ID,
				Name:                 rec.Name,
				Brand:                rec.Brand,
				Dosage:               rec.Dosage,
				Category:             rec.Category,
				Description:          rec.Description,
				Price:                rec.Price,
				PrescriptionRequired: rec.Prescription,
				StockCount:           rec.StockCount,
				Rating:               rec.Rating,
				Reviews:              rec.Reviews,
			}
			if err := repo.Upsert(ctx, &m); err != nil {
				return errors.Wrapf(err, "upsert medicine %s", rec.ID)
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.String("file", filepath.Base(path)),
					slog.Uint64("medicines", count),
				)
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "ingest %s", filepath.Base(path))
		}

		slog.Info("feed complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("medicines", count),
			slog.Uint64("skipped", skipped),
		)
		return nil
	}
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
