// Command seed fills the storefront products table with a deterministic demo
// catalog. It reads the same environment as the server.
//
// Run: go run ./cmd/seed -count 1000
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/seed"
	"github.com/utafrali/storefront/migrations"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/logger"
)

func main() {
	count := flag.Int("count", 1000, "number of products to generate")
	randSeed := flag.Int64("seed", 42, "random seed; the same seed yields the same catalog")
	batch := flag.Int("batch", seed.DefaultBatchSize, "rows per INSERT statement")
	flag.Parse()

	if err := pkgconfig.LoadEnvFiles(".env", ".env.local"); err != nil {
		slog.Error("failed to load env file", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	start := time.Now()
	products := seed.Generate(rand.New(rand.NewSource(*randSeed)), *count, time.Now().UTC()) // #nosec G404 -- demo data
	n, err := seed.Insert(ctx, pool, products, *batch)
	if err != nil {
		log.Error("failed to insert products", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("catalog seeded",
		slog.Int("products", n),
		slog.Int64("seed", *randSeed),
		slog.Duration("took", time.Since(start)),
	)
}
