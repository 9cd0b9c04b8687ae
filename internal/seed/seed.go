// Package seed generates a deterministic demo catalog and bulk-loads it into
// the products table.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
)

// DefaultBatchSize is the number of products per multi-row INSERT.
const DefaultBatchSize = 500

// productNamespace scopes the name-based UUIDs so re-runs produce the same ids.
var productNamespace = uuid.MustParse("6f1d3b7e-2c4a-4f0e-9a57-1b8e6c2d9f30")

var (
	prefixes = []string{"Classic", "Essential", "Everyday", "Premium", "Organic", "Vintage", "Modern", "Compact"}
	colors   = []string{"Black", "White", "Navy", "Olive", "Sand", "Burgundy", "Slate", "Rust"}
	kinds    = []struct {
		name     string
		minPrice int64 // cents
		maxPrice int64
	}{
		{"Mug", 800, 2500},
		{"Notebook", 500, 1800},
		{"Backpack", 3500, 12000},
		{"Water Bottle", 1200, 3500},
		{"T-Shirt", 1500, 4000},
		{"Desk Lamp", 2500, 9000},
		{"Tote Bag", 900, 2800},
		{"Scarf", 1800, 6000},
	}
	descriptionTemplates = []string{
		"A %s built for daily use, with materials chosen to last.",
		"Our %s pairs a clean design with practical details.",
		"This %s is a customer favourite and easy to care for.",
	}
)

// ProductID returns the stable id of the index-th generated product.
func ProductID(index int) string {
	return uuid.NewSHA1(productNamespace, []byte("product:"+strconv.Itoa(index))).String()
}

// Generate builds n products from rng. The same seed yields the same catalog.
// Roughly one product in ten is out of stock so cart warnings can be tried out.
func Generate(rng *rand.Rand, n int, now time.Time) []domain.Product {
	products := make([]domain.Product, 0, n)
	for i := 0; i < n; i++ {
		kind := kinds[rng.Intn(len(kinds))]
		color := colors[rng.Intn(len(colors))]
		name := fmt.Sprintf("%s %s - %s", prefixes[rng.Intn(len(prefixes))], kind.name, color)

		cents := kind.minPrice + rng.Int63n(kind.maxPrice-kind.minPrice+1)
		cents = cents/50*50 + 49 // x.49 / x.99 price points

		stock := 0
		if rng.Intn(10) != 0 {
			stock = 1 + rng.Intn(50)
		}

		slug := strings.ToLower(strings.ReplaceAll(kind.name, " ", "-"))
		created := now.Add(-time.Duration(rng.Intn(90*24)) * time.Hour)

		products = append(products, domain.Product{
			ID:          ProductID(i),
			Name:        name,
			Description: fmt.Sprintf(descriptionTemplates[rng.Intn(len(descriptionTemplates))], strings.ToLower(kind.name)),
			Price:       decimal.New(cents, -2),
			Images:      []string{fmt.Sprintf("/images/%s/%d.jpg", slug, i)},
			Stock:       stock,
			CreatedAt:   created,
			UpdatedAt:   created,
		})
	}
	return products
}

// Insert upserts products in batches inside one transaction and returns how
// many rows were written. Existing ids get their name, price, images and
// stock refreshed.
func Insert(ctx context.Context, db database.DBTX, products []domain.Product, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	written := 0
	err := database.WithTx(ctx, db, func(tx pgx.Tx) error {
		for start := 0; start < len(products); start += batchSize {
			end := min(start+batchSize, len(products))
			sql, args := upsertBatch(products[start:end])
			tag, err := tx.Exec(ctx, sql, args...)
			if err != nil {
				return fmt.Errorf("insert products %d-%d: %w", start, end-1, err)
			}
			written += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

const productCols = 8

func upsertBatch(batch []domain.Product) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO products (id, name, description, price, images, stock, created_at, updated_at) VALUES ")

	args := make([]any, 0, len(batch)*productCols)
	for i, p := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * productCols
		sb.WriteString("(")
		for c := 1; c <= productCols; c++ {
			if c > 1 {
				sb.WriteString(", ")
			}
			sb.WriteString("$" + strconv.Itoa(base+c))
		}
		sb.WriteString(")")
		args = append(args, p.ID, p.Name, p.Description, p.Price, p.Images, p.Stock, p.CreatedAt, p.UpdatedAt)
	}

	sb.WriteString(` ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		price = EXCLUDED.price,
		images = EXCLUDED.images,
		stock = EXCLUDED.stock,
		updated_at = EXCLUDED.updated_at`)
	return sb.String(), args
}
