package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/storefront-ai/shop-assist/internal/catalog"
)

// newLoadCatalogCmd creates the load-catalog subcommand.
func newLoadCatalogCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "load-catalog",
		Short: "Load the product CSV into the catalog database",
		Long: `Load-catalog creates the product table and fills it from a CSV file with
columns product_link, title, brand, price, discount, avg_rating, and
total_ratings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			store, err := catalog.Open(catalog.Config{
				Path:        cfg.Catalog.Path,
				JournalMode: cfg.Catalog.JournalMode,
			})
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate catalog: %w", err)
			}

			count, err := loadProducts(ctx, store, input)
			if err != nil {
				return err
			}

			if noColor {
				fmt.Printf("✓ Loaded %d products into %s\n", count, cfg.Catalog.Path)
			} else {
				color.New(color.FgGreen).Printf("✓ Loaded %d products into %s\n", count, cfg.Catalog.Path)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "product CSV path (required)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func loadProducts(ctx context.Context, store *catalog.Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"product_link", "title", "brand", "price", "discount", "avg_rating", "total_ratings"} {
		if _, ok := cols[required]; !ok {
			return 0, fmt.Errorf("missing column %q in %s", required, path)
		}
	}

	var count int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read record %d: %w", count+1, err)
		}

		row, err := productFromRecord(cols, record)
		if err != nil {
			return count, fmt.Errorf("record %d: %w", count+1, err)
		}

		if err := store.InsertProduct(ctx, row); err != nil {
			return count, fmt.Errorf("insert record %d: %w", count+1, err)
		}
		count++
	}

	return count, nil
}

func productFromRecord(cols map[string]int, record []string) (catalog.ProductRow, error) {
	price, err := strconv.ParseInt(record[cols["price"]], 10, 64)
	if err != nil {
		return catalog.ProductRow{}, fmt.Errorf("parse price: %w", err)
	}
	discount, err := strconv.ParseFloat(record[cols["discount"]], 64)
	if err != nil {
		return catalog.ProductRow{}, fmt.Errorf("parse discount: %w", err)
	}
	avgRating, err := strconv.ParseFloat(record[cols["avg_rating"]], 64)
	if err != nil {
		return catalog.ProductRow{}, fmt.Errorf("parse avg_rating: %w", err)
	}
	totalRatings, err := strconv.ParseInt(record[cols["total_ratings"]], 10, 64)
	if err != nil {
		return catalog.ProductRow{}, fmt.Errorf("parse total_ratings: %w", err)
	}

	return catalog.ProductRow{
		Link:         record[cols["product_link"]],
		Title:        record[cols["title"]],
		Brand:        record[cols["brand"]],
		Price:        price,
		Discount:     discount,
		AvgRating:    avgRating,
		TotalRatings: totalRatings,
	}, nil
}
