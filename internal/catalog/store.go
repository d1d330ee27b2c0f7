// Package catalog provides the tabular product store backed by SQLite.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoRows indicates a query executed successfully but matched nothing.
var ErrNoRows = errors.New("no rows matched")

// ProductRow is one row of the product table.
type ProductRow struct {
	Link         string
	Title        string
	Brand        string
	Price        int64
	Discount     float64
	AvgRating    float64
	TotalRatings int64
}

// Rows holds a generic result set in store-native order. Column order is
// preserved so downstream serialization can reference fields by name.
type Rows struct {
	Columns []string
	Records [][]interface{}
}

// Len returns the number of records.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// Store executes read queries against the product catalog.
type Store struct {
	db *sql.DB
}

// Config holds catalog store settings.
type Config struct {
	Path        string
	JournalMode string
}

// Open opens the SQLite catalog at the given path.
func Open(cfg Config) (*Store, error) {
	dsn := cfg.Path
	if cfg.JournalMode != "" {
		dsn = fmt.Sprintf("%s?_journal_mode=%s", cfg.Path, cfg.JournalMode)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping catalog: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle. Used by tests.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the product table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS product (
			product_link TEXT NOT NULL,
			title TEXT NOT NULL,
			brand TEXT NOT NULL,
			price INTEGER NOT NULL,
			discount REAL NOT NULL,
			avg_rating REAL NOT NULL,
			total_ratings INTEGER NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	return nil
}

// InsertProduct adds one product row. Used by seeding and tests; the query
// pipeline itself never writes.
func (s *Store) InsertProduct(ctx context.Context, p ProductRow) error {
	query := `
		INSERT INTO product (product_link, title, brand, price, discount, avg_rating, total_ratings)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.Link, p.Title, p.Brand, p.Price, p.Discount, p.AvgRating, p.TotalRatings,
	)
	return err
}

// Select executes one read query and returns the rows in store-native order.
// Returns ErrNoRows when the query matched nothing.
func (s *Store) Select(ctx context.Context, query string) (*Rows, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &Rows{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		record := make([]interface{}, len(columns))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				record[i] = string(b)
			} else {
				record[i] = v
			}
		}
		result.Records = append(result.Records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	if len(result.Records) == 0 {
		return nil, ErrNoRows
	}

	return result, nil
}

// Products maps the generic result set onto typed product rows. Columns the
// result set does not carry stay zero-valued.
func (r *Rows) Products() []ProductRow {
	position := make(map[string]int, len(r.Columns))
	for i, col := range r.Columns {
		position[col] = i
	}

	products := make([]ProductRow, 0, len(r.Records))
	for _, record := range r.Records {
		var p ProductRow
		if i, ok := position["product_link"]; ok {
			p.Link, _ = record[i].(string)
		}
		if i, ok := position["title"]; ok {
			p.Title, _ = record[i].(string)
		}
		if i, ok := position["brand"]; ok {
			p.Brand, _ = record[i].(string)
		}
		if i, ok := position["price"]; ok {
			p.Price = toInt64(record[i])
		}
		if i, ok := position["discount"]; ok {
			p.Discount = toFloat64(record[i])
		}
		if i, ok := position["avg_rating"]; ok {
			p.AvgRating = toFloat64(record[i])
		}
		if i, ok := position["total_ratings"]; ok {
			p.TotalRatings = toInt64(record[i])
		}
		products = append(products, p)
	}
	return products
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
