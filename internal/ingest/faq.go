// Package ingest provides the one-time FAQ bootstrap into the semantic index.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/storefront-ai/shop-assist/internal/index"
	"github.com/storefront-ai/shop-assist/internal/observability"
)

// FAQEntry is one row of the FAQ source file.
type FAQEntry struct {
	Question string
	Answer   string
}

// Bootstrapper loads FAQ rows into the semantic index exactly once.
type Bootstrapper struct {
	index  index.Index
	logger *observability.Logger
}

// NewBootstrapper creates an ingestion bootstrapper for the FAQ collection.
func NewBootstrapper(idx index.Index, logger *observability.Logger) *Bootstrapper {
	return &Bootstrapper{
		index:  idx,
		logger: logger,
	}
}

// EnsureIngested ingests the FAQ source file unless the collection already
// exists. Safe to call on every process start; a repeated call performs no
// writes. Concurrent process instances racing to create the collection rely
// on the store's own create-once guarantee, so losing the race is benign.
func (b *Bootstrapper) EnsureIngested(ctx context.Context, sourcePath string) error {
	exists, err := b.index.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check faq collection: %w", err)
	}
	if exists {
		b.logger.Info().Str("source", sourcePath).Msg("faq collection exists, skipping ingestion")
		return nil
	}

	entries, err := ReadFAQFile(sourcePath)
	if err != nil {
		return fmt.Errorf("read faq source: %w", err)
	}

	if err := b.index.Create(ctx); err != nil {
		return fmt.Errorf("create faq collection: %w", err)
	}

	docs := make([]index.Document, len(entries))
	for i, entry := range entries {
		docs[i] = index.Document{
			ID:       fmt.Sprintf("id_%d", i),
			Text:     entry.Question,
			Metadata: map[string]string{"answer": entry.Answer},
		}
	}

	if err := b.index.Add(ctx, docs); err != nil {
		return fmt.Errorf("ingest faq entries: %w", err)
	}

	b.logger.Info().
		Str("source", sourcePath).
		Int("entries", len(docs)).
		Msg("faq collection ingested")

	return nil
}

// ReadFAQFile parses a CSV file with question and answer columns.
func ReadFAQFile(path string) ([]FAQEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return parseFAQ(csv.NewReader(f))
}

func parseFAQ(reader *csv.Reader) ([]FAQEntry, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	questionCol, answerCol := -1, -1
	for i, name := range header {
		switch name {
		case "question":
			questionCol = i
		case "answer":
			answerCol = i
		}
	}
	if questionCol < 0 || answerCol < 0 {
		return nil, fmt.Errorf("source file must have question and answer columns, got %v", header)
	}

	var entries []FAQEntry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		entries = append(entries, FAQEntry{
			Question: record[questionCol],
			Answer:   record[answerCol],
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("source file has no entries")
	}

	return entries, nil
}
