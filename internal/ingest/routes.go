package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/storefront-ai/shop-assist/internal/index"
	"github.com/storefront-ai/shop-assist/internal/observability"
	"github.com/storefront-ai/shop-assist/internal/retrieval"
)

// RouteExemplar is one labeled example question used to route incoming
// questions by semantic similarity.
type RouteExemplar struct {
	Question string
	Route    retrieval.Intent
}

// defaultRouteExemplars seed the routing collection when no exemplar file is
// configured. Structured examples read like catalog lookups, unstructured
// ones like policy and how-to questions.
var defaultRouteExemplars = []RouteExemplar{
	{Question: "Show me the top 5 shoes by rating", Route: retrieval.IntentStructured},
	{Question: "What are the cheapest running shoes?", Route: retrieval.IntentStructured},
	{Question: "List all Nike products under 2000 rupees", Route: retrieval.IntentStructured},
	{Question: "Which brand has the highest average rating?", Route: retrieval.IntentStructured},
	{Question: "Find shoes with a discount over 40 percent", Route: retrieval.IntentStructured},
	{Question: "How many Campus shoes do you have?", Route: retrieval.IntentStructured},
	{Question: "What is the price of Puma sneakers?", Route: retrieval.IntentStructured},
	{Question: "Show products with more than 1000 ratings", Route: retrieval.IntentStructured},
	{Question: "How do I request a refund?", Route: retrieval.IntentUnstructured},
	{Question: "What payment methods do you accept?", Route: retrieval.IntentUnstructured},
	{Question: "Can I return a product after 30 days?", Route: retrieval.IntentUnstructured},
	{Question: "How do I track my order?", Route: retrieval.IntentUnstructured},
	{Question: "Do you ship internationally?", Route: retrieval.IntentUnstructured},
	{Question: "Is cash on delivery available?", Route: retrieval.IntentUnstructured},
	{Question: "How do I cancel my order?", Route: retrieval.IntentUnstructured},
	{Question: "What is your exchange policy?", Route: retrieval.IntentUnstructured},
}

// RoutesBootstrapper seeds the routing collection with labeled exemplars.
type RoutesBootstrapper struct {
	index  index.Index
	logger *observability.Logger
}

// NewRoutesBootstrapper creates a seeder for the routing collection.
func NewRoutesBootstrapper(idx index.Index, logger *observability.Logger) *RoutesBootstrapper {
	return &RoutesBootstrapper{
		index:  idx,
		logger: logger,
	}
}

// EnsureSeeded seeds route exemplars unless the collection already exists.
// With an empty sourcePath the built-in exemplars are used.
func (b *RoutesBootstrapper) EnsureSeeded(ctx context.Context, sourcePath string) error {
	exists, err := b.index.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check routes collection: %w", err)
	}
	if exists {
		b.logger.Info().Msg("routes collection exists, skipping seeding")
		return nil
	}

	exemplars := defaultRouteExemplars
	if sourcePath != "" {
		exemplars, err = ReadRouteFile(sourcePath)
		if err != nil {
			return fmt.Errorf("read route exemplars: %w", err)
		}
	}

	if err := b.index.Create(ctx); err != nil {
		return fmt.Errorf("create routes collection: %w", err)
	}

	docs := make([]index.Document, len(exemplars))
	for i, ex := range exemplars {
		docs[i] = index.Document{
			ID:       fmt.Sprintf("route_%d", i),
			Text:     ex.Question,
			Metadata: map[string]string{retrieval.RouteMetadataKey: ex.Route.String()},
		}
	}

	if err := b.index.Add(ctx, docs); err != nil {
		return fmt.Errorf("seed route exemplars: %w", err)
	}

	b.logger.Info().Int("exemplars", len(docs)).Msg("routes collection seeded")

	return nil
}

// ReadRouteFile parses a CSV file with question and route columns. Route
// values must be "structured" or "unstructured".
func ReadRouteFile(path string) ([]RouteExemplar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	questionCol, routeCol := -1, -1
	for i, name := range header {
		switch name {
		case "question":
			questionCol = i
		case "route":
			routeCol = i
		}
	}
	if questionCol < 0 || routeCol < 0 {
		return nil, fmt.Errorf("exemplar file must have question and route columns, got %v", header)
	}

	var exemplars []RouteExemplar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		route := retrieval.Intent(record[routeCol])
		if route != retrieval.IntentStructured && route != retrieval.IntentUnstructured {
			return nil, fmt.Errorf("unknown route %q for question %q", record[routeCol], record[questionCol])
		}

		exemplars = append(exemplars, RouteExemplar{
			Question: record[questionCol],
			Route:    route,
		})
	}

	if len(exemplars) == 0 {
		return nil, fmt.Errorf("exemplar file has no entries")
	}

	return exemplars, nil
}
