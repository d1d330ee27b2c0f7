// Package index provides the semantic index adapter backed by Chroma.
package index

import (
	"context"
	"encoding/json"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/storefront-ai/shop-assist/internal/embedding"
)

// Document is one entry to be stored in the index.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Match is one nearest-neighbour result, most similar first.
type Match struct {
	ID       string
	Text     string
	Metadata map[string]interface{}
	Distance float64
}

// Index is the semantic index interface consumed by retrieval and ingestion.
type Index interface {
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context) error
	Add(ctx context.Context, docs []Document) error
	Query(ctx context.Context, text string, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
}

// ChromaIndex implements Index over one named Chroma collection.
type ChromaIndex struct {
	client     chromago.Client
	embedder   embedding.Embedder
	collection string
}

// NewChromaClient creates a Chroma API client for the given server URL.
func NewChromaClient(url string) (chromago.Client, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(url))
	if err != nil {
		return nil, fmt.Errorf("create chroma client: %w", err)
	}
	return client, nil
}

// NewChromaIndex creates an index adapter for one collection.
func NewChromaIndex(client chromago.Client, embedder embedding.Embedder, collection string) *ChromaIndex {
	return &ChromaIndex{
		client:     client,
		embedder:   embedder,
		collection: collection,
	}
}

// Name returns the collection name.
func (x *ChromaIndex) Name() string {
	return x.collection
}

// Exists reports whether the collection is already present on the server.
func (x *ChromaIndex) Exists(ctx context.Context) (bool, error) {
	collections, err := x.client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}

	for _, c := range collections {
		if c.Name() == x.collection {
			return true, nil
		}
	}
	return false, nil
}

// Create creates the collection. Creation goes through the server's
// get-or-create so two process instances racing to create the same
// collection both succeed, and the loser performs no second create.
func (x *ChromaIndex) Create(ctx context.Context) error {
	_, err := x.client.GetOrCreateCollection(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("create collection %q: %w", x.collection, err)
	}
	return nil
}

// Add embeds and stores the given documents.
func (x *ChromaIndex) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	collection, err := x.client.GetOrCreateCollection(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("get collection %q: %w", x.collection, err)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}

	for i, doc := range docs {
		attrs := make([]*chromago.MetaAttribute, 0, len(doc.Metadata))
		for key, value := range doc.Metadata {
			attrs = append(attrs, chromago.NewStringAttribute(key, value))
		}

		err := collection.Add(ctx,
			chromago.WithIDs(chromago.DocumentID(doc.ID)),
			chromago.WithTexts(doc.Text),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vectors[i])),
			chromago.WithMetadatas(chromago.NewDocumentMetadata(attrs...)),
		)
		if err != nil {
			return fmt.Errorf("add document %s: %w", doc.ID, err)
		}
	}

	return nil
}

// Query returns the k nearest documents for the given text, most similar
// first. Fewer than k results is not an error.
func (x *ChromaIndex) Query(ctx context.Context, text string, k int) ([]Match, error) {
	collection, err := x.client.GetCollection(ctx, x.collection)
	if err != nil {
		return nil, fmt.Errorf("get collection %q: %w", x.collection, err)
	}

	vector, err := x.embedder.EmbedSingle(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("query collection %q: %w", x.collection, err)
	}

	idGroups := results.GetIDGroups()
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()

	if len(documentGroups) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		match := Match{Text: doc.ContentString()}

		if len(idGroups) > 0 && i < len(idGroups[0]) {
			match.ID = string(idGroups[0][i])
		}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			match.Distance = float64(distanceGroups[0][i])
		}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			match.Metadata = metadataToMap(metadataGroups[0][i])
		}

		matches = append(matches, match)
	}

	return matches, nil
}

// Count returns the number of documents in the collection.
func (x *ChromaIndex) Count(ctx context.Context) (int, error) {
	collection, err := x.client.GetCollection(ctx, x.collection)
	if err != nil {
		return 0, fmt.Errorf("get collection %q: %w", x.collection, err)
	}

	count, err := collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count collection %q: %w", x.collection, err)
	}
	return int(count), nil
}

// metadataToMap converts a Chroma document metadata value to a plain map.
// DocumentMetadata has no public values accessor, so it round-trips
// through JSON.
func metadataToMap(metadata chromago.DocumentMetadata) map[string]interface{} {
	out := make(map[string]interface{})
	if metadata == nil {
		return out
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

var _ Index = (*ChromaIndex)(nil)
