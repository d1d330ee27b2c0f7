package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-ai/shop-assist/internal/index"
	"github.com/storefront-ai/shop-assist/internal/observability"
)

// fakeIndex is a canned-response index for classifier and retriever tests.
type fakeIndex struct {
	matches []index.Match
	err     error

	queries []string
}

func (f *fakeIndex) Exists(ctx context.Context) (bool, error) { return true, nil }
func (f *fakeIndex) Create(ctx context.Context) error         { return nil }
func (f *fakeIndex) Add(ctx context.Context, docs []index.Document) error {
	return nil
}
func (f *fakeIndex) Count(ctx context.Context) (int, error) { return len(f.matches), nil }
func (f *fakeIndex) Query(ctx context.Context, text string, k int) ([]index.Match, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.matches) > k {
		return f.matches[:k], nil
	}
	return f.matches, nil
}

func routeMatch(id string, route Intent, distance float64) index.Match {
	return index.Match{
		ID:       id,
		Metadata: map[string]interface{}{RouteMetadataKey: route.String()},
		Distance: distance,
	}
}

func TestKeywordClassifier_Classify(t *testing.T) {
	classifier := NewKeywordClassifier()

	tests := []struct {
		question string
		expected Intent
	}{
		{"Show me the top 5 shoes by rating", IntentStructured},
		{"List all products under Rs 2000", IntentStructured},
		{"What is the cheapest brand?", IntentStructured},
		{"best selling shirt in descending price", IntentStructured},

		{"How do I request a refund?", IntentUnstructured},
		{"Can I pay with a credit card?", IntentUnstructured},
		{"What is your exchange policy?", IntentUnstructured},
		{"Is cash on delivery available?", IntentUnstructured},

		{"Hello there", IntentUnknown},
		{"Tell me more", IntentUnknown},
		{"", IntentUnknown},
		{"   ", IntentUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			intent, err := classifier.Classify(context.Background(), tc.question)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, intent, "intent mismatch for: %s", tc.question)
		})
	}
}

func TestSemanticClassifier_Classify(t *testing.T) {
	logger := observability.Nop()

	t.Run("majority vote wins", func(t *testing.T) {
		idx := &fakeIndex{matches: []index.Match{
			routeMatch("r1", IntentStructured, 0.2),
			routeMatch("r2", IntentStructured, 0.3),
			routeMatch("r3", IntentUnstructured, 0.4),
		}}
		classifier := NewSemanticClassifier(idx, logger, 0.75)

		intent, err := classifier.Classify(context.Background(), "top 5 shoes")
		require.NoError(t, err)
		assert.Equal(t, IntentStructured, intent)
	})

	t.Run("tie goes to closest match", func(t *testing.T) {
		idx := &fakeIndex{matches: []index.Match{
			routeMatch("r1", IntentUnstructured, 0.1),
			routeMatch("r2", IntentStructured, 0.5),
		}}
		classifier := NewSemanticClassifier(idx, logger, 0.75)

		intent, err := classifier.Classify(context.Background(), "refund for shoes")
		require.NoError(t, err)
		assert.Equal(t, IntentUnstructured, intent)
	})

	t.Run("best match beyond threshold is unknown", func(t *testing.T) {
		idx := &fakeIndex{matches: []index.Match{
			routeMatch("r1", IntentStructured, 0.9),
		}}
		classifier := NewSemanticClassifier(idx, logger, 0.75)

		intent, err := classifier.Classify(context.Background(), "what is the meaning of life")
		require.NoError(t, err)
		assert.Equal(t, IntentUnknown, intent)
	})

	t.Run("distant neighbours do not vote", func(t *testing.T) {
		idx := &fakeIndex{matches: []index.Match{
			routeMatch("r1", IntentStructured, 0.2),
			routeMatch("r2", IntentUnstructured, 0.9),
			routeMatch("r3", IntentUnstructured, 0.95),
		}}
		classifier := NewSemanticClassifier(idx, logger, 0.75)

		intent, err := classifier.Classify(context.Background(), "top shoes")
		require.NoError(t, err)
		assert.Equal(t, IntentStructured, intent)
	})

	t.Run("no matches is unknown", func(t *testing.T) {
		idx := &fakeIndex{}
		classifier := NewSemanticClassifier(idx, logger, 0.75)

		intent, err := classifier.Classify(context.Background(), "anything")
		require.NoError(t, err)
		assert.Equal(t, IntentUnknown, intent)
	})

	t.Run("empty question skips the index", func(t *testing.T) {
		idx := &fakeIndex{}
		classifier := NewSemanticClassifier(idx, logger, 0.75)

		intent, err := classifier.Classify(context.Background(), "   ")
		require.NoError(t, err)
		assert.Equal(t, IntentUnknown, intent)
		assert.Empty(t, idx.queries)
	})

	t.Run("unlabelled matches are ignored", func(t *testing.T) {
		idx := &fakeIndex{matches: []index.Match{
			{ID: "r1", Metadata: map[string]interface{}{}, Distance: 0.1},
			routeMatch("r2", IntentUnstructured, 0.3),
		}}
		classifier := NewSemanticClassifier(idx, logger, 0.75)

		intent, err := classifier.Classify(context.Background(), "refund")
		require.NoError(t, err)
		assert.Equal(t, IntentUnstructured, intent)
	})
}
