package assist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-ai/shop-assist/internal/answer"
	"github.com/storefront-ai/shop-assist/internal/cache"
	"github.com/storefront-ai/shop-assist/internal/catalog"
	"github.com/storefront-ai/shop-assist/internal/index"
	"github.com/storefront-ai/shop-assist/internal/llm"
	"github.com/storefront-ai/shop-assist/internal/observability"
	"github.com/storefront-ai/shop-assist/internal/retrieval"
)

// scriptedGenerator returns canned responses in call order.
type scriptedGenerator struct {
	responses []string
	err       error
	calls     int
}

func (g *scriptedGenerator) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	if g.calls >= len(g.responses) {
		return "", errors.New("unexpected completion call")
	}
	resp := g.responses[g.calls]
	g.calls++
	return resp, nil
}

// fixedClassifier always returns the same intent.
type fixedClassifier struct {
	intent retrieval.Intent
	calls  int
}

func (c *fixedClassifier) Classify(ctx context.Context, question string) (retrieval.Intent, error) {
	c.calls++
	return c.intent, nil
}

// fakeIndex serves canned FAQ matches.
type fakeIndex struct {
	matches []index.Match
}

func (f *fakeIndex) Exists(ctx context.Context) (bool, error)             { return true, nil }
func (f *fakeIndex) Create(ctx context.Context) error                     { return nil }
func (f *fakeIndex) Add(ctx context.Context, docs []index.Document) error { return nil }
func (f *fakeIndex) Count(ctx context.Context) (int, error)               { return len(f.matches), nil }
func (f *fakeIndex) Query(ctx context.Context, text string, k int) ([]index.Match, error) {
	if len(f.matches) > k {
		return f.matches[:k], nil
	}
	return f.matches, nil
}

// fixedStore returns canned rows for any statement.
type fixedStore struct {
	rows *catalog.Rows
	err  error
}

func (s *fixedStore) Select(ctx context.Context, query string) (*catalog.Rows, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func newTestService(classifier retrieval.Classifier, gen llm.Generator, store retrieval.TabularStore, idx index.Index, cacheClient cache.Client, cfg Config) *Service {
	logger := observability.Nop()
	sqlgen := retrieval.NewSQLSynthesizer(gen, store, logger, 1024)
	faq := retrieval.NewFAQRetriever(idx, logger, 3)
	synth := answer.NewSynthesizer(gen, logger, answer.Config{})
	return NewService(classifier, sqlgen, faq, synth, cacheClient, logger, cfg)
}

func TestService_Ask_Structured(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{
			"<SQL>SELECT * FROM product ORDER BY avg_rating DESC LIMIT 5</SQL>",
			"1. Campus Women Running Shoes: Rs. 1104 (35 percent off), Rating: 4.4 <link>",
		}}
		store := &fixedStore{rows: &catalog.Rows{
			Columns: []string{"title", "price"},
			Records: [][]interface{}{{"Campus Women Running Shoes", int64(1104)}},
		}}
		svc := newTestService(&fixedClassifier{intent: retrieval.IntentStructured}, gen, store, &fakeIndex{}, nil, Config{})

		got, err := svc.Ask(context.Background(), "show me the top 5 shoes by rating")
		require.NoError(t, err)
		assert.Equal(t, "1. Campus Women Running Shoes: Rs. 1104 (35 percent off), Rating: 4.4 <link>", got)
	})

	t.Run("no query generated", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{"I cannot write a query for that."}}
		svc := newTestService(&fixedClassifier{intent: retrieval.IntentStructured}, gen, &fixedStore{}, &fakeIndex{}, nil, Config{})

		got, err := svc.Ask(context.Background(), "show me something odd")
		require.NoError(t, err)
		assert.Equal(t, "none found", got)
	})

	t.Run("rejected query", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{"<SQL>DROP TABLE product</SQL>"}}
		svc := newTestService(&fixedClassifier{intent: retrieval.IntentStructured}, gen, &fixedStore{}, &fakeIndex{}, nil, Config{})

		got, err := svc.Ask(context.Background(), "show products")
		require.NoError(t, err)
		assert.Equal(t, "sorry, no matches found!", got)
	})

	t.Run("no matching rows", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{"<SQL>SELECT * FROM product WHERE brand LIKE '%nosuch%'</SQL>"}}
		store := &fixedStore{err: catalog.ErrNoRows}
		svc := newTestService(&fixedClassifier{intent: retrieval.IntentStructured}, gen, store, &fakeIndex{}, nil, Config{})

		got, err := svc.Ask(context.Background(), "show nosuch brand shoes")
		require.NoError(t, err)
		assert.Equal(t, "sorry, no matches found!", got)
	})

	t.Run("store failure is an error", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{"<SQL>SELECT * FROM product</SQL>"}}
		store := &fixedStore{err: errors.New("database locked")}
		svc := newTestService(&fixedClassifier{intent: retrieval.IntentStructured}, gen, store, &fakeIndex{}, nil, Config{})

		_, err := svc.Ask(context.Background(), "show products")
		assert.Error(t, err)
	})
}

func TestService_Ask_Unstructured(t *testing.T) {
	idx := &fakeIndex{matches: []index.Match{
		{ID: "id_0", Metadata: map[string]interface{}{"answer": "Refunds take 7 days."}, Distance: 0.1},
		{ID: "id_1", Metadata: map[string]interface{}{"answer": "Contact support first."}, Distance: 0.2},
	}}
	gen := &scriptedGenerator{responses: []string{"You can get a refund within 7 days after contacting support."}}
	svc := newTestService(&fixedClassifier{intent: retrieval.IntentUnstructured}, gen, &fixedStore{}, idx, nil, Config{})

	got, err := svc.Ask(context.Background(), "how do I request a refund?")
	require.NoError(t, err)
	assert.Equal(t, "You can get a refund within 7 days after contacting support.", got)
}

func TestService_Ask_Unknown(t *testing.T) {
	gen := &scriptedGenerator{}
	svc := newTestService(&fixedClassifier{intent: retrieval.IntentUnknown}, gen, &fixedStore{}, &fakeIndex{}, nil, Config{})

	got, err := svc.Ask(context.Background(), "what is the meaning of life")
	require.NoError(t, err)
	assert.Equal(t, "what is the meaning of life not in the lib", got)
	assert.Zero(t, gen.calls)
}

func TestService_Respond_Caching(t *testing.T) {
	classifier := &fixedClassifier{intent: retrieval.IntentUnknown}
	memCache := cache.NewMemoryClient(100)
	svc := newTestService(classifier, &scriptedGenerator{}, &fixedStore{}, &fakeIndex{}, memCache, Config{CacheAnswers: true})

	first, err := svc.Respond(context.Background(), "mystery question")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Respond(context.Background(), "mystery question")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.Intent, second.Intent)
	assert.Equal(t, 1, classifier.calls)
}

func TestService_Respond_CacheDisabledWithoutClient(t *testing.T) {
	classifier := &fixedClassifier{intent: retrieval.IntentUnknown}
	svc := newTestService(classifier, &scriptedGenerator{}, &fixedStore{}, &fakeIndex{}, nil, Config{CacheAnswers: true})

	_, err := svc.Respond(context.Background(), "q")
	require.NoError(t, err)
	_, err = svc.Respond(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, classifier.calls)
}
