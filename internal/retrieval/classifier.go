package retrieval

import (
	"context"
	"strings"

	"github.com/storefront-ai/shop-assist/internal/index"
	"github.com/storefront-ai/shop-assist/internal/observability"
)

// RouteMetadataKey is the metadata field carrying a route label on documents
// in the routes collection.
const RouteMetadataKey = "route"

// Classifier maps a question to exactly one intent. Unrecognized or
// ambiguous questions map to IntentUnknown, never to a guessed branch.
// Implementations only return an error for collaborator failures.
type Classifier interface {
	Classify(ctx context.Context, question string) (Intent, error)
}

// SemanticClassifier classifies by nearest labelled example utterance in a
// routes collection. Each stored document is one example question whose
// metadata names the route it belongs to.
type SemanticClassifier struct {
	index       index.Index
	logger      *observability.Logger
	maxDistance float64
	neighbours  int
}

// NewSemanticClassifier creates a semantic route classifier. Matches beyond
// maxDistance are treated as no match.
func NewSemanticClassifier(idx index.Index, logger *observability.Logger, maxDistance float64) *SemanticClassifier {
	if maxDistance <= 0 {
		maxDistance = 0.75
	}
	return &SemanticClassifier{
		index:       idx,
		logger:      logger,
		maxDistance: maxDistance,
		neighbours:  3,
	}
}

// Classify returns the route of the nearest labelled example within the
// distance threshold, by majority among the nearest neighbours.
func (c *SemanticClassifier) Classify(ctx context.Context, question string) (Intent, error) {
	if strings.TrimSpace(question) == "" {
		return IntentUnknown, nil
	}

	matches, err := c.index.Query(ctx, question, c.neighbours)
	if err != nil {
		return IntentUnknown, err
	}
	if len(matches) == 0 || matches[0].Distance > c.maxDistance {
		return IntentUnknown, nil
	}

	votes := make(map[Intent]int)
	for _, m := range matches {
		if m.Distance > c.maxDistance {
			continue
		}
		label, _ := m.Metadata[RouteMetadataKey].(string)
		switch intent := Intent(label); intent {
		case IntentStructured, IntentUnstructured:
			votes[intent]++
		}
	}

	best := IntentUnknown
	bestVotes := 0
	for intent, n := range votes {
		if n > bestVotes {
			best = intent
			bestVotes = n
		} else if n == bestVotes && bestVotes > 0 && intent != best {
			// Tie between routes: prefer the route of the closest match.
			best = c.closestOf(matches, best, intent)
		}
	}

	c.logger.Debug().
		Str("question", question).
		Str("intent", best.String()).
		Int("matches", len(matches)).
		Msg("classified question")

	return best, nil
}

func (c *SemanticClassifier) closestOf(matches []index.Match, a, b Intent) Intent {
	for _, m := range matches {
		label, _ := m.Metadata[RouteMetadataKey].(string)
		switch Intent(label) {
		case a:
			return a
		case b:
			return b
		}
	}
	return a
}

// KeywordClassifier classifies with fixed lexical patterns. It needs no
// collaborators, which makes it the offline and test-time classifier.
type KeywordClassifier struct {
	structuredPatterns   []string
	unstructuredPatterns []string
}

// NewKeywordClassifier creates a keyword classifier with the default
// pattern sets for catalog and FAQ questions.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		structuredPatterns: []string{
			"show",
			"list",
			"top",
			"cheapest",
			"price",
			"priced",
			"under rs",
			"below rs",
			"discount of",
			"rating",
			"ratings",
			"rated",
			"brand",
			"shoes",
			"shirt",
			"jeans",
			"products",
			"in descending",
			"in ascending",
			"sort",
			"best selling",
		},
		unstructuredPatterns: []string{
			"how do i",
			"how can i",
			"can i",
			"do i get",
			"is it possible",
			"what if",
			"policy",
			"refund",
			"return",
			"exchange",
			"payment",
			"credit card",
			"debit card",
			"emi",
			"cash on delivery",
			"delivery",
			"shipping",
			"track",
			"order",
			"cancel",
			"warranty",
		},
	}
}

// Classify determines the intent from lexical patterns alone.
func (c *KeywordClassifier) Classify(ctx context.Context, question string) (Intent, error) {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return IntentUnknown, nil
	}

	structured := 0
	for _, pattern := range c.structuredPatterns {
		if strings.Contains(q, pattern) {
			structured++
		}
	}

	unstructured := 0
	for _, pattern := range c.unstructuredPatterns {
		if strings.Contains(q, pattern) {
			unstructured++
		}
	}

	switch {
	case structured > unstructured:
		return IntentStructured, nil
	case unstructured > structured:
		return IntentUnstructured, nil
	default:
		return IntentUnknown, nil
	}
}

var (
	_ Classifier = (*SemanticClassifier)(nil)
	_ Classifier = (*KeywordClassifier)(nil)
)
