package retrieval

import (
	"context"
	"fmt"

	"github.com/storefront-ai/shop-assist/internal/index"
	"github.com/storefront-ai/shop-assist/internal/observability"
)

// AnswerMetadataKey is the metadata field carrying the FAQ answer on
// documents in the FAQ collection.
const AnswerMetadataKey = "answer"

// DefaultTopK is the number of FAQ entries retrieved per question.
const DefaultTopK = 3

// FAQRetriever returns the semantically closest FAQ answers for a question.
type FAQRetriever struct {
	index  index.Index
	logger *observability.Logger
	topK   int
}

// NewFAQRetriever creates an unstructured evidence retriever.
func NewFAQRetriever(idx index.Index, logger *observability.Logger, topK int) *FAQRetriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &FAQRetriever{
		index:  idx,
		logger: logger,
		topK:   topK,
	}
}

// Retrieve returns up to topK FAQ answers in similarity-ranked order, most
// similar first. Fewer matches than topK is not an error.
func (r *FAQRetriever) Retrieve(ctx context.Context, question string) ([]string, error) {
	matches, err := r.index.Query(ctx, question, r.topK)
	if err != nil {
		return nil, fmt.Errorf("query faq index: %w", err)
	}

	answers := make([]string, 0, len(matches))
	for _, m := range matches {
		if answer, ok := m.Metadata[AnswerMetadataKey].(string); ok {
			answers = append(answers, answer)
		}
	}

	r.logger.Debug().
		Str("question", question).
		Int("answers", len(answers)).
		Msg("retrieved faq evidence")

	return answers, nil
}
