// Package answer composes final natural-language answers from retrieved
// evidence via the text-generation collaborator.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/storefront-ai/shop-assist/internal/catalog"
	"github.com/storefront-ai/shop-assist/internal/llm"
	"github.com/storefront-ai/shop-assist/internal/observability"
)

// Synthesizer turns (question, evidence) into one answer string. The model
// response is returned raw; format contracts live in the prompts and are not
// re-validated here.
type Synthesizer struct {
	llm          llm.Generator
	logger       *observability.Logger
	faqMaxTokens int
	sqlMaxTokens int
}

// Config holds synthesizer output ceilings.
type Config struct {
	FAQMaxTokens     int
	CatalogMaxTokens int
}

// NewSynthesizer creates an answer synthesizer.
func NewSynthesizer(generator llm.Generator, logger *observability.Logger, cfg Config) *Synthesizer {
	if cfg.FAQMaxTokens <= 0 {
		cfg.FAQMaxTokens = 350
	}
	if cfg.CatalogMaxTokens <= 0 {
		cfg.CatalogMaxTokens = 1024
	}
	return &Synthesizer{
		llm:          generator,
		logger:       logger,
		faqMaxTokens: cfg.FAQMaxTokens,
		sqlMaxTokens: cfg.CatalogMaxTokens,
	}
}

// ForFAQ answers from retrieved FAQ answers. The answers are joined with a
// single space into one paragraph of context.
func (s *Synthesizer) ForFAQ(ctx context.Context, question string, answers []string) (string, error) {
	joined := strings.Join(answers, " ")

	response, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:    fmt.Sprintf(faqPrompt, question, joined),
		MaxTokens: s.faqMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("synthesize faq answer: %w", err)
	}

	return response, nil
}

// ForCatalog answers from structured catalog rows. Rows are serialized as a
// list of field-name/value records so the model can reference columns by name.
func (s *Synthesizer) ForCatalog(ctx context.Context, question string, rows *catalog.Rows) (string, error) {
	response, err := s.llm.Complete(ctx, llm.CompletionRequest{
		System:      catalogPrompt,
		Prompt:      fmt.Sprintf("QUESTION: %s. DATA: %s", question, FormatRecords(rows)),
		Temperature: 0.2,
		MaxTokens:   s.sqlMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("synthesize catalog answer: %w", err)
	}

	return response, nil
}

// FormatRecords serializes rows as a list of records, one field-name/value
// pair per column in store order.
func FormatRecords(rows *catalog.Rows) string {
	if rows.Len() == 0 {
		return "[]"
	}

	var sb strings.Builder
	sb.WriteString("[")
	for i, record := range rows.Records {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("{")
		for j, col := range rows.Columns {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %v", col, record[j])
		}
		sb.WriteString("}")
	}
	sb.WriteString("]")
	return sb.String()
}
