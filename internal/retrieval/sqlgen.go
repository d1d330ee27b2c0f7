package retrieval

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/storefront-ai/shop-assist/internal/catalog"
	"github.com/storefront-ai/shop-assist/internal/llm"
	"github.com/storefront-ai/shop-assist/internal/observability"
)

var (
	// ErrNoQueryGenerated indicates the model response carried no
	// delimited query span.
	ErrNoQueryGenerated = errors.New("no query generated")

	// ErrQueryRejected indicates the extracted statement failed the
	// SELECT prefix gate and was never executed.
	ErrQueryRejected = errors.New("generated query rejected")
)

// sqlSpanPattern matches the first delimited query span in a model response.
var sqlSpanPattern = regexp.MustCompile(`(?s)<SQL>(.*?)</SQL>`)

// schemaPrompt is the fixed system instruction for SQL generation. It embeds
// the catalog schema and the execution constraints; user input never alters it.
const schemaPrompt = `You are an expert in understanding the database schema and generating SQL queries for a natural language question asked
pertaining to the data you have. The schema is provided in the schema tags.
<schema>
table: product

fields:
product_link - string (hyperlink to product)
title - string (name of the product)
brand - string (brand of the product)
price - integer (price of the product in Indian Rupees)
discount - float (discount on the product. 10 percent discount is represented as 0.1, 20 percent as 0.2, and such.)
avg_rating - float (average rating of the product. Range 0-5, 5 is the highest.)
total_ratings - integer (total number of ratings for the product)

</schema>
Make sure whenever you try to search for the brand name, the name can be in any case.
So, make sure to use %LIKE% to find the brand in condition. Never use "ILIKE".
Create a single SQL query for the question provided.
The query should have all the fields in SELECT clause (i.e. SELECT *)

Just the SQL query is needed, nothing more. Always provide the SQL in between the <SQL></SQL> tags.`

// TabularStore executes one read query against the product catalog.
type TabularStore interface {
	Select(ctx context.Context, query string) (*catalog.Rows, error)
}

// SQLSynthesizer turns a natural-language question into one validated SQL
// statement, executes it, and returns the matched rows.
type SQLSynthesizer struct {
	llm       llm.Generator
	store     TabularStore
	logger    *observability.Logger
	maxTokens int
}

// NewSQLSynthesizer creates a structured query synthesizer.
func NewSQLSynthesizer(generator llm.Generator, store TabularStore, logger *observability.Logger, maxTokens int) *SQLSynthesizer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &SQLSynthesizer{
		llm:       generator,
		store:     store,
		logger:    logger,
		maxTokens: maxTokens,
	}
}

// SynthesizeAndRun generates, validates, and executes one SQL statement.
// Returns ErrNoQueryGenerated when no delimited span is found,
// ErrQueryRejected when the statement fails the SELECT gate, and
// catalog.ErrNoRows when execution matched nothing. Generation and store
// transport failures propagate as plain errors.
func (s *SQLSynthesizer) SynthesizeAndRun(ctx context.Context, question string) (*catalog.Rows, error) {
	response, err := s.llm.Complete(ctx, llm.CompletionRequest{
		System:      schemaPrompt,
		Prompt:      question,
		Temperature: 0.2,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate query: %w", err)
	}

	statement, ok := ExtractQuerySpan(response)
	if !ok {
		s.logger.Warn().Str("question", question).Msg("model response carried no query span")
		return nil, ErrNoQueryGenerated
	}

	if !isSelectStatement(statement) {
		// Anything that is not a SELECT never reaches the store.
		s.logger.Warn().Str("statement", statement).Msg("rejected non-SELECT statement")
		return nil, ErrQueryRejected
	}

	s.logger.Debug().Str("statement", statement).Msg("executing generated query")

	rows, err := s.store.Select(ctx, statement)
	if err != nil {
		if errors.Is(err, catalog.ErrNoRows) {
			return nil, catalog.ErrNoRows
		}
		return nil, fmt.Errorf("execute generated query: %w", err)
	}

	return rows, nil
}

// ExtractQuerySpan returns the trimmed content of the first <SQL>...</SQL>
// span in the given text, or false when no span is present.
func ExtractQuerySpan(text string) (string, bool) {
	m := sqlSpanPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// isSelectStatement reports whether the statement begins with the SELECT
// verb after trimming, case-insensitively.
func isSelectStatement(statement string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(statement)), "SELECT")
}
