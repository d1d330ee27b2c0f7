// Package assist wires classification, retrieval, and answer synthesis into
// the question-answering pipeline.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/storefront-ai/shop-assist/internal/answer"
	"github.com/storefront-ai/shop-assist/internal/cache"
	"github.com/storefront-ai/shop-assist/internal/catalog"
	"github.com/storefront-ai/shop-assist/internal/observability"
	"github.com/storefront-ai/shop-assist/internal/retrieval"
)

// Fixed fallback answers. These are successful outcomes, not errors: the
// pipeline ran to completion and this is what the user is told.
const (
	// AnswerNoQuery is returned when the model produced no usable query.
	AnswerNoQuery = "none found"

	// AnswerNoMatches is returned when a generated query was rejected or
	// matched no catalog rows.
	AnswerNoMatches = "sorry, no matches found!"
)

// Result is one answered question.
type Result struct {
	Answer string           `json:"answer"`
	Intent retrieval.Intent `json:"intent"`
	Cached bool             `json:"cached,omitempty"`
}

// Config holds assist service tuning.
type Config struct {
	CacheAnswers   bool
	AnswerCacheTTL time.Duration
}

// Service answers natural-language questions about the product catalog and
// store policies.
type Service struct {
	classifier retrieval.Classifier
	sqlgen     *retrieval.SQLSynthesizer
	faq        *retrieval.FAQRetriever
	synth      *answer.Synthesizer
	cache      cache.Client
	cacheTTL   time.Duration
	cacheOn    bool
	logger     *observability.Logger
}

// NewService creates the question-answering service. The cache client may be
// nil, in which case answers are never cached.
func NewService(
	classifier retrieval.Classifier,
	sqlgen *retrieval.SQLSynthesizer,
	faq *retrieval.FAQRetriever,
	synth *answer.Synthesizer,
	cacheClient cache.Client,
	logger *observability.Logger,
	cfg Config,
) *Service {
	if cfg.AnswerCacheTTL <= 0 {
		cfg.AnswerCacheTTL = 15 * time.Minute
	}
	return &Service{
		classifier: classifier,
		sqlgen:     sqlgen,
		faq:        faq,
		synth:      synth,
		cache:      cacheClient,
		cacheTTL:   cfg.AnswerCacheTTL,
		cacheOn:    cfg.CacheAnswers && cacheClient != nil,
		logger:     logger,
	}
}

// Ask answers one question. Fallback outcomes (no query, no matches, unknown
// intent) are returned as the answer with a nil error; only collaborator
// failures surface as errors.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	result, err := s.Respond(ctx, question)
	if err != nil {
		return "", err
	}
	return result.Answer, nil
}

// Respond answers one question and reports the routed intent alongside.
func (s *Service) Respond(ctx context.Context, question string) (*Result, error) {
	if s.cacheOn {
		if cached, ok := s.cachedResult(ctx, question); ok {
			cached.Cached = true
			return cached, nil
		}
	}

	intent, err := s.classifier.Classify(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("classify question: %w", err)
	}

	s.logger.Debug().
		Str("question", question).
		Str("intent", intent.String()).
		Msg("question routed")

	var reply string
	switch intent {
	case retrieval.IntentStructured:
		reply, err = s.answerStructured(ctx, question)
	case retrieval.IntentUnstructured:
		reply, err = s.answerUnstructured(ctx, question)
	default:
		reply = fmt.Sprintf("%s not in the lib", question)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{Answer: reply, Intent: intent}
	if s.cacheOn {
		s.storeResult(ctx, question, result)
	}

	return result, nil
}

// answerStructured runs the SQL path. Generation misses and rejections map
// to fixed fallback answers instead of errors.
func (s *Service) answerStructured(ctx context.Context, question string) (string, error) {
	rows, err := s.sqlgen.SynthesizeAndRun(ctx, question)
	switch {
	case errors.Is(err, retrieval.ErrNoQueryGenerated):
		return AnswerNoQuery, nil
	case errors.Is(err, retrieval.ErrQueryRejected), errors.Is(err, catalog.ErrNoRows):
		return AnswerNoMatches, nil
	case err != nil:
		return "", err
	}

	reply, err := s.synth.ForCatalog(ctx, question, rows)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// answerUnstructured runs the FAQ path.
func (s *Service) answerUnstructured(ctx context.Context, question string) (string, error) {
	answers, err := s.faq.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}

	reply, err := s.synth.ForFAQ(ctx, question, answers)
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (s *Service) cachedResult(ctx context.Context, question string) (*Result, bool) {
	val, err := s.cache.Get(ctx, cache.AnswerCacheKey(question))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("answer cache read failed")
		return nil, false
	}

	var result Result
	if err := json.Unmarshal(val, &result); err != nil {
		s.logger.Warn().Err(err).Msg("answer cache entry corrupt")
		return nil, false
	}
	return &result, true
}

func (s *Service) storeResult(ctx context.Context, question string, result *Result) {
	val, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.AnswerCacheKey(question), val, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("answer cache write failed")
	}
}
