package main

import (
	"context"
	"fmt"
	"os"

	"github.com/storefront-ai/shop-assist/internal/answer"
	"github.com/storefront-ai/shop-assist/internal/assist"
	"github.com/storefront-ai/shop-assist/internal/cache"
	"github.com/storefront-ai/shop-assist/internal/catalog"
	"github.com/storefront-ai/shop-assist/internal/config"
	"github.com/storefront-ai/shop-assist/internal/embedding"
	"github.com/storefront-ai/shop-assist/internal/index"
	"github.com/storefront-ai/shop-assist/internal/ingest"
	"github.com/storefront-ai/shop-assist/internal/llm"
	"github.com/storefront-ai/shop-assist/internal/observability"
	"github.com/storefront-ai/shop-assist/internal/retrieval"
	"github.com/storefront-ai/shop-assist/internal/session"
)

// app bundles the wired service graph for the CLI commands.
type app struct {
	cfg      *config.Config
	logger   *observability.Logger
	service  *assist.Service
	sessions *session.Store

	store       *catalog.Store
	cacheClient cache.Client
	faqIndex    index.Index
	routesIndex index.Index
}

// newApp wires the full service graph from configuration.
func newApp(cfg *config.Config, logger *observability.Logger) (*app, error) {
	store, err := catalog.Open(catalog.Config{
		Path:        cfg.Catalog.Path,
		JournalMode: cfg.Catalog.JournalMode,
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	llmClient, err := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	var embedder embedding.Embedder
	if os.Getenv("OPENAI_API_KEY") != "" {
		embedder, err = embedding.NewClient(embedding.Config{
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create embedding client, using mock")
			embedder = embedding.NewMockClient(cfg.Embedding.Dimension)
		}
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set, using mock embeddings")
		embedder = embedding.NewMockClient(cfg.Embedding.Dimension)
	}

	chromaClient, err := index.NewChromaClient(cfg.Index.URL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("connect to semantic index: %w", err)
	}

	faqIndex := index.NewChromaIndex(chromaClient, embedder, cfg.Index.FAQCollection)
	routesIndex := index.NewChromaIndex(chromaClient, embedder, cfg.Index.RoutesCollection)

	var classifier retrieval.Classifier
	switch cfg.Retrieval.Classifier {
	case "keyword":
		classifier = retrieval.NewKeywordClassifier()
	default:
		classifier = retrieval.NewSemanticClassifier(routesIndex, logger, cfg.Retrieval.RouteMaxDistance)
	}

	var cacheClient cache.Client
	if cfg.Cache.Driver == "redis" {
		cacheClient, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, falling back to memory cache")
			cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
		}
	} else {
		cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}

	sqlgen := retrieval.NewSQLSynthesizer(llmClient, store, logger, cfg.LLM.SQLMaxToken)
	faqRetriever := retrieval.NewFAQRetriever(faqIndex, logger, cfg.Retrieval.TopK)
	synth := answer.NewSynthesizer(llmClient, logger, answer.Config{
		FAQMaxTokens:     cfg.LLM.FAQMaxToken,
		CatalogMaxTokens: cfg.LLM.SQLMaxToken,
	})

	service := assist.NewService(classifier, sqlgen, faqRetriever, synth, cacheClient, logger, assist.Config{
		CacheAnswers:   cfg.Retrieval.CacheAnswers,
		AnswerCacheTTL: cfg.Retrieval.AnswerCacheTTL,
	})

	return &app{
		cfg:         cfg,
		logger:      logger,
		service:     service,
		sessions:    session.NewStore(),
		store:       store,
		cacheClient: cacheClient,
		faqIndex:    faqIndex,
		routesIndex: routesIndex,
	}, nil
}

// ensureCollections bootstraps the FAQ and routing collections when missing.
func (a *app) ensureCollections(ctx context.Context) error {
	faqBoot := ingest.NewBootstrapper(a.faqIndex, a.logger)
	if err := faqBoot.EnsureIngested(ctx, a.cfg.Ingestion.FAQPath); err != nil {
		return err
	}

	routesPath := a.cfg.Ingestion.RoutesPath
	if _, err := os.Stat(routesPath); err != nil {
		routesPath = ""
	}
	routesBoot := ingest.NewRoutesBootstrapper(a.routesIndex, a.logger)
	return routesBoot.EnsureSeeded(ctx, routesPath)
}

// close releases held connections.
func (a *app) close() {
	if err := a.cacheClient.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close cache")
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close catalog")
	}
}
