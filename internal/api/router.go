// Package api exposes the question-answering service over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/storefront-ai/shop-assist/internal/assist"
	"github.com/storefront-ai/shop-assist/internal/observability"
	"github.com/storefront-ai/shop-assist/internal/session"
)

// RouterConfig holds HTTP surface tuning.
type RouterConfig struct {
	RequestTimeout time.Duration
}

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, service *assist.Service, sessions *session.Store, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"shop-assist"}`))
	})

	handler := NewAskHandler(logger, service, sessions)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", handler.Ask)
		r.Get("/sessions/{sessionId}", handler.GetSession)
	})

	return r
}
