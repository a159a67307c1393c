package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leofalp/polprofile/core/client"
	"github.com/leofalp/polprofile/core/client/middleware"
	"github.com/leofalp/polprofile/internal/config"
	"github.com/leofalp/polprofile/internal/metrics"
	"github.com/leofalp/polprofile/profile"
	"github.com/leofalp/polprofile/providers/ai"
	"github.com/leofalp/polprofile/providers/ai/gemini"
	"github.com/leofalp/polprofile/providers/ai/genai"
	"github.com/leofalp/polprofile/providers/tool/webfetch"
)

// newProvider selects the REST client or the SDK backend.
func newProvider(ctx context.Context, cfg config.Config) (ai.Provider, error) {
	switch cfg.Provider {
	case config.ProviderGenAI:
		provider, err := genai.New(ctx, genai.Config{
			APIKey:   cfg.APIKey,
			Vertex:   cfg.Vertex,
			Project:  cfg.Project,
			Location: cfg.Location,
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	case config.ProviderGemini:
		provider := gemini.New().WithAPIKey(cfg.APIKey)
		if cfg.BaseURL != "" {
			provider = provider.WithBaseURL(cfg.BaseURL)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// buildRunner wires provider, middlewares, the fetch tool and the stage
// catalog into a profile runner.
func (a *app) buildRunner(ctx context.Context, cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*profile.Runner, error) {
	provider, err := a.newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	fetchTool, err := webfetch.NewWebFetchTool(webfetch.NewFetcher())
	if err != nil {
		return nil, err
	}

	// Logging → Retry → Timeout → Provider
	logLevel := middleware.LogLevelStandard
	if strings.EqualFold(cfg.LogLevel, "DEBUG") {
		logLevel = middleware.LogLevelVerbose
	}
	middlewares := []client.MiddlewareConfig{middleware.NewLoggingMiddleware(logger, logLevel)}
	if cfg.MaxRetries > 0 {
		middlewares = append(middlewares, middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: cfg.MaxRetries}))
	}
	middlewares = append(middlewares, middleware.NewTimeoutMiddleware(cfg.CallTimeout))

	c, err := client.New(provider,
		client.WithTools(fetchTool),
		client.WithMaxToolCallIterations(cfg.MaxToolIterations),
		client.WithMiddleware(middlewares...),
	)
	if err != nil {
		return nil, err
	}

	catalog, err := profile.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	catalog.OverrideModel(profile.TierFast, cfg.FastModel)
	catalog.OverrideModel(profile.TierPro, cfg.ProModel)

	return profile.NewRunner(catalog, c,
		profile.WithRunTimeout(cfg.RunTimeout),
		profile.WithLogger(logger),
		profile.WithMetrics(recorder),
	)
}
