package llmrouter

import (
	"context"
	"time"

	"realtorflow/platform/config"
	"realtorflow/platform/cost"
	"realtorflow/platform/logging"
	"realtorflow/platform/orcerr"
)

// Router is the single entry point for every LLM call (spec §4.3). It
// owns the model registry, the selection policy, provider adapters,
// retries, and token/cost accounting.
type Router struct {
	registry *Registry
	policy   Policy
	adapters map[Provider]Adapter
	log      *logging.Logger
	ledger   *cost.Ledger // optional: nil disables durable accounting

	fallbackEnabled     bool
	maxRetries          int
	healthCheckInterval time.Duration

	lastHealthCheck time.Time
	stop            chan struct{}
}

// Option configures a Router at construction.
type Option func(*Router)

func WithAdapter(p Provider, a Adapter) Option {
	return func(r *Router) { r.adapters[p] = a }
}

func WithLedger(l *cost.Ledger) Option {
	return func(r *Router) { r.ledger = l }
}

// New constructs a Router bound to reg and cfg's routing settings.
func New(reg *Registry, cfg *config.Config, log *logging.Logger, opts ...Option) *Router {
	r := &Router{
		registry:            reg,
		policy:              Policy(cfg.ModelRouterStrategy),
		adapters:            make(map[Provider]Adapter),
		log:                 log,
		fallbackEnabled:     cfg.ModelRouterFallbackEnabled,
		maxRetries:          cfg.ModelRouterMaxRetries,
		healthCheckInterval: cfg.HealthCheckInterval(),
		stop:                make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GenerateResponse implements spec §4.3's invocation protocol: refresh
// health if stale, select a model, dispatch, retry/fallback on
// provider error, and record cost/token accounting on success.
func (r *Router) GenerateResponse(ctx context.Context, req Request) (*Response, error) {
	if time.Since(r.lastHealthCheck) > r.healthCheckInterval {
		r.healthCheck(ctx)
	}

	attempts := r.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		model, err := Select(r.registry, r.policy, req.ModelPreference)
		if err != nil {
			return nil, err
		}

		adapter, ok := r.adapters[model.Provider]
		if !ok {
			return nil, orcerr.Execution("GenerateResponse", model.ID, "no adapter registered for provider "+string(model.Provider), nil)
		}

		start := time.Now()
		resp, dispatchErr := adapter.Dispatch(ctx, model, req)
		processingTime := time.Since(start)

		if dispatchErr != nil {
			model.SetAvailable(false)
			lastErr = dispatchErr
			r.log.Warn("", "model dispatch failed, marking unavailable", logging.Fields{
				"model_id": model.ID, "provider": string(model.Provider), "error": dispatchErr.Error(),
			})
			if !r.fallbackEnabled {
				break
			}
			continue
		}

		resp.ProcessingTime = processingTime
		r.recordUsage(ctx, model, resp)
		return &resp, nil
	}

	return nil, orcerr.ResourceUnavailable("GenerateResponse", req.ModelPreference, "exhausted retries", lastErr)
}

func (r *Router) recordUsage(ctx context.Context, model *ModelInfo, resp Response) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.RecordUsage(ctx, cost.UsageRecord{
		ModelID:          model.ID,
		Provider:         string(model.Provider),
		PromptTokens:     resp.TokenUsage.Prompt,
		CompletionTokens: resp.TokenUsage.Completion,
		TotalTokens:      resp.TokenUsage.Total,
		Cost:             resp.Cost,
	}); err != nil {
		r.log.Warn("", "failed to record usage in cost ledger", logging.Fields{"model_id": model.ID, "error": err.Error()})
	}
}

// healthCheck pings each provider with a registered adapter and flips
// availability for every model of that provider, one compare-and-set
// per model (spec §4.3).
func (r *Router) healthCheck(ctx context.Context) {
	r.lastHealthCheck = time.Now()
	for provider, adapter := range r.adapters {
		healthy := adapter.Ping(ctx) == nil
		for _, m := range r.registry.ByProvider(provider) {
			m.SetAvailable(healthy)
			m.touchHealthCheck(r.lastHealthCheck)
		}
	}
}

// StartHealthCheckLoop runs healthCheck on a ticker until Stop is
// called, independent of request serving (spec §4.3's periodic
// monitoring, not driven only by request staleness).
func (r *Router) StartHealthCheckLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.healthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.healthCheck(ctx)
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Router) Stop() {
	close(r.stop)
}
