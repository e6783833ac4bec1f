package llmrouter

import "context"

// Adapter converts the common Request to one provider's call shape and
// its response back (spec §4.3). Implementations never run inside a
// lock: the registry only reads model metadata under its RWMutex, the
// HTTP/SDK call itself always happens outside it.
type Adapter interface {
	// Dispatch performs the call for model against the adapter's
	// provider and returns the populated fields the router doesn't
	// compute itself (Content, TokenUsage, Cost, Metadata).
	Dispatch(ctx context.Context, model *ModelInfo, req Request) (Response, error)

	// Ping is the provider's lightweight health-check call.
	Ping(ctx context.Context) error
}
