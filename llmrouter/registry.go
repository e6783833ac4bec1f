package llmrouter

import (
	"sync"

	"realtorflow/platform/orcerr"
)

// Policy is the selection policy chosen at router construction (spec
// §4.3).
type Policy string

const (
	PolicyCostOptimized Policy = "cost_optimized"
	PolicyPerformance   Policy = "performance"
	PolicyBalanced      Policy = "balanced"
)

// Registry is the read-mostly catalog of known models, keyed by id.
// Models are registered once at startup; only their availability and
// last-health-check fields mutate afterward, and those mutate through
// atomics on the ModelInfo itself rather than under the registry's
// lock, so health updates never block a concurrent Select.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*ModelInfo
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*ModelInfo)}
}

// Register adds or replaces a model. New registrations start
// available; callers that need otherwise should call SetAvailable
// after Register.
func (r *Registry) Register(m *ModelInfo) {
	m.SetAvailable(true)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[m.ID] = m
}

func (r *Registry) Get(id string) (*ModelInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	return m, ok
}

// All returns every registered model.
func (r *Registry) All() []*ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ModelInfo, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	return out
}

// ByProvider returns every model registered under provider.
func (r *Registry) ByProvider(p Provider) []*ModelInfo {
	var out []*ModelInfo
	for _, m := range r.All() {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	return out
}

// Select picks a model id. modelPreference wins outright if it exists
// and is available; otherwise policy picks among available models.
func Select(reg *Registry, policy Policy, modelPreference string) (*ModelInfo, error) {
	if modelPreference != "" {
		if m, ok := reg.Get(modelPreference); ok && m.IsAvailable() {
			return m, nil
		}
	}

	var best *ModelInfo
	var bestScore float64
	for _, m := range reg.All() {
		if !m.IsAvailable() {
			continue
		}
		score := policyScore(policy, m)
		if best == nil || scoreBetter(policy, score, bestScore) {
			best = m
			bestScore = score
		}
	}
	if best == nil {
		return nil, orcerr.ResourceUnavailable("Select", modelPreference, "no_model_available", nil)
	}
	return best, nil
}

func policyScore(policy Policy, m *ModelInfo) float64 {
	switch policy {
	case PolicyCostOptimized:
		return m.CostPerToken
	case PolicyPerformance:
		return m.PerformanceScore
	case PolicyBalanced:
		if m.PerformanceScore == 0 {
			return -1 // treated as worst-possible in scoreBetter below
		}
		return m.CostPerToken / m.PerformanceScore
	default:
		return m.CostPerToken
	}
}

// scoreBetter reports whether candidate beats current for policy: cost
// and balanced minimize, performance maximizes.
func scoreBetter(policy Policy, candidate, current float64) bool {
	switch policy {
	case PolicyPerformance:
		return candidate > current
	case PolicyBalanced:
		if candidate < 0 {
			return false
		}
		if current < 0 {
			return true
		}
		return candidate < current
	default: // cost_optimized
		return candidate < current
	}
}
