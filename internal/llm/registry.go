package llm

import (
	"fmt"
	"sort"

	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
)

// Registry records which providers are usable. It is built once at startup
// from configuration presence and never changes afterwards.
type Registry struct {
	providers map[ProviderID]Provider
}

// NewRegistry builds an adapter for every configured provider in cfg.
// Providers with missing credentials (or endpoint, where one is needed) are
// recorded as unavailable.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{providers: make(map[ProviderID]Provider)}

	for _, id := range AllProviders() {
		pc, ok := cfg[id]
		if !ok || !pc.Configured(id) {
			L_info("llm: provider unavailable", "provider", id, "reason", "not configured")
			continue
		}
		p, err := newProvider(id, pc)
		if err != nil {
			L_warn("llm: provider unavailable", "provider", id, "error", err)
			continue
		}
		r.providers[id] = p
		L_info("llm: provider available", "provider", id, "model", p.Model(), "key", Redact(pc.APIKey))
	}

	L_debug("llm: registry ready", "available", len(r.providers), "known", len(AllProviders()))
	return r
}

// NewRegistryWith registers prebuilt providers under their own IDs.
func NewRegistryWith(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[ProviderID]Provider)}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.providers[p.ID()] = p
	}
	return r
}

// newProvider picks the adapter family for a provider id.
func newProvider(id ProviderID, cfg ProviderConfig) (Provider, error) {
	switch id {
	case PrimaryReasoning:
		p, err := NewAnthropicProvider(id, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case Vision:
		p, err := NewXAIProvider(id, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case Fast, SecondaryReasoning, General, GeneralMini:
		p, err := NewOpenAIProvider(id, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", id)
	}
}

// IsAvailable reports whether id was configured at startup.
func (r *Registry) IsAvailable(id ProviderID) bool {
	if r == nil {
		return false
	}
	_, ok := r.providers[id]
	return ok
}

// Provider returns the adapter for id, or a ProviderUnavailableError.
func (r *Registry) Provider(id ProviderID) (Provider, error) {
	if r == nil {
		return nil, &ProviderUnavailableError{Provider: id}
	}
	p, ok := r.providers[id]
	if !ok {
		return nil, &ProviderUnavailableError{Provider: id}
	}
	return p, nil
}

// Available lists configured providers in global priority order.
// Providers registered via NewRegistryWith under unknown IDs come last.
func (r *Registry) Available() []ProviderID {
	if r == nil {
		return nil
	}
	ids := make([]ProviderID, 0, len(r.providers))
	for _, id := range AllProviders() {
		if _, ok := r.providers[id]; ok {
			ids = append(ids, id)
		}
	}
	var extra []ProviderID
	for id := range r.providers {
		if !id.Valid() {
			extra = append(extra, id)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(ids, extra...)
}
