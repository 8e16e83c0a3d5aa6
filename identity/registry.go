package identity

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Registry looks up identity providers by route name
type Registry struct {
	providers map[string]Provider
	logger    *zap.Logger
}

// NewRegistry creates an empty provider registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// Register adds a provider, replacing any provider with the same name
func (r *Registry) Register(provider Provider) {
	r.providers[provider.Name()] = provider
	r.logger.Info("identity provider registered", zap.String("provider", provider.Name()))
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return provider, nil
}

// Names returns the registered provider names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	return len(r.providers)
}
