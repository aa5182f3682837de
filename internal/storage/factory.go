package storage

import (
	"fmt"
	"sync"

	"github.com/abduss/mediahost/internal/config"
)

// Builder constructs an adapter. Builders must not perform network calls.
type Builder func() Adapter

// Factory hands out one cached adapter per provider.
type Factory struct {
	mu       sync.Mutex
	builders map[Provider]Builder
	adapters map[Provider]Adapter
}

// NewFactory registers the MinIO and S3 adapters from configuration.
func NewFactory(cfg config.Config) *Factory {
	return NewFactoryWithBuilders(map[Provider]Builder{
		ProviderMinIO: func() Adapter { return NewMinIOAdapter(cfg.MinIO) },
		ProviderS3:    func() Adapter { return NewS3Adapter(cfg.S3) },
	})
}

// NewFactoryWithBuilders allows substituting adapters, mainly for tests.
func NewFactoryWithBuilders(builders map[Provider]Builder) *Factory {
	return &Factory{
		builders: builders,
		adapters: make(map[Provider]Adapter),
	}
}

// Adapter returns the cached adapter for the provider, building it on first use.
func (f *Factory) Adapter(provider Provider) (Adapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if adapter, ok := f.adapters[provider]; ok {
		return adapter, nil
	}
	build, ok := f.builders[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	adapter := build()
	f.adapters[provider] = adapter
	return adapter, nil
}

// ConfiguredAdapter is Adapter plus a fail-fast configuration check.
func (f *Factory) ConfiguredAdapter(provider Provider) (Adapter, error) {
	adapter, err := f.Adapter(provider)
	if err != nil {
		return nil, err
	}
	if !adapter.IsConfigured() {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
	}
	return adapter, nil
}

// AvailableProviders lists the known providers whose adapters are configured.
func (f *Factory) AvailableProviders() []Provider {
	var available []Provider
	for _, provider := range KnownProviders() {
		if f.IsProviderAvailable(provider) {
			available = append(available, provider)
		}
	}
	return available
}

// IsProviderAvailable reports whether the provider is known and configured.
func (f *Factory) IsProviderAvailable(provider Provider) bool {
	adapter, err := f.Adapter(provider)
	if err != nil {
		return false
	}
	return adapter.IsConfigured()
}

// ClearCache drops cached adapters so the next call rebuilds them, e.g. after credential rotation.
func (f *Factory) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adapters = make(map[Provider]Adapter)
}
