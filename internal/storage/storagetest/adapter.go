// Package storagetest provides an in-memory storage.Adapter for tests.
package storagetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/abduss/mediahost/internal/storage"
)

// Adapter keeps objects in memory and records deletes.
type Adapter struct {
	mu sync.Mutex

	provider   storage.Provider
	configured bool
	objects    map[string][]byte
	deleted    []string

	// DeleteErrors makes DeleteObject fail for the given object names.
	DeleteErrors map[string]error
	// UploadErr, when set, fails every UploadObject call.
	UploadErr error
}

// NewAdapter returns a configured in-memory adapter for provider.
func NewAdapter(provider storage.Provider) *Adapter {
	return &Adapter{
		provider:     provider,
		configured:   true,
		objects:      make(map[string][]byte),
		DeleteErrors: make(map[string]error),
	}
}

// Unconfigured returns an adapter whose operations fail with ErrProviderNotConfigured.
func Unconfigured(provider storage.Provider) *Adapter {
	a := NewAdapter(provider)
	a.configured = false
	return a
}

func (a *Adapter) Provider() storage.Provider { return a.provider }

func (a *Adapter) IsConfigured() bool { return a.configured }

func (a *Adapter) ObjectURL(objectName string) string {
	return "https://objects.test/" + string(a.provider) + "/" + objectName
}

func (a *Adapter) CreatePresignedUpload(ctx context.Context, in storage.PresignInput) (storage.PresignedUpload, error) {
	if !a.configured {
		return storage.PresignedUpload{}, storage.ErrProviderNotConfigured
	}
	now := time.Now()
	return storage.PresignedUpload{
		URL:       a.ObjectURL(in.ObjectName) + "?signature=test",
		ObjectURL: a.ObjectURL(in.ObjectName),
		ExpiresAt: now.Add(in.ExpiresIn),
	}, nil
}

func (a *Adapter) UploadObject(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	if !a.configured {
		return "", storage.ErrProviderNotConfigured
	}
	if a.UploadErr != nil {
		return "", a.UploadErr
	}
	a.Put(objectName, data)
	return a.ObjectURL(objectName), nil
}

func (a *Adapter) DownloadObject(ctx context.Context, objectName string) ([]byte, error) {
	if !a.configured {
		return nil, storage.ErrProviderNotConfigured
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.objects[objectName]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func (a *Adapter) DeleteObject(ctx context.Context, objectName string) error {
	if !a.configured {
		return storage.ErrProviderNotConfigured
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, objectName)
	if err, ok := a.DeleteErrors[objectName]; ok && err != nil {
		return err
	}
	delete(a.objects, objectName)
	return nil
}

// Put stores an object as if a client had uploaded it.
func (a *Adapter) Put(objectName string, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[objectName] = append([]byte(nil), data...)
}

// Has reports whether objectName is stored.
func (a *Adapter) Has(objectName string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.objects[objectName]
	return ok
}

// Objects returns the stored object names in sorted order.
func (a *Adapter) Objects() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.objects))
	for name := range a.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Deleted returns every object name passed to DeleteObject.
func (a *Adapter) Deleted() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.deleted...)
}

// ErrInjected is a generic failure for tests.
var ErrInjected = errors.New("injected failure")

// Factory serves fixed adapters keyed by provider.
type Factory struct {
	Adapters map[storage.Provider]*Adapter
}

// NewFactory builds a Factory over the given adapters.
func NewFactory(adapters ...*Adapter) *Factory {
	f := &Factory{Adapters: make(map[storage.Provider]*Adapter)}
	for _, a := range adapters {
		f.Adapters[a.Provider()] = a
	}
	return f
}

func (f *Factory) ConfiguredAdapter(provider storage.Provider) (storage.Adapter, error) {
	a, ok := f.Adapters[provider]
	if !ok {
		return nil, storage.ErrUnknownProvider
	}
	if !a.IsConfigured() {
		return nil, storage.ErrProviderNotConfigured
	}
	return a, nil
}

func (f *Factory) IsProviderAvailable(provider storage.Provider) bool {
	a, ok := f.Adapters[provider]
	return ok && a.IsConfigured()
}

func (f *Factory) AvailableProviders() []storage.Provider {
	var out []storage.Provider
	for _, p := range storage.KnownProviders() {
		if f.IsProviderAvailable(p) {
			out = append(out, p)
		}
	}
	return out
}
