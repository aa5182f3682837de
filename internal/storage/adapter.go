package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider identifies a storage backend a project is bound to.
type Provider string

const (
	// ProviderMinIO is the enterprise object storage backend.
	ProviderMinIO Provider = "MINIO"
	// ProviderS3 is the S3-compatible edge storage backend.
	ProviderS3 Provider = "S3"
)

// KnownProviders lists every provider the factory can build, in display order.
func KnownProviders() []Provider {
	return []Provider{ProviderMinIO, ProviderS3}
}

// ParseProvider normalizes a provider name.
func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range KnownProviders() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
}

// PresignInput describes a write-scoped upload URL request.
type PresignInput struct {
	ObjectName  string
	ContentType string
	ExpiresIn   time.Duration
}

// PresignedUpload is what the client needs to upload directly to the bucket.
type PresignedUpload struct {
	URL       string
	ObjectURL string
	ExpiresAt time.Time
}

// Adapter is the uniform contract over a vendor object store.
//
// Every method that talks to the vendor returns ErrProviderNotConfigured
// when IsConfigured is false, without attempting a network call.
type Adapter interface {
	Provider() Provider
	IsConfigured() bool
	// ObjectURL builds the public URL of a key. It performs no I/O.
	ObjectURL(objectName string) string
	CreatePresignedUpload(ctx context.Context, in PresignInput) (PresignedUpload, error)
	UploadObject(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	// DownloadObject returns ErrObjectNotFound when the key is missing.
	DownloadObject(ctx context.Context, objectName string) ([]byte, error)
	// DeleteObject treats a missing key as success.
	DeleteObject(ctx context.Context, objectName string) error
}

func joinObjectURL(base, objectName string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(objectName, "/")
}
