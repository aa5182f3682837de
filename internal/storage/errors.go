package storage

import "errors"

var (
	// ErrProviderNotConfigured signals that the provider is missing credentials or bucket settings.
	ErrProviderNotConfigured = errors.New("storage provider not configured")
	// ErrUnknownProvider is returned for provider values the factory does not know.
	ErrUnknownProvider = errors.New("unknown storage provider")
	// ErrObjectNotFound indicates the object key does not exist in the bucket.
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectOutsideProject guards deletes against keys that escape the project prefix.
	ErrObjectOutsideProject = errors.New("object name outside project scope")
)
