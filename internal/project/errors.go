package project

import "errors"

var (
	// ErrProjectNotFound covers both missing projects and projects owned by someone else.
	ErrProjectNotFound = errors.New("project not found")
	// ErrProjectNameExists is returned when an owner reuses a project name.
	ErrProjectNameExists = errors.New("project name already exists")
	// ErrInvalidName signals an empty or oversized project name.
	ErrInvalidName = errors.New("project name must be between 1 and 128 characters")
	// ErrProviderUnavailable is returned when the requested provider has no credentials.
	ErrProviderUnavailable = errors.New("storage provider not available")
)
