package auth

import "errors"

var (
	// ErrUnauthorized represents missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrKeyNotFound signals that the API key could not be located.
	ErrKeyNotFound = errors.New("api key not found")
)
