package project

import (
	"time"

	"github.com/abduss/mediahost/internal/storage"
	"github.com/google/uuid"
)

// Project groups files stored with a single provider.
type Project struct {
	ID        uuid.UUID        `json:"id"`
	OwnerID   uuid.UUID        `json:"ownerId"`
	Name      string           `json:"name"`
	Provider  storage.Provider `json:"provider"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Usage is the display figure for a project. Unlike quota usage it includes derived variants.
type Usage struct {
	FileCount     int64 `json:"fileCount"`
	OriginalBytes int64 `json:"originalBytes"`
	VariantBytes  int64 `json:"variantBytes"`
	TotalBytes    int64 `json:"totalBytes"`
}
