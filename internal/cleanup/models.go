package cleanup

import (
	"time"

	"github.com/abduss/mediahost/internal/file"
	"github.com/abduss/mediahost/internal/storage"
)

// StaleFile is an abandoned record together with the provider holding its objects.
type StaleFile struct {
	file.File
	Provider storage.Provider
}

// PendingResult summarizes a sweep of abandoned PENDING uploads.
type PendingResult struct {
	DeletedCount int      `json:"deletedCount"`
	Errors       []string `json:"errors"`
}

// FailedResult summarizes a sweep of FAILED records.
type FailedResult struct {
	DeletedCount int `json:"deletedCount"`
}

// Report is the outcome of one full run.
type Report struct {
	Pending  PendingResult `json:"pending"`
	Failed   FailedResult  `json:"failed"`
	Duration time.Duration `json:"-"`
}
