package quota

import (
	"time"

	"github.com/abduss/mediahost/internal/storage"
)

// Usage is a point-in-time aggregate of stored originals for one provider.
type Usage struct {
	TotalBytes     int64     `json:"totalBytes"`
	FileCount      int64     `json:"fileCount"`
	LastCalculated time.Time `json:"lastCalculated"`
}

// Check is the outcome of gating an upload against a provider quota.
// Remaining is the space left before the upload; it is zero when Unlimited.
type Check struct {
	Allowed      bool   `json:"allowed"`
	Message      string `json:"message,omitempty"`
	Unlimited    bool   `json:"unlimited"`
	Remaining    int64  `json:"remaining,omitempty"`
	CurrentUsage int64  `json:"currentUsage"`
	Quota        int64  `json:"quota,omitempty"`
}

// ProviderUsage is the operator view of one provider.
type ProviderUsage struct {
	Provider  storage.Provider `json:"provider"`
	Usage     Usage            `json:"usage"`
	Quota     *int64           `json:"quotaBytes"`
	Remaining *int64           `json:"remainingBytes,omitempty"`
}
