package quota

import "errors"

// ErrInvalidQuota signals a negative quota value.
var ErrInvalidQuota = errors.New("quota must not be negative")
