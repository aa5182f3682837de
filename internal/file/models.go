package file

import (
	"time"

	"github.com/abduss/mediahost/internal/media"
	"github.com/abduss/mediahost/internal/validation"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a file record.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// ContentKind selects the confirm strategy.
type ContentKind string

const (
	KindImage ContentKind = "image"
	KindVideo ContentKind = "video"
	KindOther ContentKind = "other"
)

// KindFor classifies a declared content type. Only raster formats the media
// package can decode are treated as images.
func KindFor(contentType string) ContentKind {
	ct := validation.NormalizeContentType(contentType)
	switch ct {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff":
		return KindImage
	}
	if validation.IsVideo(ct) {
		return KindVideo
	}
	return KindOther
}

// Variant is a stored rendition of a file.
type Variant struct {
	URL        string `json:"url"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Size       int64  `json:"size"`
	Format     string `json:"format"`
	Label      string `json:"label"`
	ObjectName string `json:"objectName,omitempty"`
}

// File is the record tracked for every upload.
type File struct {
	ID         uuid.UUID `json:"id"`
	ProjectID  uuid.UUID `json:"projectId"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mimeType"`
	IsImage    bool      `json:"isImage"`
	Size       int64     `json:"size"`
	ObjectName string    `json:"objectName"`
	URL        *string   `json:"url"`
	Status     Status    `json:"status"`
	Variants   []Variant `json:"variants"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ObjectNames returns the original key followed by every distinct variant key.
func (f File) ObjectNames() []string {
	names := []string{f.ObjectName}
	seen := map[string]struct{}{f.ObjectName: {}}
	for _, v := range f.Variants {
		if v.ObjectName == "" {
			continue
		}
		if _, ok := seen[v.ObjectName]; ok {
			continue
		}
		seen[v.ObjectName] = struct{}{}
		names = append(names, v.ObjectName)
	}
	return names
}

// PresignInput is the client's upload intent.
type PresignInput struct {
	FileName    string
	ContentType string
	FileSize    int64
	Width       *int
	Height      *int
}

// PresignResult is returned to the client before it uploads.
type PresignResult struct {
	PresignedURL string      `json:"presignedUrl"`
	ObjectName   string      `json:"objectName"`
	ObjectURL    string      `json:"objectUrl"`
	FileID       uuid.UUID   `json:"fileId"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	Quota        *QuotaState `json:"quota,omitempty"`
}

// QuotaState reports the space left before this upload.
type QuotaState struct {
	Remaining int64 `json:"remaining"`
}

// VariantRequest asks for one rendition of an image.
type VariantRequest struct {
	Size   media.SizeSpec
	Format media.Format
}

// ConfirmInput finalizes an upload.
type ConfirmInput struct {
	FileID      uuid.UUID
	ObjectName  string
	FileName    string
	ContentType string
	FileSize    int64
	Variants    []VariantRequest
}

// ConfirmResult is the completed record plus the smallest rendition.
type ConfirmResult struct {
	File      File     `json:"file"`
	Thumbnail *Variant `json:"thumbnail,omitempty"`
}
