package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

const maxExtensionLength = 10

// ObjectName builds the key of an original upload. Images with known
// dimensions encode them in the key; everything else is stored as "original".
func ObjectName(projectID, fileID uuid.UUID, fileName string, width, height int) string {
	base := "original"
	if width > 0 && height > 0 {
		base = fmt.Sprintf("%dx%d", width, height)
	}
	return fmt.Sprintf("%s/%s/%s%s", projectID, fileID, base, Extension(fileName))
}

// VariantObjectName builds the key of a derived image rendition. attempt is
// unique per confirm so concurrent confirms never share derived keys.
func VariantObjectName(projectID, fileID uuid.UUID, attempt string, width, height int, format string) string {
	return fmt.Sprintf("%s%dx%d.%s", AttemptPrefix(projectID, fileID, attempt), width, height, format)
}

// ThumbnailObjectName builds the key of a video poster frame.
func ThumbnailObjectName(projectID, fileID uuid.UUID, attempt string) string {
	return AttemptPrefix(projectID, fileID, attempt) + "thumbnail.jpg"
}

// AttemptPrefix is the key prefix shared by every object derived during one confirm.
func AttemptPrefix(projectID, fileID uuid.UUID, attempt string) string {
	return fmt.Sprintf("%s/%s/variants/%s/", projectID, fileID, attempt)
}

// NewAttempt returns a short random token scoping the derived objects of a
// single confirm.
func NewAttempt() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Extension returns the lowercase ".ext" of a file name restricted to
// alphanumerics, or "" when the name has no usable extension.
func Extension(fileName string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(fileName, "\\", "/")))
	if len(ext) < 2 || len(ext) > maxExtensionLength+1 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// EnsureProjectScope rejects object names that do not live under "{projectID}/"
// or that contain traversal segments.
func EnsureProjectScope(projectID uuid.UUID, objectName string) error {
	prefix := projectID.String() + "/"
	if !strings.HasPrefix(objectName, prefix) || len(objectName) == len(prefix) {
		return fmt.Errorf("%w: %q", ErrObjectOutsideProject, objectName)
	}
	if strings.Contains(objectName, "\\") {
		return fmt.Errorf("%w: %q", ErrObjectOutsideProject, objectName)
	}
	for _, segment := range strings.Split(objectName, "/") {
		if segment == ".." || segment == "." || segment == "" {
			return fmt.Errorf("%w: %q", ErrObjectOutsideProject, objectName)
		}
	}
	return nil
}
