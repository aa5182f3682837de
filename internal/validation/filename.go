package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxFileNameBytes is the longest file name accepted by common filesystems.
	MaxFileNameBytes = 255
	// UnnamedFile replaces names that sanitize to nothing.
	UnnamedFile = "unnamed_file"

	maxExtensionBytes = 32
)

var reservedNamePattern = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[1-9]|lpt[1-9])(\..*)?$`)

// Result reports the outcome of a validation pass.
type Result struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors,omitempty"`
	SanitizedName string   `json:"sanitizedName,omitempty"`
}

func (r *Result) fail(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

// ValidateFileName checks a client supplied name for traversal, device names and control characters.
func ValidateFileName(name string) Result {
	res := Result{Valid: true}

	if strings.TrimSpace(name) == "" {
		res.fail("file name is required")
		res.SanitizedName = UnnamedFile
		return res
	}
	if len(name) > MaxFileNameBytes {
		res.fail("file name must not exceed 255 bytes")
	}
	if ContainsPathTraversal(name) {
		res.fail("file name must not contain path traversal sequences")
	}
	if hasControlCharacters(name) {
		res.fail("file name must not contain control characters")
	}
	if IsReservedName(baseName(name)) {
		res.fail("file name uses a reserved device name")
	}

	res.SanitizedName = SanitizeFileName(name)
	return res
}

// ContainsPathTraversal reports whether name contains a "../" or "..\" sequence or a bare ".." segment.
// Percent-encoded dots and separators are decoded first.
func ContainsPathTraversal(name string) bool {
	normalized := decodeTraversalEscapes(name)
	normalized = strings.ReplaceAll(normalized, `\`, "/")

	if strings.Contains(normalized, "../") {
		return true
	}
	for _, segment := range strings.Split(normalized, "/") {
		if strings.TrimSpace(segment) == ".." {
			return true
		}
	}
	return false
}

// IsReservedName reports whether name is a Windows device name, with or without an extension.
func IsReservedName(name string) bool {
	return reservedNamePattern.MatchString(strings.TrimSpace(name))
}

// SanitizeFileName returns a storable version of name. It never returns an empty string
// and SanitizeFileName(SanitizeFileName(x)) == SanitizeFileName(x).
func SanitizeFileName(name string) string {
	current := name
	for i := 0; i < 8; i++ {
		next := sanitizeOnce(current)
		if next == current {
			break
		}
		current = next
	}
	return current
}

func sanitizeOnce(name string) string {
	name = strings.ToValidUTF8(name, "")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case isControl(r):
			continue
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name = b.String()

	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	name = strings.Trim(name, ". ")

	if IsReservedName(name) {
		name = "_" + name
	}
	name = truncateName(name, MaxFileNameBytes)
	name = strings.Trim(name, ". ")

	if name == "" {
		return UnnamedFile
	}
	return name
}

func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}

	ext := ""
	if idx := strings.LastIndexByte(name, '.'); idx > 0 && len(name)-idx <= maxExtensionBytes {
		ext = name[idx:]
	}
	return truncateBytes(name[:len(name)-len(ext)], limit-len(ext)) + ext
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func hasControlCharacters(name string) bool {
	for _, r := range name {
		if isControl(r) {
			return true
		}
	}
	return false
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

func decodeTraversalEscapes(name string) string {
	if !strings.Contains(name, "%") {
		return name
	}
	replacer := strings.NewReplacer(
		"%2e", ".", "%2E", ".",
		"%2f", "/", "%2F", "/",
		"%5c", `\`, "%5C", `\`,
	)
	return replacer.Replace(name)
}
